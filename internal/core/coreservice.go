package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jo-hoe/splitpages/internal/backend/commands"
	"github.com/jo-hoe/splitpages/internal/backend/commandstructure"
	"github.com/jo-hoe/splitpages/internal/backend/database"
	"github.com/jo-hoe/splitpages/internal/dedupe"
	"github.com/jo-hoe/splitpages/internal/event"
	"github.com/jo-hoe/splitpages/internal/imaging"
	"github.com/jo-hoe/splitpages/internal/notify"
	"github.com/jo-hoe/splitpages/internal/storage"
)

const (
	MessageSuccess   = "Success"
	MessageDuplicate = "Duplicate event. Ignore!"
)

var ErrLedgerDisabled = errors.New("inspection ledger is disabled")

// Response is returned to the state machine. Unmodified pages in Body.Pages continue to
// OCR directly; modified pages were written back and arrive as new uploads.
type Response struct {
	StatusCode int  `json:"statusCode"`
	Body       Body `json:"body"`
}

type Body struct {
	Message string `json:"message"`
	*Summary
	Pages []event.PageRef `json:"pages"`
}

// Summary is only present when the upload was actually inspected.
type Summary struct {
	Bucket        string          `json:"bucket"`
	Orig          string          `json:"orig"`
	PageCount     int             `json:"page_count"`
	ModifiedPages []event.PageRef `json:"modified_pages"`
}

// Dependencies are the collaborators of the service. Database may be nil.
type Dependencies struct {
	Store    storage.ObjectStore
	Database database.DatabaseService
	Guard    dedupe.Guard
	Notifier notify.Notifier
}

type CoreService struct {
	config          *ServiceConfig
	store           storage.ObjectStore
	databaseService database.DatabaseService
	guard           dedupe.Guard
	notifier        notify.Notifier
	invoker         *commandstructure.CommandInvoker
	wait            func(ctx context.Context, d time.Duration) error
}

// NewCoreService builds every collaborator from config.
func NewCoreService(ctx context.Context, config *ServiceConfig) (*CoreService, error) {
	store, err := storage.NewObjectStore(ctx, config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	databaseService, err := database.NewDatabase(ctx, config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	guard, err := dedupe.NewGuard(config.Dedupe)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dedupe guard: %w", err)
	}
	notifier, err := notify.NewNotifier(config.Notifier)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}

	return NewCoreServiceWithDependencies(config, Dependencies{
		Store:    store,
		Database: databaseService,
		Guard:    guard,
		Notifier: notifier,
	})
}

func NewCoreServiceWithDependencies(config *ServiceConfig, deps Dependencies) (*CoreService, error) {
	if deps.Store == nil {
		return nil, errors.New("object store is required")
	}
	if deps.Guard == nil {
		deps.Guard = dedupe.NoopGuard{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NoopNotifier{}
	}

	invoker, err := commandstructure.NewCommandInvokerFromConfig(commandstructure.DefaultRegistry, config.CommandConfigs())
	if err != nil {
		return nil, fmt.Errorf("failed to build command chain: %w", err)
	}

	slog.Info("core service initialized",
		"storage", config.Storage.Type, "database", config.Database.Type,
		"dedupe", config.Dedupe.Type, "notifier", config.Notifier.Type,
		"commands", invoker.CommandNames())

	return &CoreService{
		config:          config,
		store:           deps.Store,
		databaseService: deps.Database,
		guard:           deps.Guard,
		notifier:        deps.Notifier,
		invoker:         invoker,
		wait:            waitFor,
	}, nil
}

// Process inspects the referenced upload, writes back every page that needs reprocessing
// and returns the pages that can go straight to OCR.
func (service *CoreService) Process(ctx context.Context, ref event.ObjectRef) (*Response, error) {
	for _, pattern := range service.config.IgnorePatterns {
		if pattern != "" && strings.Contains(ref.Key, pattern) {
			slog.Info("ignoring upload", "bucket", ref.Bucket, "key", ref.Key, "pattern", pattern)
			return ignored(fmt.Sprintf("%s file. Ignore!", pattern)), nil
		}
	}

	dedupeID := ref.DedupeID()
	acquired, err := service.guard.Acquire(ctx, dedupeID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return ignored(MessageDuplicate), nil
	}

	response, err := service.inspect(ctx, ref)
	if err != nil {
		// Let the retry of a failed run through the guard
		if releaseErr := service.guard.Release(context.WithoutCancel(ctx), dedupeID); releaseErr != nil {
			slog.Error("failed to release dedupe claim", "id", dedupeID, "error", releaseErr)
		}
		return nil, err
	}
	// The pages are written; an unmarked claim only expires early and lets a redelivery rerun
	if err := service.guard.Complete(context.WithoutCancel(ctx), dedupeID); err != nil {
		slog.Error("failed to complete dedupe claim", "id", dedupeID, "error", err)
	}
	return response, nil
}

func (service *CoreService) inspect(ctx context.Context, ref event.ObjectRef) (*Response, error) {
	data, err := service.store.GetObject(ctx, ref.Bucket, ref.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s/%s: %w", ref.Bucket, ref.Key, err)
	}

	doc, err := imaging.Open(data, imaging.OpenOptions{
		MaxPixels: service.config.MaxPixels,
		MaxPages:  service.config.MaxPages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s/%s: %w", ref.Bucket, ref.Key, err)
	}

	pageCount := doc.PageCount()
	slog.Info("inspecting upload", "bucket", ref.Bucket, "key", ref.Key, "format", doc.Format(), "pages", pageCount)

	modifiedPages := []event.PageRef{}
	passedPages := []event.PageRef{}
	encoding := imaging.EncodeOptions{Compression: service.config.Encoding.Compression}

	for number := 1; number <= pageCount; number++ {
		start := time.Now()

		modified, outKey, err := service.processPage(ctx, doc, ref, number, encoding)
		if err != nil {
			return nil, err
		}

		pageRef := event.PageRef{Bucket: ref.Bucket, Key: outKey, PageNum: number}
		if !modified {
			passedPages = append(passedPages, pageRef)
			continue
		}
		modifiedPages = append(modifiedPages, pageRef)

		// Each put starts a new pipeline run; spread them out
		if remaining := service.config.MinPageTime - time.Since(start); remaining > 0 {
			slog.Debug("pausing before next page", "duration", remaining)
			if err := service.wait(ctx, remaining); err != nil {
				return nil, err
			}
		}
	}

	if err := service.record(ctx, ref, pageCount, modifiedPages, passedPages); err != nil {
		return nil, err
	}
	if err := service.notifier.Publish(ctx, passedPages); err != nil {
		return nil, fmt.Errorf("failed to notify passed pages: %w", err)
	}

	slog.Info("upload inspected", "key", ref.Key, "modified", len(modifiedPages), "passed", len(passedPages))
	return &Response{
		StatusCode: 200,
		Body: Body{
			Message: MessageSuccess,
			Summary: &Summary{
				Bucket:        ref.Bucket,
				Orig:          ref.Key,
				PageCount:     pageCount,
				ModifiedPages: modifiedPages,
			},
			Pages: passedPages,
		},
	}, nil
}

// processPage runs the command chain on one page and writes it back when it changed.
// It returns whether the page was written and the key it is known under.
func (service *CoreService) processPage(ctx context.Context, doc *imaging.Document, ref event.ObjectRef, number int, encoding imaging.EncodeOptions) (bool, string, error) {
	key := ref.Key
	decoded, err := doc.Page(number)
	if err != nil {
		return false, "", fmt.Errorf("failed to decode page %d of %s: %w", number, key, err)
	}

	outKey := key
	modified := false
	if doc.PageCount() > 1 {
		outKey = splitPageKey(key, number)
		// Splitting always requires a re-save
		modified = true
	}

	page, applied, err := service.invoker.Execute(commandstructure.NewPage(decoded, encoding))
	if err != nil {
		return false, "", err
	}
	if len(applied) > 0 {
		slog.Info("page needs reprocessing", "key", key, "page", number, "commands", applied)
		modified = true
	}
	if !modified {
		return false, outKey, nil
	}

	if doc.PageCount() == 1 && !service.config.OverwriteSinglePage {
		outKey = modifiedKey(key)
	}

	encoded, err := imaging.EncodeTIFF(page.Image, page.Encoding)
	if err != nil {
		return false, "", fmt.Errorf("failed to encode page %d of %s: %w", number, key, err)
	}
	if err := service.store.PutObject(ctx, ref.Bucket, outKey, encoded); err != nil {
		return false, "", fmt.Errorf("failed to store %s: %w", outKey, err)
	}
	slog.Debug("page written", "key", outKey, "bytes", len(encoded))
	return true, outKey, nil
}

func (service *CoreService) record(ctx context.Context, ref event.ObjectRef, pageCount int, modifiedPages, passedPages []event.PageRef) error {
	if service.databaseService == nil {
		return nil
	}
	_, err := service.databaseService.RecordInspection(ctx, &database.Inspection{
		Bucket:       ref.Bucket,
		Key:          ref.Key,
		PageCount:    pageCount,
		ModifiedKeys: pageKeys(modifiedPages),
		PassedKeys:   pageKeys(passedPages),
	})
	if err != nil {
		return fmt.Errorf("failed to record inspection of %s: %w", ref.Key, err)
	}
	return nil
}

// Inspections lists the ledger, newest first.
func (service *CoreService) Inspections(ctx context.Context) ([]*database.Inspection, error) {
	if service.databaseService == nil {
		return nil, ErrLedgerDisabled
	}
	return service.databaseService.GetInspections(ctx)
}

func (service *CoreService) Inspection(ctx context.Context, id string) (*database.Inspection, error) {
	if service.databaseService == nil {
		return nil, ErrLedgerDisabled
	}
	return service.databaseService.GetInspectionByID(ctx, id)
}

// LedgerReachable reports whether the inspection ledger answers. Without a ledger there is
// nothing to reach and it reports true.
func (service *CoreService) LedgerReachable(ctx context.Context) bool {
	if service.databaseService == nil {
		return true
	}
	return service.databaseService.DoesDatabaseExist(ctx)
}

func (service *CoreService) Close() error {
	var errs []error
	if service.databaseService != nil {
		errs = append(errs, service.databaseService.Close())
	}
	errs = append(errs, service.guard.Close(), service.notifier.Close())
	return errors.Join(errs...)
}

func ignored(message string) *Response {
	return &Response{
		StatusCode: 200,
		Body:       Body{Message: message, Pages: []event.PageRef{}},
	}
}

func pageKeys(pages []event.PageRef) []string {
	keys := make([]string, 0, len(pages))
	for _, page := range pages {
		keys = append(keys, page.Key)
	}
	return keys
}

func waitFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
