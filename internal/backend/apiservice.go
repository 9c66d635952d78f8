package backend

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/splitpages/internal/backend/database"
	"github.com/jo-hoe/splitpages/internal/core"
	"github.com/jo-hoe/splitpages/internal/dedupe"
	"github.com/jo-hoe/splitpages/internal/event"
	"github.com/jo-hoe/splitpages/internal/handler"
	"github.com/jo-hoe/splitpages/internal/storage"
)

// APIService exposes the Lambda handler over HTTP for local runs against a filesystem
// bucket or a local S3 endpoint.
type APIService struct {
	handler     *handler.Handler
	coreService *core.CoreService
}

func NewAPIService(coreService *core.CoreService) *APIService {
	return &APIService{
		handler:     handler.NewHandler(coreService),
		coreService: coreService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		if !s.coreService.LedgerReachable(c.Request().Context()) {
			return c.String(http.StatusServiceUnavailable, "Inspection ledger is unreachable")
		}
		return c.String(http.StatusOK, "API Service is running")
	})

	e.POST("/invoke", s.invokeHandler)
	e.POST("/inspect", s.inspectHandler)
	e.GET("/inspections", s.listInspectionsHandler)
	e.GET("/inspections/:id", s.getInspectionHandler)
}

// invokeHandler accepts a raw S3 or EventBridge event, exactly as Lambda would receive it.
func (s *APIService) invokeHandler(ctx echo.Context) error {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	response, err := s.handler.Invoke(ctx.Request().Context(), json.RawMessage(payload))
	if err != nil {
		return s.processingError(err)
	}
	return ctx.JSON(http.StatusOK, response)
}

// inspectHandler accepts a bare {"bucket", "key"} reference.
func (s *APIService) inspectHandler(ctx echo.Context) error {
	var ref event.ObjectRef
	if err := ctx.Bind(&ref); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "received invalid request body")
	}
	if err := ctx.Validate(&ref); err != nil {
		return err
	}

	response, err := s.coreService.Process(ctx.Request().Context(), ref)
	if err != nil {
		return s.processingError(err)
	}
	return ctx.JSON(http.StatusOK, response)
}

func (s *APIService) listInspectionsHandler(ctx echo.Context) error {
	inspections, err := s.coreService.Inspections(ctx.Request().Context())
	if err != nil {
		return s.ledgerError(err)
	}
	return ctx.JSON(http.StatusOK, inspections)
}

func (s *APIService) getInspectionHandler(ctx echo.Context) error {
	inspection, err := s.coreService.Inspection(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return s.ledgerError(err)
	}
	return ctx.JSON(http.StatusOK, inspection)
}

func (s *APIService) processingError(err error) error {
	switch {
	case errors.Is(err, event.ErrInvalidEvent):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrObjectNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, dedupe.ErrInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		slog.Error("APIService: inspection failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (s *APIService) ledgerError(err error) error {
	switch {
	case errors.Is(err, core.ErrLedgerDisabled):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrInspectionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		slog.Error("APIService: ledger query failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to query inspections")
	}
}
