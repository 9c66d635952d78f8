// Package handler is the Lambda entry point: it accepts the raw upload event and hands
// the object reference to the core service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/jo-hoe/splitpages/internal/core"
	"github.com/jo-hoe/splitpages/internal/event"
)

// Processor is the part of core.CoreService the handler needs.
type Processor interface {
	Process(ctx context.Context, ref event.ObjectRef) (*core.Response, error)
}

type Handler struct {
	processor Processor
}

func NewHandler(processor Processor) *Handler {
	return &Handler{processor: processor}
}

// Invoke is registered with lambda.Start. Errors fail the invocation so the state machine
// can retry it.
func (h *Handler) Invoke(ctx context.Context, payload json.RawMessage) (*core.Response, error) {
	logger := slog.Default()
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logger = logger.With("requestId", lc.AwsRequestID)
	}

	ref, err := event.Parse(payload)
	if err != nil {
		logger.Error("rejecting event", "error", err)
		return nil, err
	}

	logger.Info("received upload", "bucket", ref.Bucket, "key", ref.Key)
	response, err := h.processor.Process(ctx, ref)
	if err != nil {
		logger.Error("inspection failed", "bucket", ref.Bucket, "key", ref.Key, "error", err)
		return nil, err
	}
	return response, nil
}
