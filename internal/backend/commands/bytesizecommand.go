package commands

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/jo-hoe/splitpages/internal/backend/commandstructure"
	"github.com/jo-hoe/splitpages/internal/imaging"
)

const (
	// DefaultMaxBytes is the Textract synchronous document size limit
	DefaultMaxBytes     = 10485760
	DefaultSafetyFactor = 0.95
	DefaultMaxAttempts  = 3
)

// ByteSizeParams represents typed parameters for the byte size command
type ByteSizeParams struct {
	MaxBytes     int
	SafetyFactor float64
	MaxAttempts  int
}

// NewByteSizeParamsFromMap creates ByteSizeParams from a generic map
func NewByteSizeParamsFromMap(params map[string]any) (*ByteSizeParams, error) {
	maxBytes, err := commandstructure.GetIntParam(params, "maxBytes", DefaultMaxBytes)
	if err != nil {
		return nil, err
	}
	safetyFactor, err := commandstructure.GetFloatParam(params, "safetyFactor", DefaultSafetyFactor)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := commandstructure.GetIntParam(params, "maxAttempts", DefaultMaxAttempts)
	if err != nil {
		return nil, err
	}

	if maxBytes <= 0 {
		return nil, fmt.Errorf("maxBytes must be positive, got %d", maxBytes)
	}
	if safetyFactor <= 0 || safetyFactor > 1 {
		return nil, fmt.Errorf("safetyFactor must be in (0, 1], got %v", safetyFactor)
	}
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("maxAttempts must be positive, got %d", maxAttempts)
	}

	return &ByteSizeParams{
		MaxBytes:     maxBytes,
		SafetyFactor: safetyFactor,
		MaxAttempts:  maxAttempts,
	}, nil
}

// ByteSizeCommand shrinks pages whose encoded size exceeds the configured byte limit
type ByteSizeCommand struct {
	name   string
	params *ByteSizeParams
}

// NewByteSizeCommand creates a new byte size command from configuration parameters
func NewByteSizeCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewByteSizeParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &ByteSizeCommand{
		name:   "ByteSizeCommand",
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *ByteSizeCommand) Name() string {
	return c.name
}

// Execute measures the page as it would be saved and scales it down until it fits
func (c *ByteSizeCommand) Execute(page commandstructure.Page) (commandstructure.Page, bool, error) {
	encoded, err := imaging.EncodeTIFF(page.Image, page.Encoding)
	if err != nil {
		return page, false, fmt.Errorf("failed to measure page: %w", err)
	}
	originalSize := len(encoded)

	if originalSize <= c.params.MaxBytes {
		slog.Debug("ByteSizeCommand: memory within limits", "page", page.Number, "size_bytes", originalSize)
		return page, false, nil
	}

	slog.Info("ByteSizeCommand: memory resize needed",
		"page", page.Number,
		"size_bytes", originalSize,
		"max_bytes", c.params.MaxBytes)

	size := originalSize
	img := page.Image
	for attempt := 1; attempt <= c.params.MaxAttempts && size > c.params.MaxBytes; attempt++ {
		bounds := img.Bounds()
		width, height := scaleForBytes(bounds.Dx(), bounds.Dy(), size, c.params.MaxBytes, c.params.SafetyFactor)

		img, err = imaging.Resize(img, width, height)
		if err != nil {
			return page, false, fmt.Errorf("failed to resize page: %w", err)
		}
		encoded, err = imaging.EncodeTIFF(img, page.Encoding)
		if err != nil {
			return page, false, fmt.Errorf("failed to measure resized page: %w", err)
		}
		size = len(encoded)

		slog.Debug("ByteSizeCommand: resize attempt",
			"page", page.Number,
			"attempt", attempt,
			"width", width,
			"height", height,
			"size_bytes", size)
	}

	if size > c.params.MaxBytes {
		return page, false, fmt.Errorf("page %d still %d bytes after %d attempts (max %d)",
			page.Number, size, c.params.MaxAttempts, c.params.MaxBytes)
	}

	slog.Info("ByteSizeCommand: resized page",
		"page", page.Number,
		"size_bytes", size,
		"percent_of_max", math.Round(float64(size)/float64(c.params.MaxBytes)*10000)/100)

	page.Image = img
	return page, true, nil
}

// GetParams returns the typed parameters
func (c *ByteSizeCommand) GetParams() *ByteSizeParams {
	return c.params
}

// scaleForBytes assumes encoded size is proportional to pixel count, so each side
// scales with the square root of the byte ratio.
func scaleForBytes(width, height, size, maxBytes int, safetyFactor float64) (int, int) {
	ratio := math.Sqrt(float64(maxBytes) / float64(size))
	newWidth := int(safetyFactor * ratio * float64(width))
	newHeight := int(safetyFactor * ratio * float64(height))
	return max(newWidth, 1), max(newHeight, 1)
}

func init() {
	// Register the command in the default registry
	if err := commandstructure.DefaultRegistry.Register("ByteSizeCommand", NewByteSizeCommand); err != nil {
		panic(fmt.Sprintf("failed to register ByteSizeCommand: %v", err))
	}
}
