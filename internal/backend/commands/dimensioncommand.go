package commands

import (
	"fmt"
	"log/slog"

	"github.com/jo-hoe/splitpages/internal/backend/commandstructure"
	"github.com/jo-hoe/splitpages/internal/imaging"
)

// DefaultMaxDimension is the largest side Textract accepts, in pixels
const DefaultMaxDimension = 10000

// DimensionParams represents typed parameters for the dimension command
type DimensionParams struct {
	MaxDimension int
}

// NewDimensionParamsFromMap creates DimensionParams from a generic map
func NewDimensionParamsFromMap(params map[string]any) (*DimensionParams, error) {
	maxDimension, err := commandstructure.GetIntParam(params, "maxDimension", DefaultMaxDimension)
	if err != nil {
		return nil, err
	}
	if maxDimension <= 0 {
		return nil, fmt.Errorf("maxDimension must be positive, got %d", maxDimension)
	}
	return &DimensionParams{MaxDimension: maxDimension}, nil
}

// DimensionCommand shrinks pages whose larger side exceeds the configured limit
type DimensionCommand struct {
	name   string
	params *DimensionParams
}

// NewDimensionCommand creates a new dimension command from configuration parameters
func NewDimensionCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewDimensionParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &DimensionCommand{
		name:   "DimensionCommand",
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *DimensionCommand) Name() string {
	return c.name
}

// Execute resizes the page so its larger side equals the limit, keeping the aspect ratio
func (c *DimensionCommand) Execute(page commandstructure.Page) (commandstructure.Page, bool, error) {
	bounds := page.Image.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	newWidth, newHeight, oversized := fitWithin(width, height, c.params.MaxDimension)
	if !oversized {
		slog.Debug("DimensionCommand: dimensions within limits",
			"page", page.Number, "width", width, "height", height)
		return page, false, nil
	}

	slog.Info("DimensionCommand: oversized page, resizing",
		"page", page.Number,
		"width", width,
		"height", height,
		"new_width", newWidth,
		"new_height", newHeight)

	resized, err := imaging.Resize(page.Image, newWidth, newHeight)
	if err != nil {
		return page, false, fmt.Errorf("failed to resize page: %w", err)
	}
	page.Image = resized
	return page, true, nil
}

// fitWithin scales the larger side down to limit. The smaller side is truncated.
func fitWithin(width, height, limit int) (int, int, bool) {
	if width <= limit && height <= limit {
		return width, height, false
	}
	if width >= height {
		newHeight := int(float64(height) * (float64(limit) / float64(width)))
		return limit, max(newHeight, 1), true
	}
	newWidth := int(float64(width) * (float64(limit) / float64(height)))
	return max(newWidth, 1), limit, true
}

func init() {
	// Register the command in the default registry
	if err := commandstructure.DefaultRegistry.Register("DimensionCommand", NewDimensionCommand); err != nil {
		panic(fmt.Sprintf("failed to register DimensionCommand: %v", err))
	}
}
