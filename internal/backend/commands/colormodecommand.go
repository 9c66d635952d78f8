package commands

import (
	"fmt"
	"log/slog"

	"github.com/jo-hoe/splitpages/internal/backend/commandstructure"
	"github.com/jo-hoe/splitpages/internal/imaging"
)

// ColorModeParams represents typed parameters for the color mode command
type ColorModeParams struct {
	IncompatibleModes []imaging.ColorMode
}

// NewColorModeParamsFromMap creates ColorModeParams from a generic map
func NewColorModeParamsFromMap(params map[string]any) (*ColorModeParams, error) {
	names, err := commandstructure.GetStringSliceParam(params, "incompatibleModes", []string{string(imaging.ModeBilevel)})
	if err != nil {
		return nil, err
	}

	modes := make([]imaging.ColorMode, 0, len(names))
	for _, name := range names {
		mode, err := imaging.ParseColorMode(name)
		if err != nil {
			return nil, err
		}
		if mode == imaging.ModeRGB {
			return nil, fmt.Errorf("rgb cannot be marked incompatible, it is the conversion target")
		}
		modes = append(modes, mode)
	}

	return &ColorModeParams{IncompatibleModes: modes}, nil
}

// ColorModeCommand converts pages in color modes Textract rejects to RGB
type ColorModeCommand struct {
	name   string
	params *ColorModeParams
}

// NewColorModeCommand creates a new color mode command from configuration parameters
func NewColorModeCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewColorModeParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &ColorModeCommand{
		name:   "ColorModeCommand",
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *ColorModeCommand) Name() string {
	return c.name
}

// Execute converts the page to RGB when its mode is listed as incompatible
func (c *ColorModeCommand) Execute(page commandstructure.Page) (commandstructure.Page, bool, error) {
	mode := page.Mode()
	if !c.isIncompatible(mode) {
		slog.Debug("ColorModeCommand: color mode compatible", "page", page.Number, "mode", mode)
		return page, false, nil
	}

	slog.Info("ColorModeCommand: incompatible color mode, converting to rgb", "page", page.Number, "mode", mode)
	page.Image = imaging.ToRGB(page.Image)
	page.BitsPerSample = 8
	page.SamplesPerPixel = 3
	return page, true, nil
}

// GetParams returns the typed parameters
func (c *ColorModeCommand) GetParams() *ColorModeParams {
	return c.params
}

func (c *ColorModeCommand) isIncompatible(mode imaging.ColorMode) bool {
	for _, m := range c.params.IncompatibleModes {
		if m == mode {
			return true
		}
	}
	return false
}

func init() {
	// Register the command in the default registry
	if err := commandstructure.DefaultRegistry.Register("ColorModeCommand", NewColorModeCommand); err != nil {
		panic(fmt.Sprintf("failed to register ColorModeCommand: %v", err))
	}
}
