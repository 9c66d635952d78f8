package commandstructure

import (
	"image"

	"github.com/jo-hoe/splitpages/internal/imaging"
)

// Page is the unit of work flowing through the command chain.
type Page struct {
	Number          int
	Image           image.Image
	BitsPerSample   int
	SamplesPerPixel int
	// Encoding is how the page will be written if it is saved.
	Encoding imaging.EncodeOptions
}

// NewPage wraps a decoded document page.
func NewPage(page imaging.Page, encoding imaging.EncodeOptions) Page {
	return Page{
		Number:          page.Number,
		Image:           page.Image,
		BitsPerSample:   page.BitsPerSample,
		SamplesPerPixel: page.SamplesPerPixel,
		Encoding:        encoding,
	}
}

// Mode returns the color mode of the page image.
func (p Page) Mode() imaging.ColorMode {
	return imaging.ColorModeOf(p.Image, p.BitsPerSample, p.SamplesPerPixel)
}

// Command defines the interface for all reprocessing commands.
// Execute returns the (possibly replaced) page and whether it was modified.
type Command interface {
	Name() string
	Execute(page Page) (Page, bool, error)
}

// CommandFactory is a function type that creates a command from configuration parameters
type CommandFactory func(params map[string]any) (Command, error)

// CommandConfig represents a command configuration with name and parameters
type CommandConfig struct {
	Name   string
	Params map[string]any
}
