package commands

import (
	"image"
	"image/color"
	"testing"

	"github.com/jo-hoe/splitpages/internal/backend/commandstructure"
	"github.com/jo-hoe/splitpages/internal/imaging"
)

func bilevelPage() commandstructure.Page {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.SetGray(1, 1, color.Gray{Y: 255})
	return commandstructure.Page{Number: 1, Image: img, BitsPerSample: 1, SamplesPerPixel: 1}
}

func TestNewColorModeCommand_Defaults(t *testing.T) {
	command, err := NewColorModeCommand(map[string]any{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	colorCmd, ok := command.(*ColorModeCommand)
	if !ok {
		t.Fatal("Expected command to be *ColorModeCommand")
	}
	modes := colorCmd.GetParams().IncompatibleModes
	if len(modes) != 1 || modes[0] != imaging.ModeBilevel {
		t.Errorf("Expected default incompatible modes [bilevel], got %v", modes)
	}
}

func TestNewColorModeCommand_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"unknown mode", map[string]any{"incompatibleModes": []any{"sepia"}}},
		{"rgb is the target", map[string]any{"incompatibleModes": []any{"rgb"}}},
		{"non-string mode", map[string]any{"incompatibleModes": []any{"bilevel", 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewColorModeCommand(tt.params); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestColorModeCommand_ConvertsBilevel(t *testing.T) {
	command, err := NewColorModeCommand(map[string]any{})
	if err != nil {
		t.Fatalf("failed to create command: %v", err)
	}

	out, modified, err := command.Execute(bilevelPage())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !modified {
		t.Fatal("Expected bilevel page to be modified")
	}
	if out.Mode() != imaging.ModeRGB {
		t.Errorf("Expected rgb mode after conversion, got %s", out.Mode())
	}
	rgba, ok := out.Image.(*image.RGBA)
	if !ok {
		t.Fatalf("Expected *image.RGBA, got %T", out.Image)
	}
	if got := rgba.RGBAAt(1, 1); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("Expected white pixel preserved, got %v", got)
	}
}

func TestColorModeCommand_LeavesCompatibleModes(t *testing.T) {
	command, err := NewColorModeCommand(map[string]any{})
	if err != nil {
		t.Fatalf("failed to create command: %v", err)
	}

	page := commandstructure.Page{Number: 2, Image: image.NewGray(image.Rect(0, 0, 3, 3)), BitsPerSample: 8, SamplesPerPixel: 1}
	out, modified, err := command.Execute(page)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if modified {
		t.Error("Expected 8-bit gray page to pass through")
	}
	if out.Image != page.Image {
		t.Error("Expected the same image instance to be returned")
	}
}

func TestColorModeCommand_ConfiguredPaletted(t *testing.T) {
	command, err := NewColorModeCommand(map[string]any{"incompatibleModes": []any{"bilevel", "paletted"}})
	if err != nil {
		t.Fatalf("failed to create command: %v", err)
	}

	palette := color.Palette{color.Black, color.White}
	page := commandstructure.Page{Number: 1, Image: image.NewPaletted(image.Rect(0, 0, 2, 2), palette), BitsPerSample: 8}
	_, modified, err := command.Execute(page)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !modified {
		t.Error("Expected paletted page to be converted when configured as incompatible")
	}
}

func resizeCanvas(t *testing.T, width, height int) image.Image {
	t.Helper()
	return image.NewGray(image.Rect(0, 0, width, height))
}
