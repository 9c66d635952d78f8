package commands

import (
	"testing"

	"github.com/jo-hoe/splitpages/internal/backend/commandstructure"
	"github.com/jo-hoe/splitpages/internal/imaging"
)

func TestDefaultRegistry_HasCommands(t *testing.T) {
	expectedCommands := []string{
		"ColorModeCommand",
		"DimensionCommand",
		"ByteSizeCommand",
	}

	for _, cmdName := range expectedCommands {
		if !commandstructure.DefaultRegistry.IsRegistered(cmdName) {
			t.Errorf("Expected %s to be registered in DefaultRegistry", cmdName)
		}
	}
}

func TestDefaultPipeline_BilevelOversizedPage(t *testing.T) {
	configs := []commandstructure.CommandConfig{
		{Name: "ColorModeCommand", Params: map[string]any{}},
		{Name: "DimensionCommand", Params: map[string]any{"maxDimension": 20}},
		{Name: "ByteSizeCommand", Params: map[string]any{}},
	}

	page := bilevelPage()
	page.Image = resizeCanvas(t, 40, 10)

	out, applied := runPipeline(t, page, configs)
	if len(applied) != 2 || applied[0] != "ColorModeCommand" || applied[1] != "DimensionCommand" {
		t.Errorf("Expected color mode and dimension commands applied, got %v", applied)
	}
	if b := out.Image.Bounds(); b.Dx() != 20 || b.Dy() != 5 {
		t.Errorf("Expected 20x5 page, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestDefaultPipeline_ConvertedPageIsMeasuredAsRGB(t *testing.T) {
	// 40x40 RGB is 4800 bytes of pixels, the same page with alpha would be 6400.
	configs := []commandstructure.CommandConfig{
		{Name: "ColorModeCommand", Params: map[string]any{}},
		{Name: "ByteSizeCommand", Params: map[string]any{"maxBytes": 5400}},
	}

	page := bilevelPage()
	page.Image = resizeCanvas(t, 40, 40)

	out, applied := runPipeline(t, page, configs)
	if len(applied) != 1 || applied[0] != "ColorModeCommand" {
		t.Errorf("Expected only the color mode command applied, got %v", applied)
	}
	if b := out.Image.Bounds(); b.Dx() != 40 || b.Dy() != 40 {
		t.Errorf("Expected the converted page to fit without resizing, got %dx%d", b.Dx(), b.Dy())
	}
	if out.Mode() != imaging.ModeRGB {
		t.Errorf("Expected rgb page, got %s", out.Mode())
	}
}

func runPipeline(t *testing.T, page commandstructure.Page, configs []commandstructure.CommandConfig) (commandstructure.Page, []string) {
	t.Helper()
	invoker, err := commandstructure.NewCommandInvokerFromConfig(commandstructure.DefaultRegistry, configs)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	out, applied, err := invoker.Execute(page)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	return out, applied
}
