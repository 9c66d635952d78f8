package commands

import (
	"image"
	"testing"

	"github.com/jo-hoe/splitpages/internal/backend/commandstructure"
)

func TestNewDimensionCommand(t *testing.T) {
	command, err := NewDimensionCommand(map[string]any{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := command.(*DimensionCommand).params.MaxDimension; got != DefaultMaxDimension {
		t.Errorf("Expected default %d, got %d", DefaultMaxDimension, got)
	}

	invalid := []map[string]any{
		{"maxDimension": 0},
		{"maxDimension": -5},
		{"maxDimension": 99.5},
		{"maxDimension": "10000"},
	}
	for _, params := range invalid {
		if _, err := NewDimensionCommand(params); err == nil {
			t.Errorf("Expected error for %v", params)
		}
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		limit         int
		wantW, wantH  int
		wantOversized bool
	}{
		{"within", 100, 80, 100, 100, 80, false},
		{"wide", 12000, 9000, 10000, 10000, 7500, true},
		{"tall", 5000, 20000, 10000, 2500, 10000, true},
		{"truncates", 300, 199, 200, 200, 132, true},
		{"never zero", 10000, 1, 100, 100, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, oversized := fitWithin(tt.width, tt.height, tt.limit)
			if w != tt.wantW || h != tt.wantH || oversized != tt.wantOversized {
				t.Errorf("fitWithin(%d, %d, %d) = %d, %d, %v; want %d, %d, %v",
					tt.width, tt.height, tt.limit, w, h, oversized, tt.wantW, tt.wantH, tt.wantOversized)
			}
		})
	}
}

func TestDimensionCommand_Execute(t *testing.T) {
	command, err := NewDimensionCommand(map[string]any{"maxDimension": 50})
	if err != nil {
		t.Fatalf("failed to create command: %v", err)
	}

	t.Run("oversized page is resized", func(t *testing.T) {
		page := commandstructure.Page{Number: 1, Image: image.NewGray(image.Rect(0, 0, 200, 100))}
		out, modified, err := command.Execute(page)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if !modified {
			t.Fatal("Expected page to be modified")
		}
		if b := out.Image.Bounds(); b.Dx() != 50 || b.Dy() != 25 {
			t.Errorf("Expected 50x25, got %dx%d", b.Dx(), b.Dy())
		}
	})

	t.Run("page at the limit is untouched", func(t *testing.T) {
		page := commandstructure.Page{Number: 1, Image: image.NewGray(image.Rect(0, 0, 50, 50))}
		out, modified, err := command.Execute(page)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if modified || out.Image != page.Image {
			t.Error("Expected page at the limit to pass through")
		}
	})
}
