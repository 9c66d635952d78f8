package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxPixels matches the decompression bomb ceiling used by the pipeline.
	DefaultMaxPixels = 1_000_000_000
	// DefaultMaxPages bounds IFD chains.
	DefaultMaxPages = 10_000
)

var (
	ErrUnsupportedImage = errors.New("unsupported image data")
	ErrTooManyPixels    = errors.New("image exceeds pixel limit")
)

type OpenOptions struct {
	MaxPixels int
	MaxPages  int
}

// Page is one decoded page of a document.
type Page struct {
	Number          int
	Image           image.Image
	BitsPerSample   int
	SamplesPerPixel int
	Photometric     int
}

// Mode returns the color mode of the page.
func (p Page) Mode() ColorMode {
	return ColorModeOf(p.Image, p.BitsPerSample, p.SamplesPerPixel)
}

// Document is an opened image file. Pages are decoded lazily so only one page is
// held in memory at a time.
type Document struct {
	data   []byte
	format string
	ifds   []ifd
	single image.Image
	opts   OpenOptions

	// sample layout of a single image, when its header states one
	bitsPerSample   int
	samplesPerPixel int
}

// Open inspects data and prepares it for page-by-page decoding. TIFF files are detected by
// their header, regardless of the name they were uploaded under.
func Open(data []byte, opts OpenOptions) (*Document, error) {
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}

	if isTIFF(data) {
		ifds, err := walkIFDs(data, opts.MaxPages)
		if err != nil {
			return nil, err
		}
		slog.Debug("imaging: opened tiff", "pages", len(ifds), "size_bytes", len(data))
		return &Document{data: data, format: "tiff", ifds: ifds, opts: opts}, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if err := checkPixels(cfg.Width, cfg.Height, opts.MaxPixels); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", format, err)
	}
	doc := &Document{data: data, format: format, single: img, opts: opts}
	if format == "png" {
		doc.bitsPerSample, doc.samplesPerPixel = pngLayout(data)
	}
	slog.Debug("imaging: opened single image", "format", format, "width", cfg.Width, "height", cfg.Height,
		"bits_per_sample", doc.bitsPerSample)
	return doc, nil
}

// Format returns the detected container format (tiff, jpeg, png, ...).
func (d *Document) Format() string {
	return d.format
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	if d.single != nil {
		return 1
	}
	return len(d.ifds)
}

// Page decodes the page with the given 1-based number.
func (d *Document) Page(number int) (Page, error) {
	if number < 1 || number > d.PageCount() {
		return Page{}, fmt.Errorf("page %d out of range 1..%d", number, d.PageCount())
	}
	if d.single != nil {
		return Page{
			Number:          1,
			Image:           d.single,
			BitsPerSample:   d.bitsPerSample,
			SamplesPerPixel: d.samplesPerPixel,
		}, nil
	}

	dir := d.ifds[number-1]
	cfg, err := tiff.DecodeConfig(newPageReader(d.data, dir.offset))
	if err != nil {
		return Page{}, fmt.Errorf("failed to read page %d header: %w", number, err)
	}
	if err := checkPixels(cfg.Width, cfg.Height, d.opts.MaxPixels); err != nil {
		return Page{}, fmt.Errorf("page %d: %w", number, err)
	}

	img, err := tiff.Decode(newPageReader(d.data, dir.offset))
	if err != nil {
		return Page{}, fmt.Errorf("failed to decode page %d: %w", number, err)
	}
	return Page{
		Number:          number,
		Image:           img,
		BitsPerSample:   dir.bitsPerSample,
		SamplesPerPixel: dir.samplesPerPixel,
		Photometric:     dir.photometric,
	}, nil
}

func checkPixels(width, height, maxPixels int) error {
	if int64(width)*int64(height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d > %d", ErrTooManyPixels, width, height, maxPixels)
	}
	return nil
}

// pngLayout reads bit depth and samples per pixel from the IHDR chunk. image/png widens
// 1-bit grayscale to 8-bit, so the header is the only place the bit depth survives.
// Palette images report zero and are classified by their decoded type.
func pngLayout(data []byte) (int, int) {
	if len(data) < 26 || string(data[12:16]) != "IHDR" {
		return 0, 0
	}
	depth := int(data[24])
	switch data[25] {
	case 0:
		return depth, 1
	case 2:
		return depth, 3
	case 4:
		return depth, 2
	case 6:
		return depth, 4
	}
	return 0, 0
}
