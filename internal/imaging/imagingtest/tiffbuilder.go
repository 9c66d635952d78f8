// Package imagingtest builds small uncompressed TIFF files, including multi-page ones,
// for tests. The standard encoders only write single-page files.
package imagingtest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
)

type PageKind int

const (
	Gray8 PageKind = iota
	Bilevel
	RGB
)

// PageSpec describes one page. Fill returns the gray level (or RGB triple) for a pixel;
// for bilevel pages any value >= 128 is white.
type PageSpec struct {
	Kind   PageKind
	Width  int
	Height int
	Fill   func(x, y int) color.RGBA
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	value uint32
}

// BuildTIFF writes the pages as one little-endian TIFF with an IFD per page.
func BuildTIFF(pages ...PageSpec) []byte {
	order := binary.LittleEndian
	var buf bytes.Buffer
	buf.Write([]byte("II\x2a\x00"))
	buf.Write([]byte{0, 0, 0, 0})

	var nextPointer = 4
	for _, page := range pages {
		pix := pagePixels(page)
		stripOffset := buf.Len()
		buf.Write(pix)
		pad(&buf)

		bpsValue := uint32(8)
		samples := uint32(1)
		photometric := uint32(1)
		switch page.Kind {
		case Bilevel:
			bpsValue = 1
		case RGB:
			samples = 3
			photometric = 2
			bpsOffset := buf.Len()
			for i := 0; i < 3; i++ {
				_ = binary.Write(&buf, order, uint16(8))
			}
			pad(&buf)
			bpsValue = uint32(bpsOffset)
		}

		bpsCount := samples
		entries := []entry{
			{256, 4, 1, uint32(page.Width)},
			{257, 4, 1, uint32(page.Height)},
			{258, 3, bpsCount, bpsValue},
			{259, 3, 1, 1},
			{262, 3, 1, photometric},
			{273, 4, 1, uint32(stripOffset)},
			{277, 3, 1, samples},
			{278, 4, 1, uint32(page.Height)},
			{279, 4, 1, uint32(len(pix))},
		}

		ifdOffset := buf.Len()
		patchUint32(&buf, nextPointer, uint32(ifdOffset))

		_ = binary.Write(&buf, order, uint16(len(entries)))
		for _, e := range entries {
			_ = binary.Write(&buf, order, e.tag)
			_ = binary.Write(&buf, order, e.typ)
			_ = binary.Write(&buf, order, e.count)
			if e.typ == 3 && e.count == 1 {
				_ = binary.Write(&buf, order, uint16(e.value))
				_ = binary.Write(&buf, order, uint16(0))
			} else {
				_ = binary.Write(&buf, order, e.value)
			}
		}
		nextPointer = buf.Len()
		_ = binary.Write(&buf, order, uint32(0))
	}
	return buf.Bytes()
}

// Uniform returns a fill function painting every pixel with c.
func Uniform(c color.RGBA) func(x, y int) color.RGBA {
	return func(x, y int) color.RGBA { return c }
}

// Checker returns a fill function alternating black and white pixels.
func Checker() func(x, y int) color.RGBA {
	return func(x, y int) color.RGBA {
		if (x+y)%2 == 0 {
			return color.RGBA{0, 0, 0, 255}
		}
		return color.RGBA{255, 255, 255, 255}
	}
}

// Noise returns a deterministic high-entropy fill, useful to defeat compression.
func Noise(seed uint32) func(x, y int) color.RGBA {
	return func(x, y int) color.RGBA {
		v := uint32(x)*73856093 ^ uint32(y)*19349663 ^ seed*83492791
		v ^= v >> 13
		v *= 0x5bd1e995
		v ^= v >> 15
		return color.RGBA{uint8(v), uint8(v >> 8), uint8(v >> 16), 255}
	}
}

// RGBAImage renders a spec into an in-memory image, handy for comparisons.
func RGBAImage(page PageSpec) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, page.Width, page.Height))
	for y := 0; y < page.Height; y++ {
		for x := 0; x < page.Width; x++ {
			img.SetRGBA(x, y, page.Fill(x, y))
		}
	}
	return img
}

func pagePixels(page PageSpec) []byte {
	switch page.Kind {
	case Bilevel:
		rowBytes := (page.Width + 7) / 8
		pix := make([]byte, rowBytes*page.Height)
		for y := 0; y < page.Height; y++ {
			for x := 0; x < page.Width; x++ {
				if page.Fill(x, y).R >= 128 {
					pix[y*rowBytes+x/8] |= 0x80 >> uint(x%8)
				}
			}
		}
		return pix
	case RGB:
		pix := make([]byte, 0, page.Width*page.Height*3)
		for y := 0; y < page.Height; y++ {
			for x := 0; x < page.Width; x++ {
				c := page.Fill(x, y)
				pix = append(pix, c.R, c.G, c.B)
			}
		}
		return pix
	default:
		pix := make([]byte, 0, page.Width*page.Height)
		for y := 0; y < page.Height; y++ {
			for x := 0; x < page.Width; x++ {
				pix = append(pix, page.Fill(x, y).R)
			}
		}
		return pix
	}
}

func pad(buf *bytes.Buffer) {
	if buf.Len()%2 != 0 {
		buf.WriteByte(0)
	}
}

func patchUint32(buf *bytes.Buffer, at int, v uint32) {
	binary.LittleEndian.PutUint32(buf.Bytes()[at:at+4], v)
}
