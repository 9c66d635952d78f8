package imaging

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"math"
)

const (
	tagImageWidth          = 256
	tagImageLength         = 257
	tagCompression         = 259
	tagStripOffsets        = 273
	tagRowsPerStrip        = 278
	tagStripByteCounts     = 279
	tagPlanarConfig        = 284
	tagPredictor           = 317
	tiffCompressionNone    = 1
	tiffCompressionDeflate = 8
	photometricRGB         = 2
	predictorHorizontal    = 2

	// rgbStripBytes is the target size of one uncompressed strip.
	rgbStripBytes = 64 << 10
)

type dirEntry struct {
	tag    uint16
	typ    uint16
	values []uint32
}

func (e dirEntry) size() int {
	if e.typ == typeShort {
		return 2 * len(e.values)
	}
	return 4 * len(e.values)
}

func (e dirEntry) put(dst []byte, order binary.ByteOrder) {
	for i, v := range e.values {
		if e.typ == typeShort {
			order.PutUint16(dst[2*i:], uint16(v))
		} else {
			order.PutUint32(dst[4*i:], v)
		}
	}
}

// encodeRGB writes an opaque image as an 8-bit TIFF with three samples per pixel and no
// alpha. tiff.Encode always stores RGBA input with an extra alpha sample.
func encodeRGB(img image.Image, deflate bool) ([]byte, error) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	rowBytes := width * 3
	rowsPerStrip := max(1, rgbStripBytes/max(rowBytes, 1))
	stripCount := (height + rowsPerStrip - 1) / rowsPerStrip

	strips := make([][]byte, stripCount)
	errs := make([]error, stripCount)
	parallelFor(stripCount, func(s int) {
		y0 := s * rowsPerStrip
		y1 := min(y0+rowsPerStrip, height)
		raw := make([]byte, (y1-y0)*rowBytes)
		for y := y0; y < y1; y++ {
			row := raw[(y-y0)*rowBytes : (y-y0+1)*rowBytes]
			rgbRow(row, img, b.Min.Y+y)
			if deflate {
				for i := len(row) - 1; i >= 3; i-- {
					row[i] -= row[i-3]
				}
			}
		}
		if !deflate {
			strips[s] = raw
			return
		}
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			errs[s] = err
			return
		}
		if err := zw.Close(); err != nil {
			errs[s] = err
			return
		}
		strips[s] = buf.Bytes()
	})
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("failed to compress strip: %w", err)
		}
	}

	compression := uint32(tiffCompressionNone)
	if deflate {
		compression = tiffCompressionDeflate
	}
	offsets := make([]uint32, stripCount)
	counts := make([]uint32, stripCount)
	entries := []dirEntry{
		{tagImageWidth, typeLong, []uint32{uint32(width)}},
		{tagImageLength, typeLong, []uint32{uint32(height)}},
		{tagBitsPerSample, typeShort, []uint32{8, 8, 8}},
		{tagCompression, typeShort, []uint32{compression}},
		{tagPhotometric, typeShort, []uint32{photometricRGB}},
		{tagStripOffsets, typeLong, offsets},
		{tagSamplesPerPixel, typeShort, []uint32{3}},
		{tagRowsPerStrip, typeLong, []uint32{uint32(rowsPerStrip)}},
		{tagStripByteCounts, typeLong, counts},
		{tagPlanarConfig, typeShort, []uint32{1}},
	}
	if deflate {
		entries = append(entries, dirEntry{tagPredictor, typeShort, []uint32{predictorHorizontal}})
	}

	dirSize := 2 + len(entries)*ifdEntrySize + 4
	extra := 0
	for _, e := range entries {
		if e.size() > 4 {
			extra += e.size()
		}
	}
	total := 8 + dirSize + extra
	for i, strip := range strips {
		offsets[i] = uint32(total)
		counts[i] = uint32(len(strip))
		total += len(strip)
		if int64(total) > math.MaxUint32 {
			return nil, fmt.Errorf("failed to encode tiff: %dx%d page exceeds 4 GiB", width, height)
		}
	}

	order := binary.LittleEndian
	out := make([]byte, total)
	copy(out, leHeader)
	order.PutUint32(out[4:8], 8)
	order.PutUint16(out[8:10], uint16(len(entries)))

	extraPos := 8 + dirSize
	for i, e := range entries {
		field := out[10+i*ifdEntrySize : 10+(i+1)*ifdEntrySize]
		order.PutUint16(field[0:2], e.tag)
		order.PutUint16(field[2:4], e.typ)
		order.PutUint32(field[4:8], uint32(len(e.values)))
		if e.size() <= 4 {
			e.put(field[8:12], order)
			continue
		}
		order.PutUint32(field[8:12], uint32(extraPos))
		e.put(out[extraPos:], order)
		extraPos += e.size()
	}
	// The next-IFD pointer after the entries stays zero: single page.

	for i, strip := range strips {
		copy(out[offsets[i]:], strip)
	}
	return out, nil
}

func rgbRow(dst []byte, img image.Image, y int) {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok {
		src := rgba.Pix[rgba.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			copy(dst[x*3:x*3+3], src[x*4:x*4+3])
		}
		return
	}
	for x := 0; x < b.Dx(); x++ {
		c := color.RGBAModel.Convert(img.At(b.Min.X+x, y)).(color.RGBA)
		dst[x*3], dst[x*3+1], dst[x*3+2] = c.R, c.G, c.B
	}
}
