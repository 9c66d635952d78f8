package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	tagBitsPerSample   = 258
	tagPhotometric     = 262
	tagSamplesPerPixel = 277

	typeShort = 3
	typeLong  = 4

	ifdEntrySize = 12
)

var (
	leHeader = []byte("II\x2a\x00")
	beHeader = []byte("MM\x00\x2a")
)

// ErrMalformedTIFF is returned when the IFD chain of a TIFF file cannot be walked.
var ErrMalformedTIFF = errors.New("malformed tiff")

// ifd describes one image file directory of a TIFF file.
type ifd struct {
	offset          uint32
	bitsPerSample   int
	samplesPerPixel int
	photometric     int
}

// isTIFF reports whether data starts with a classic (non-BigTIFF) TIFF header.
func isTIFF(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	return bytes.Equal(data[:4], leHeader) || bytes.Equal(data[:4], beHeader)
}

func byteOrder(data []byte) binary.ByteOrder {
	if data[0] == 'M' {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// walkIFDs follows the IFD chain starting at the header and returns one entry per page.
func walkIFDs(data []byte, maxPages int) ([]ifd, error) {
	if !isTIFF(data) {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedTIFF)
	}
	order := byteOrder(data)
	next := order.Uint32(data[4:8])
	seen := make(map[uint32]bool)

	var pages []ifd
	for next != 0 {
		if seen[next] {
			return nil, fmt.Errorf("%w: ifd chain loops at offset %d", ErrMalformedTIFF, next)
		}
		seen[next] = true

		if maxPages > 0 && len(pages) >= maxPages {
			return nil, fmt.Errorf("%w: more than %d pages", ErrMalformedTIFF, maxPages)
		}

		page, following, err := readIFD(data, order, next)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
		next = following
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no image directories", ErrMalformedTIFF)
	}
	return pages, nil
}

func readIFD(data []byte, order binary.ByteOrder, offset uint32) (ifd, uint32, error) {
	if offset < 8 || uint64(offset)+2 > uint64(len(data)) {
		return ifd{}, 0, fmt.Errorf("%w: ifd offset %d out of range", ErrMalformedTIFF, offset)
	}
	start := int(offset)
	count := int(order.Uint16(data[start : start+2]))
	end := start + 2 + count*ifdEntrySize
	if end+4 > len(data) {
		return ifd{}, 0, fmt.Errorf("%w: ifd at offset %d truncated", ErrMalformedTIFF, offset)
	}

	page := ifd{offset: offset, bitsPerSample: 1, samplesPerPixel: 1}
	for i := 0; i < count; i++ {
		entry := data[start+2+i*ifdEntrySize : start+2+(i+1)*ifdEntrySize]
		tag := order.Uint16(entry[0:2])
		switch tag {
		case tagBitsPerSample:
			page.bitsPerSample = firstValue(data, order, entry)
		case tagSamplesPerPixel:
			page.samplesPerPixel = firstValue(data, order, entry)
		case tagPhotometric:
			page.photometric = firstValue(data, order, entry)
		}
	}

	return page, order.Uint32(data[end : end+4]), nil
}

// firstValue returns the first SHORT or LONG value of an entry, following the value offset
// when the values do not fit inline.
func firstValue(data []byte, order binary.ByteOrder, entry []byte) int {
	typ := order.Uint16(entry[2:4])
	n := order.Uint32(entry[4:8])
	value := entry[8:12]

	switch typ {
	case typeShort:
		if n > 2 {
			field := outOfLine(data, order.Uint32(value), 2)
			if field == nil {
				return 0
			}
			return int(order.Uint16(field))
		}
		return int(order.Uint16(value[0:2]))
	case typeLong:
		if n > 1 {
			field := outOfLine(data, order.Uint32(value), 4)
			if field == nil {
				return 0
			}
			return int(order.Uint32(field))
		}
		return int(order.Uint32(value))
	}
	return 0
}

// outOfLine returns size bytes at off, or nil when they lie past the end of data. The
// comparison is done in uint64 so large offsets cannot wrap on 32-bit platforms.
func outOfLine(data []byte, off uint32, size int) []byte {
	end := uint64(off) + uint64(size)
	if end > uint64(len(data)) {
		return nil
	}
	return data[off:end]
}

// pageReader serves the file with its header pointing at a single IFD, so a
// single-image decoder reads that page. Strip offsets are absolute and stay valid.
type pageReader struct {
	data   []byte
	header [8]byte
	pos    int64
}

func newPageReader(data []byte, offset uint32) *pageReader {
	r := &pageReader{data: data}
	copy(r.header[:], data[:8])
	byteOrder(data).PutUint32(r.header[4:8], offset)
	return r
}

func (r *pageReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	for i := off; i < int64(len(r.header)) && i < off+int64(n); i++ {
		p[i-off] = r.header[i]
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (r *pageReader) Read(p []byte) (int, error) {
	n, err := r.ReadAt(p, r.pos)
	r.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}
