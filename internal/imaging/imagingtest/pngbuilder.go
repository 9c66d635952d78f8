package imagingtest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
)

// BilevelPNG writes the page as a 1-bit grayscale PNG. image/png only writes 8-bit gray.
func BilevelPNG(page PageSpec) []byte {
	page.Kind = Bilevel
	rowBytes := (page.Width + 7) / 8
	pix := pagePixels(page)

	var raw bytes.Buffer
	zw := zlib.NewWriter(&raw)
	for y := 0; y < page.Height; y++ {
		_, _ = zw.Write([]byte{0})
		_, _ = zw.Write(pix[y*rowBytes : (y+1)*rowBytes])
	}
	_ = zw.Close()

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(page.Width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(page.Height))
	ihdr[8] = 1 // bit depth
	ihdr[9] = 0 // grayscale

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	writeChunk(&buf, "IHDR", ihdr)
	writeChunk(&buf, "IDAT", raw.Bytes())
	writeChunk(&buf, "IEND", nil)
	return buf.Bytes()
}

func writeChunk(buf *bytes.Buffer, typ string, data []byte) {
	_ = binary.Write(buf, binary.BigEndian, uint32(len(data)))
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	buf.WriteString(typ)
	buf.Write(data)
	_ = binary.Write(buf, binary.BigEndian, crc.Sum32())
}
