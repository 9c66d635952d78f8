package imaging

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Resize scales img to width x height with a Catmull-Rom kernel. Gray images stay gray,
// paletted images keep their palette and are scaled nearest-neighbour, everything else
// becomes RGBA.
func Resize(img image.Image, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target dimensions %dx%d", width, height)
	}

	rect := image.Rect(0, 0, width, height)
	if p, ok := img.(*image.Paletted); ok {
		dst := image.NewPaletted(rect, p.Palette)
		draw.NearestNeighbor.Scale(dst, rect, p, p.Bounds(), draw.Src, nil)
		return dst, nil
	}

	var dst draw.Image
	switch img.(type) {
	case *image.Gray:
		dst = image.NewGray(rect)
	case *image.Gray16:
		dst = image.NewGray16(rect)
	default:
		dst = image.NewRGBA(rect)
	}

	draw.CatmullRom.Scale(dst, rect, img, img.Bounds(), draw.Src, nil)
	return dst, nil
}

// ToRGB converts img to an opaque RGBA image. EncodeTIFF stores it without the alpha sample.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if gray, ok := img.(*image.Gray); ok {
		parallelFor(b.Dy(), func(y int) {
			srcRow := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
			dstRow := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()*4]
			for x, v := range srcRow {
				i := x * 4
				dstRow[i] = v
				dstRow[i+1] = v
				dstRow[i+2] = v
				dstRow[i+3] = 0xff
			}
		})
		return dst
	}

	parallelFor(b.Dy(), func(y int) {
		for x := 0; x < b.Dx(); x++ {
			c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			c.A = 0xff
			dst.SetRGBA(x, y, c)
		}
	})
	return dst
}
