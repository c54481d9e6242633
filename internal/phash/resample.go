package phash

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// resample scales img to exactly w×h RGBA pixels.
// Sources that already have the requested size are copied without interpolation.
func resample(img image.Image, w, h int) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// grayscale downsamples img to w×h and returns luminosity values
// (0.299R + 0.587G + 0.114B, rounded) in raster order.
func grayscale(img image.Image, w, h int) []int {
	rgba := resample(img, w, h)
	out := make([]int, w*h)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < w; x++ {
			r := float64(row[x*4])
			g := float64(row[x*4+1])
			b := float64(row[x*4+2])
			out[y*w+x] = int(math.Round(0.299*r + 0.587*g + 0.114*b))
		}
	}
	return out
}

// Thumbnail scales img so that its longer side is at most maxSide pixels.
// Images that already fit are returned as an RGBA copy.
func Thumbnail(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return resample(img, w, h)
	}
	if w >= h {
		h = max(1, h*maxSide/w)
		w = maxSide
	} else {
		w = max(1, w*maxSide/h)
		h = maxSide
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
