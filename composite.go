package pstiff

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/nfnt/resize"
)

// flatten renders the layer stack onto a transparent canvas in insertion
// order, later layers above earlier ones. Hidden layers are skipped and
// areas outside the canvas are clipped.
func flatten(canvas image.Rectangle, layers []Layer) *image.NRGBA {
	dst := image.NewNRGBA(canvas)

	for _, l := range layers {
		if l.Hidden {
			continue
		}

		r := l.Rect()

		if l.Opacity < 0xFF {
			mask := image.NewUniform(color.Alpha{A: l.Opacity})
			draw.DrawMask(dst, r, l.Image, l.Image.Bounds().Min, mask, image.Point{}, draw.Over)

			continue
		}

		draw.Draw(dst, r, l.Image, l.Image.Bounds().Min, draw.Over)
	}

	return dst
}

// reducedPage downscales the composite so its longest side is at most max
// pixels. A composite already within the limit is reused as is.
func reducedPage(img *image.NRGBA, max int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= max && b.Dy() <= max {
		return img
	}

	var scaled image.Image
	if b.Dx() >= b.Dy() {
		scaled = resize.Resize(uint(max), 0, img, resize.Lanczos3)
	} else {
		scaled = resize.Resize(0, uint(max), img, resize.Lanczos3)
	}

	if m, ok := scaled.(*image.NRGBA); ok {
		return m
	}

	out := image.NewNRGBA(image.Rect(0, 0, scaled.Bounds().Dx(), scaled.Bounds().Dy()))
	draw.Draw(out, out.Bounds(), scaled, scaled.Bounds().Min, draw.Src)

	return out
}

// toNRGBA returns img as 8-bit RGBA with unassociated alpha and bounds
// normalized to the origin, copying only when a conversion is needed.
func toNRGBA(img image.Image) *image.NRGBA {
	if m, ok := img.(*image.NRGBA); ok && m.Bounds().Min == (image.Point{}) {
		return m
	}

	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	return dst
}
