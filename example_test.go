package pstiff_test

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/vearutop/pstiff"
)

func ExampleBuilder() {
	background := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	draw.Draw(background, background.Bounds(), image.NewUniform(color.NRGBA{R: 255, A: 255}), image.Point{}, draw.Src)

	decoration := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	draw.Draw(decoration, decoration.Bounds(), image.NewUniform(color.NRGBA{B: 255, A: 255}), image.Point{}, draw.Src)

	b, err := pstiff.New(100, 100)
	if err != nil {
		fmt.Println(err)

		return
	}

	_ = b.AddLayer(background, func(o *pstiff.LayerOptions) { o.Name = "background" })
	_ = b.AddLayer(decoration, func(o *pstiff.LayerOptions) {
		o.Name = "decoration 1"
		o.Offset = image.Pt(50, 50)
	})

	var buf bytes.Buffer
	if err := b.Encode(&buf); err != nil {
		fmt.Println(err)

		return
	}

	info, err := pstiff.Info(buf.Bytes())
	if err != nil {
		fmt.Println(err)

		return
	}

	for _, l := range info.Layers {
		fmt.Printf("%s at (%d,%d)\n", l.Name, l.Rect.Min.X, l.Rect.Min.Y)
	}

	// Output:
	// background at (0,0)
	// decoration 1 at (50,50)
}

func ExampleBuilder_Write() {
	b, err := pstiff.New(0, 0, func(o *pstiff.Options) { o.AutoCanvas = true })
	if err != nil {
		fmt.Println(err)

		return
	}

	_ = b.AddLayer(image.NewNRGBA(image.Rect(0, 0, 640, 480)))

	_ = b.Write("out.tiff")
}
