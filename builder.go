package pstiff

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
)

const (
	defaultReducedSize = 256
	defaultSoftware    = "pstiff"
)

// Builder accumulates named layers against a fixed canvas and serializes them
// as a layered TIFF. The zero value is not usable, call New.
type Builder struct {
	canvas image.Rectangle
	layers []Layer
	opt    Options
}

// New returns a Builder for a canvas of the given size. Dimensions must be
// positive unless the AutoCanvas option is set, in which case they may be
// zero and the canvas is adopted from the first added layer.
func New(width, height int, options ...func(o *Options)) (*Builder, error) {
	opt := Options{
		ReducedSize: defaultReducedSize,
		Software:    defaultSoftware,
	}

	for _, applyOpt := range options {
		applyOpt(&opt)
	}

	if opt.Encoder == nil {
		opt.Encoder = &PhotoshopEncoder{}
	}

	if opt.ReducedSize <= 0 {
		opt.ReducedSize = defaultReducedSize
	}

	if width <= 0 || height <= 0 {
		if !opt.AutoCanvas {
			return nil, errors.New("canvas dimensions must be positive")
		}

		width, height = 0, 0
	}

	return &Builder{canvas: image.Rect(0, 0, width, height), opt: opt}, nil
}

// AddLayer appends one layer to the stack. The default placement is the
// canvas origin and the default name is "layer_N" with N the insertion index.
// Layers may extend beyond the canvas, including at negative offsets; only
// the flattened composite is clipped, the layer record keeps its full extent.
func (b *Builder) AddLayer(img image.Image, options ...func(o *LayerOptions)) error {
	opt := LayerOptions{Opacity: 0xFF}

	for _, applyOpt := range options {
		applyOpt(&opt)
	}

	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidLayer)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return fmt.Errorf("%w: empty bounds", ErrInvalidLayer)
	}

	if b.canvas.Empty() {
		if !b.opt.AutoCanvas {
			return fmt.Errorf("%w: canvas not set", ErrInvalidLayer)
		}

		b.canvas = image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	}

	name := opt.Name
	if name == "" {
		name = fmt.Sprintf("layer_%d", len(b.layers))
	}

	b.layers = append(b.layers, Layer{
		Image:   img,
		Offset:  opt.Offset,
		Name:    name,
		Opacity: opt.Opacity,
		Hidden:  opt.Hidden,
	})

	return nil
}

// Canvas returns the canvas rectangle, which is empty until the first layer
// is added when AutoCanvas is in effect.
func (b *Builder) Canvas() image.Rectangle {
	return b.canvas
}

// Layers returns a copy of the accumulated layer stack in insertion order.
func (b *Builder) Layers() []Layer {
	return append([]Layer(nil), b.layers...)
}

// Encode serializes the accumulated stack as a layered TIFF. A stack with no
// layers produces a valid TIFF with a transparent canvas and an empty layer
// list. The builder is not consumed, encoding the same state twice produces
// identical bytes.
func (b *Builder) Encode(w io.Writer) error {
	if b.canvas.Empty() {
		return errors.New("canvas not set and no layers added")
	}

	sourceData, err := b.opt.Encoder.EncodeSourceData(b.canvas, b.layers)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	composite := flatten(b.canvas, b.layers)

	enc := tiffEncoder{
		composite:  composite,
		sourceData: sourceData,
		icc:        srgbProfile(),
		software:   b.opt.Software,
	}

	if b.opt.Reduced {
		enc.reduced = reducedPage(composite, b.opt.ReducedSize)
	}

	data, err := enc.bytes()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	if _, err := w.Write(data); err != nil {
		return err
	}

	return nil
}

// Write serializes the accumulated stack to a file. On encoding failure the
// partially written file is removed.
func (b *Builder) Write(path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}

	if err := b.Encode(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)

		return err
	}

	return f.Close()
}
