package pstiff

import (
	"errors"
	"image"
)

var (
	// ErrInvalidLayer reports layer input the encoder cannot represent.
	ErrInvalidLayer = errors.New("invalid layer")
	// ErrEncoding reports a failure while serializing the layer stack.
	ErrEncoding = errors.New("encoding failed")
)

// Layer is one named raster placed on the canvas. Layers stack in insertion
// order, later layers above earlier ones.
type Layer struct {
	Image   image.Image
	Offset  image.Point // top-left corner of the layer in canvas coordinates
	Name    string
	Opacity uint8
	Hidden  bool
}

// Rect returns the layer rectangle in canvas coordinates.
func (l Layer) Rect() image.Rectangle {
	b := l.Image.Bounds()

	return b.Sub(b.Min).Add(l.Offset)
}

// Options controls builder behavior.
type Options struct {
	// AutoCanvas adopts the canvas size from the first added layer,
	// allowing New to be called with zero dimensions.
	AutoCanvas bool
	// Reduced writes a reduced-resolution second page for viewers that want
	// a cheap preview.
	Reduced bool
	// ReducedSize caps the longest side of the reduced page, 256 by default.
	ReducedSize int
	// Encoder overrides the Photoshop resource serializer.
	Encoder SourceDataEncoder
	// Software overrides the TIFF Software tag.
	Software string
}

// LayerOptions controls a single AddLayer call.
type LayerOptions struct {
	Offset  image.Point
	Name    string
	Opacity uint8
	Hidden  bool
}

// SourceDataEncoder serializes the accumulated layer stack into the payload
// of the ImageSourceData TIFF tag.
type SourceDataEncoder interface {
	EncodeSourceData(canvas image.Rectangle, layers []Layer) ([]byte, error)
}
