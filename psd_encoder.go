package pstiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"unicode/utf16"

	"github.com/klauspost/compress/zlib"
)

// PhotoshopEncoder writes the Adobe Photoshop Document Data Block that
// Photoshop uses to store editable layers inside TIFF files. The zero value
// writes little-endian 32-bit resources, which is what Photoshop itself
// produces on little-endian hosts.
type PhotoshopEncoder struct {
	// BigEndian switches the resource byte order. The TIFF container stays
	// little-endian either way.
	BigEndian bool
}

func (e *PhotoshopEncoder) order() binary.ByteOrder {
	if e.BigEndian {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// EncodeSourceData serializes the layer stack into the ImageSourceData tag
// payload: the layer info block followed by the user mask, patterns and
// filter mask blocks of a flattened Photoshop document.
func (e *PhotoshopEncoder) EncodeSourceData(canvas image.Rectangle, layers []Layer) ([]byte, error) {
	if canvas.Empty() {
		return nil, errors.New("empty canvas")
	}

	order := e.order()

	layerInfo, err := encodeLayerInfo(order, layers)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer

	out.WriteString(psdHeader)
	writeBlock(&out, order, keyLayerInfo, layerInfo)
	writeBlock(&out, order, keyUserMask, encodeUserMask(order))
	writeBlock(&out, order, keyPatterns, nil)
	writeBlock(&out, order, keyFilterMask, encodeFilterMask(order))

	return out.Bytes(), nil
}

// writeBlock writes one signed resource block, padded to 4 bytes.
func writeBlock(out *bytes.Buffer, order binary.ByteOrder, key uint32, data []byte) {
	putUint32(out, order, sigPhotoshop)
	putUint32(out, order, key)
	putUint32(out, order, uint32(len(data)))
	out.Write(data)
	pad(out, 4)
}

// encodeLayerInfo writes the layer count, the layer records and the
// channel image data of the Layr block.
func encodeLayerInfo(order binary.ByteOrder, layers []Layer) ([]byte, error) {
	var out bytes.Buffer

	// Positive count: the merged composite carries no transparency channel.
	putUint16(&out, order, uint16(len(layers)))

	channelIDs := []int{channelTransparency, channelRed, channelGreen, channelBlue}
	planes := map[int]int{channelTransparency: 3, channelRed: 0, channelGreen: 1, channelBlue: 2}

	channelData := make([][][]byte, len(layers))

	for i, l := range layers {
		img := toNRGBA(l.Image)
		r := l.Rect()

		putUint32(&out, order, uint32(int32(r.Min.Y))) // top
		putUint32(&out, order, uint32(int32(r.Min.X))) // left
		putUint32(&out, order, uint32(int32(r.Max.Y))) // bottom
		putUint32(&out, order, uint32(int32(r.Max.X))) // right

		putUint16(&out, order, uint16(len(channelIDs)))

		for _, id := range channelIDs {
			data, err := compressChannel(img, planes[id])
			if err != nil {
				return nil, err
			}

			channelData[i] = append(channelData[i], data)

			putUint16(&out, order, uint16(int16(id)))
			putUint32(&out, order, uint32(2+len(data))) // includes compression header
		}

		putUint32(&out, order, sigPhotoshop)
		putUint32(&out, order, keyBlendNormal)

		out.WriteByte(l.Opacity)
		out.WriteByte(0) // clipping: base

		flags := byte(flagTransparencyProtected | flagPhotoshop5)
		if l.Hidden {
			flags |= flagLayerHidden
		}

		out.WriteByte(flags)
		out.WriteByte(0) // filler

		extra := encodeLayerExtra(order, l.Name)
		putUint32(&out, order, uint32(len(extra)))
		out.Write(extra)
	}

	for _, perLayer := range channelData {
		for _, data := range perLayer {
			putUint16(&out, order, compressionZipPrediction)
			out.Write(data)
		}
	}

	pad(&out, 4)

	return out.Bytes(), nil
}

// encodeLayerExtra writes the extra data section of one layer record: empty
// mask and blending ranges, the Pascal name and the unicode name info block.
func encodeLayerExtra(order binary.ByteOrder, name string) []byte {
	var out bytes.Buffer

	putUint32(&out, order, 0) // no layer mask
	putUint32(&out, order, 0) // no blending ranges

	writePascalString(&out, name)

	uni := encodeUnicodeString(order, name)
	putUint32(&out, order, sigPhotoshop)
	putUint32(&out, order, keyUnicodeName)
	putUint32(&out, order, uint32(len(uni)))
	out.Write(uni)
	pad(&out, 4)

	return out.Bytes()
}

// writePascalString writes a length-prefixed name, truncated to 255 bytes
// and padded so length byte plus data fill a multiple of 4.
func writePascalString(out *bytes.Buffer, s string) {
	b := []byte(s)
	if len(b) > 255 {
		b = b[:255]
	}

	out.WriteByte(byte(len(b)))
	out.Write(b)

	for n := 1 + len(b); n%4 != 0; n++ {
		out.WriteByte(0)
	}
}

// encodeUnicodeString writes a UTF-16 string prefixed with its code unit
// count.
func encodeUnicodeString(order binary.ByteOrder, s string) []byte {
	units := utf16.Encode([]rune(s))

	var out bytes.Buffer

	putUint32(&out, order, uint32(len(units)))

	for _, u := range units {
		putUint16(&out, order, u)
	}

	return out.Bytes()
}

// encodeUserMask writes the LMsk block: the user mask color of the flattened
// composite, pure red at 50% opacity as in documents saved by Photoshop.
func encodeUserMask(order binary.ByteOrder) []byte {
	var out bytes.Buffer

	putUint16(&out, order, colorSpaceRGB)
	putUint16(&out, order, 65535)
	putUint16(&out, order, 0)
	putUint16(&out, order, 0)
	putUint16(&out, order, 0)
	putUint16(&out, order, 50) // opacity
	out.WriteByte(128)         // flag
	out.WriteByte(0)           // padding

	return out.Bytes()
}

// encodeFilterMask writes the FMsk block: color structure plus opacity.
func encodeFilterMask(order binary.ByteOrder) []byte {
	var out bytes.Buffer

	putUint16(&out, order, colorSpaceRGB)
	putUint16(&out, order, 65535)
	putUint16(&out, order, 0)
	putUint16(&out, order, 0)
	putUint16(&out, order, 0)
	putUint16(&out, order, 50) // opacity

	return out.Bytes()
}

// compressChannel deflates one channel plane with left-delta prediction, the
// ZIP-with-prediction method Photoshop uses for 8-bit channels.
func compressChannel(img *image.NRGBA, plane int) ([]byte, error) {
	b := img.Bounds()
	w := b.Dx()
	row := make([]byte, w)

	var buf bytes.Buffer

	zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, err
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := img.PixOffset(b.Min.X, y) + plane
		prev := byte(0)

		for x := 0; x < w; x++ {
			v := img.Pix[i]
			row[x] = v - prev
			prev = v
			i += 4
		}

		if _, err := zw.Write(row); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
