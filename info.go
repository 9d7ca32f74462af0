package pstiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"unicode/utf16"
)

// LayerRecord describes one embedded Photoshop layer.
type LayerRecord struct {
	Name    string
	Rect    image.Rectangle // canvas coordinates, may extend beyond the canvas
	Opacity uint8
	Hidden  bool
}

// LayerInfo describes a layered TIFF: the canvas page and the stored layer
// stack in bottom-to-top order.
type LayerInfo struct {
	Width  int
	Height int
	Layers []LayerRecord

	// Reduced reports a second, reduced-resolution page.
	Reduced       bool
	ReducedWidth  int
	ReducedHeight int
}

// Info parses a layered TIFF and returns its canvas size and layer records.
// It fails if data is not a TIFF or carries no ImageSourceData resource.
func Info(data []byte) (*LayerInfo, error) {
	order, ifdOffset, err := tiffHeader(data)
	if err != nil {
		return nil, err
	}

	info := &LayerInfo{}

	width, height, sourceData, next, err := parseIFD(data, order, ifdOffset)
	if err != nil {
		return nil, err
	}

	info.Width, info.Height = width, height

	if next != 0 {
		rw, rh, _, _, err := parseIFD(data, order, next)
		if err != nil {
			return nil, err
		}

		info.Reduced = true
		info.ReducedWidth, info.ReducedHeight = rw, rh
	}

	if sourceData == nil {
		return nil, errors.New("no Photoshop layer data found")
	}

	records, _, err := parseSourceData(sourceData)
	if err != nil {
		return nil, err
	}

	info.Layers = records

	return info, nil
}

// InfoFile is like Info for a file on disk.
func InfoFile(path string) (*LayerInfo, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	return Info(data)
}

// IsLayeredTIFF reports whether the stream is a TIFF carrying a Photoshop
// layer resource. The stream is read fully; TIFF directories may live at its
// end.
func IsLayeredTIFF(r io.Reader) (bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return false, err
	}

	if _, err := Info(data); err != nil {
		return false, nil
	}

	return true, nil
}

func tiffHeader(data []byte) (binary.ByteOrder, uint32, error) {
	if len(data) < 8 {
		return nil, 0, errors.New("not a TIFF file")
	}

	var order binary.ByteOrder

	switch string(data[:4]) {
	case tiffLEHeader:
		order = binary.LittleEndian
	case tiffBEHeader:
		order = binary.BigEndian
	default:
		return nil, 0, errors.New("not a TIFF file")
	}

	return order, order.Uint32(data[4:8]), nil
}

// parseIFD walks one IFD and returns the page dimensions, the
// ImageSourceData payload if present, and the offset of the next IFD.
func parseIFD(data []byte, order binary.ByteOrder, offset uint32) (width, height int, sourceData []byte, next uint32, err error) {
	if int(offset)+2 > len(data) {
		return 0, 0, nil, 0, errors.New("truncated IFD")
	}

	count := int(order.Uint16(data[offset:]))
	end := int(offset) + 2 + count*ifdEntryLen

	if end+4 > len(data) {
		return 0, 0, nil, 0, errors.New("truncated IFD")
	}

	for i := 0; i < count; i++ {
		entry := data[int(offset)+2+i*ifdEntryLen:]
		tag := order.Uint16(entry)
		datatype := order.Uint16(entry[2:])
		valueCount := order.Uint32(entry[4:])

		if int(datatype) >= len(dtSizes) || dtSizes[datatype] == 0 {
			continue
		}

		size := valueCount * dtSizes[datatype]

		var value []byte
		if size <= 4 {
			value = entry[8:12]
		} else {
			valueOffset := order.Uint32(entry[8:])
			if int(valueOffset)+int(size) > len(data) {
				return 0, 0, nil, 0, errors.New("IFD value out of bounds")
			}

			value = data[valueOffset : valueOffset+size]
		}

		switch tag {
		case tImageWidth:
			width = int(tagUint(order, datatype, value))
		case tImageLength:
			height = int(tagUint(order, datatype, value))
		case tImageSourceData:
			sourceData = value
		}
	}

	return width, height, sourceData, order.Uint32(data[end:]), nil
}

func tagUint(order binary.ByteOrder, datatype uint16, value []byte) uint32 {
	switch datatype {
	case dtShort:
		return uint32(order.Uint16(value))
	case dtLong:
		return order.Uint32(value)
	default:
		return 0
	}
}

// psdChannel is one stored channel of a layer: its identifier, compression
// method and compressed payload.
type psdChannel struct {
	id     int
	length int // stored length, including the 2-byte compression header
	method uint16
	data   []byte
}

// parseSourceData decodes the Adobe Photoshop Document Data Block and
// returns the layer records with their channel payloads.
func parseSourceData(payload []byte) ([]LayerRecord, [][]psdChannel, error) {
	if len(payload) < len(psdHeader) || string(payload[:len(psdHeader)]) != psdHeader {
		return nil, nil, errors.New("not a Photoshop data block")
	}

	rest := payload[len(psdHeader):]
	if len(rest) < 4 {
		return nil, nil, errors.New("no resource blocks")
	}

	// The block signature reveals the resource byte order.
	var order binary.ByteOrder

	switch string(rest[:4]) {
	case "8BIM":
		order = binary.BigEndian
	case "MIB8":
		order = binary.LittleEndian
	default:
		return nil, nil, errors.New("unknown resource signature")
	}

	pos := 0
	for pos+12 <= len(rest) {
		if order.Uint32(rest[pos:]) != sigPhotoshop {
			return nil, nil, errors.New("misaligned resource block")
		}

		key := order.Uint32(rest[pos+4:])
		length := int(order.Uint32(rest[pos+8:]))
		pos += 12

		if pos+length > len(rest) {
			return nil, nil, errors.New("truncated resource block")
		}

		if key == keyLayerInfo {
			return parseLayerInfo(order, rest[pos:pos+length])
		}

		pos += length + (4-length%4)%4
	}

	return nil, nil, errors.New("no layer info block")
}

func parseLayerInfo(order binary.ByteOrder, data []byte) ([]LayerRecord, [][]psdChannel, error) {
	r := &byteReader{data: data, order: order}

	count := int(r.i16())
	if count < 0 {
		count = -count
	}

	records := make([]LayerRecord, 0, count)
	channels := make([][]psdChannel, 0, count)

	for i := 0; i < count; i++ {
		var rec LayerRecord

		top := int(r.i32())
		left := int(r.i32())
		bottom := int(r.i32())
		right := int(r.i32())
		rec.Rect = image.Rect(left, top, right, bottom)

		channelCount := int(r.u16())
		layerChans := make([]psdChannel, channelCount)

		for c := 0; c < channelCount; c++ {
			layerChans[c].id = int(r.i16())
			layerChans[c].length = int(r.u32())
		}

		if sig := r.u32(); sig != sigPhotoshop && r.err == nil {
			return nil, nil, errors.New("bad blend mode signature")
		}

		r.u32() // blend mode key

		rec.Opacity = r.u8()
		r.u8() // clipping

		flags := r.u8()
		rec.Hidden = flags&flagLayerHidden != 0

		r.u8() // filler

		extraLen := int(r.u32())
		extraEnd := r.pos + extraLen

		rec.Name = parseLayerExtra(r, extraEnd)

		if r.err != nil {
			return nil, nil, fmt.Errorf("layer %d: %w", i, r.err)
		}

		r.pos = extraEnd
		records = append(records, rec)
		channels = append(channels, layerChans)
	}

	// Channel image data follows the records, per layer, per channel.
	for i := range channels {
		for c := range channels[i] {
			channels[i][c].method = r.u16()
			channels[i][c].data = append([]byte(nil), r.bytes(channels[i][c].length-2)...)
		}
	}

	if r.err != nil {
		return nil, nil, r.err
	}

	return records, channels, nil
}

// parseLayerExtra reads the extra data section of a layer record and returns
// the layer name, preferring the unicode name over the Pascal one.
func parseLayerExtra(r *byteReader, end int) string {
	r.skip(int(r.u32())) // layer mask data
	r.skip(int(r.u32())) // blending ranges

	nameLen := int(r.u8())
	name := string(r.bytes(nameLen))
	r.skip((4 - (1+nameLen)%4) % 4)

	for r.err == nil && r.pos+12 <= end {
		sig := r.u32()
		key := r.u32()
		length := int(r.u32())

		if sig != sigPhotoshop {
			break
		}

		if key == keyUnicodeName {
			unitCount := int(r.u32())
			if r.pos+2*unitCount > end {
				r.fail()

				break
			}

			units := make([]uint16, unitCount)
			for i := range units {
				units[i] = r.u16()
			}

			if r.err == nil {
				name = string(utf16.Decode(units))
			}

			break
		}

		r.skip(length + (4-length%4)%4)
	}

	return name
}

// byteReader is a bounds-checked cursor with a sticky error.
type byteReader struct {
	data  []byte
	order binary.ByteOrder
	pos   int
	err   error
}

func (r *byteReader) fail() {
	if r.err == nil {
		r.err = errors.New("unexpected end of data")
	}
}

func (r *byteReader) bytes(n int) []byte {
	if r.err != nil || n < 0 || r.pos+n > len(r.data) {
		r.fail()

		return nil
	}

	b := r.data[r.pos : r.pos+n]
	r.pos += n

	return b
}

func (r *byteReader) skip(n int) {
	r.bytes(n)
}

func (r *byteReader) u8() byte {
	b := r.bytes(1)
	if b == nil {
		return 0
	}

	return b[0]
}

func (r *byteReader) u16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}

	return r.order.Uint16(b)
}

func (r *byteReader) u32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}

	return r.order.Uint32(b)
}

func (r *byteReader) i16() int16 {
	return int16(r.u16())
}

func (r *byteReader) i32() int32 {
	return int32(r.u32())
}
