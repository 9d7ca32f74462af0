package pstiff

import (
	"bytes"
	"encoding/binary"
	"image"
	"sort"

	"github.com/klauspost/compress/zlib"
)

// The container is always a little-endian classic TIFF laid out as header,
// strip data, then the IFD chain with its pointer area.
const (
	tiffLEHeader = "II\x2A\x00"
	tiffBEHeader = "MM\x00\x2A"

	ifdEntryLen = 12
)

// TIFF data types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtUndefined = 7
)

// Byte size of one value of each data type.
var dtSizes = [...]uint32{0, 1, 1, 2, 4, 8, 1, 1}

// Tags used by the writer.
const (
	tNewSubfileType  = 254
	tImageWidth      = 256
	tImageLength     = 257
	tBitsPerSample   = 258
	tCompression     = 259
	tPhotometric     = 262
	tStripOffsets    = 273
	tSamplesPerPixel = 277
	tRowsPerStrip    = 278
	tStripByteCounts = 279
	tXResolution     = 282
	tYResolution     = 283
	tResolutionUnit  = 296
	tSoftware        = 305
	tExtraSamples    = 338
	tICCProfile      = 34675
	tImageSourceData = 37724
)

const (
	compressionAdobeDeflate = 8
	photometricRGB          = 2
	resolutionPerInch       = 2
	extraSampleUnassociated = 2
	subfileReducedImage     = 1
)

// 72 dpi, stored as 720000/10000 pixels per inch.
var resolution72 = []uint32{720000, 10000}

// ifdEntry is a single IFD entry. Short values live in data; ASCII and
// UNDEFINED payloads are carried verbatim in raw.
type ifdEntry struct {
	tag      int
	datatype int
	data     []uint32
	raw      []byte
}

func (e ifdEntry) count() uint32 {
	if e.raw != nil {
		return uint32(len(e.raw))
	}

	if e.datatype == dtRational {
		return uint32(len(e.data)) / 2
	}

	return uint32(len(e.data))
}

func (e ifdEntry) size() uint32 {
	return e.count() * dtSizes[e.datatype]
}

func (e ifdEntry) putData(order binary.ByteOrder, p []byte) {
	if e.raw != nil {
		copy(p, e.raw)

		return
	}

	for _, d := range e.data {
		switch e.datatype {
		case dtByte:
			p[0] = byte(d)
			p = p[1:]
		case dtShort:
			order.PutUint16(p, uint16(d))
			p = p[2:]
		case dtLong, dtRational:
			order.PutUint32(p, d)
			p = p[4:]
		}
	}
}

// tiffEncoder assembles the final file: the composite page with the
// Photoshop resource and ICC tags, plus an optional reduced page.
type tiffEncoder struct {
	composite  *image.NRGBA
	reduced    *image.NRGBA
	sourceData []byte
	icc        []byte
	software   string
}

func (e *tiffEncoder) bytes() ([]byte, error) {
	order := binary.ByteOrder(binary.LittleEndian)

	strip0, err := deflateStrip(e.composite)
	if err != nil {
		return nil, err
	}

	strip0Len := uint32(len(strip0))
	strip0 = padEven(strip0)

	offset := uint32(8)
	strip0Offset := offset
	offset += uint32(len(strip0))

	var (
		strip1       []byte
		strip1Len    uint32
		strip1Offset uint32
	)

	if e.reduced != nil {
		strip1, err = deflateStrip(e.reduced)
		if err != nil {
			return nil, err
		}

		strip1Len = uint32(len(strip1))
		strip1 = padEven(strip1)
		strip1Offset = offset
		offset += uint32(len(strip1))
	}

	ifd0 := e.primaryIFD(strip0Offset, strip0Len)
	ifd0Offset := offset
	offset += ifdSize(ifd0)

	var (
		ifd1       []ifdEntry
		ifd1Offset uint32
	)

	if e.reduced != nil {
		ifd1 = reducedIFD(e.reduced, strip1Offset, strip1Len)
		ifd1Offset = offset
	}

	var out bytes.Buffer

	out.WriteString(tiffLEHeader)
	putUint32(&out, order, ifd0Offset)
	out.Write(strip0)
	out.Write(strip1)
	writeIFD(&out, order, ifd0, ifd0Offset, ifd1Offset)

	if e.reduced != nil {
		writeIFD(&out, order, ifd1, ifd1Offset, 0)
	}

	return out.Bytes(), nil
}

func (e *tiffEncoder) primaryIFD(stripOffset, stripLen uint32) []ifdEntry {
	b := e.composite.Bounds()

	entries := pageEntries(b.Dx(), b.Dy(), stripOffset, stripLen)
	entries = append(entries,
		ifdEntry{tag: tSoftware, datatype: dtASCII, raw: append([]byte(e.software), 0)},
		ifdEntry{tag: tICCProfile, datatype: dtUndefined, raw: e.icc},
		ifdEntry{tag: tImageSourceData, datatype: dtUndefined, raw: e.sourceData},
	)

	return entries
}

func reducedIFD(img *image.NRGBA, stripOffset, stripLen uint32) []ifdEntry {
	b := img.Bounds()

	entries := pageEntries(b.Dx(), b.Dy(), stripOffset, stripLen)
	entries = append(entries,
		ifdEntry{tag: tNewSubfileType, datatype: dtLong, data: []uint32{subfileReducedImage}},
	)

	return entries
}

func pageEntries(width, height int, stripOffset, stripLen uint32) []ifdEntry {
	return []ifdEntry{
		{tag: tImageWidth, datatype: dtLong, data: []uint32{uint32(width)}},
		{tag: tImageLength, datatype: dtLong, data: []uint32{uint32(height)}},
		{tag: tBitsPerSample, datatype: dtShort, data: []uint32{8, 8, 8, 8}},
		{tag: tCompression, datatype: dtShort, data: []uint32{compressionAdobeDeflate}},
		{tag: tPhotometric, datatype: dtShort, data: []uint32{photometricRGB}},
		{tag: tStripOffsets, datatype: dtLong, data: []uint32{stripOffset}},
		{tag: tSamplesPerPixel, datatype: dtShort, data: []uint32{4}},
		{tag: tRowsPerStrip, datatype: dtLong, data: []uint32{uint32(height)}},
		{tag: tStripByteCounts, datatype: dtLong, data: []uint32{stripLen}},
		{tag: tXResolution, datatype: dtRational, data: resolution72},
		{tag: tYResolution, datatype: dtRational, data: resolution72},
		{tag: tResolutionUnit, datatype: dtShort, data: []uint32{resolutionPerInch}},
		{tag: tExtraSamples, datatype: dtShort, data: []uint32{extraSampleUnassociated}},
	}
}

// ifdSize returns the full byte size of an IFD: entry table, next-IFD
// pointer and the pointer area for values longer than 4 bytes, each padded
// to even offsets.
func ifdSize(entries []ifdEntry) uint32 {
	size := uint32(2 + len(entries)*ifdEntryLen + 4)

	for _, e := range entries {
		if s := e.size(); s > 4 {
			size += s + s%2
		}
	}

	return size
}

// writeIFD writes the entry table sorted by tag, the next-IFD pointer and
// the pointer area. offset is the position of the IFD in the file.
func writeIFD(out *bytes.Buffer, order binary.ByteOrder, entries []ifdEntry, offset, nextIFD uint32) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	var parea bytes.Buffer

	pstart := offset + uint32(2+len(entries)*ifdEntryLen+4)

	putUint16(out, order, uint16(len(entries)))

	var buf [ifdEntryLen]byte

	for _, e := range entries {
		order.PutUint16(buf[0:2], uint16(e.tag))
		order.PutUint16(buf[2:4], uint16(e.datatype))
		order.PutUint32(buf[4:8], e.count())

		order.PutUint32(buf[8:12], 0)

		if s := e.size(); s <= 4 {
			e.putData(order, buf[8:12])
		} else {
			order.PutUint32(buf[8:12], pstart+uint32(parea.Len()))

			p := make([]byte, s)
			e.putData(order, p)
			parea.Write(p)

			if s%2 != 0 {
				parea.WriteByte(0)
			}
		}

		out.Write(buf[:])
	}

	putUint32(out, order, nextIFD)
	out.Write(parea.Bytes())
}

// padEven keeps strip data and the structures after it at even offsets, as
// the TIFF specification asks for.
func padEven(b []byte) []byte {
	if len(b)%2 != 0 {
		b = append(b, 0)
	}

	return b
}

// deflateStrip compresses the whole page as a single AdobeDeflate strip of
// interleaved 8-bit RGBA rows.
func deflateStrip(img *image.NRGBA) ([]byte, error) {
	var buf bytes.Buffer

	zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	rowLen := b.Dx() * 4

	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := img.PixOffset(b.Min.X, y)

		if _, err := zw.Write(img.Pix[i : i+rowLen]); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
