package pstiff

import (
	"bytes"
	"encoding/binary"
)

// psdHeader opens the ImageSourceData payload in TIFF files written by
// Photoshop.
const psdHeader = "Adobe Photoshop Document Data Block\x00"

// Photoshop 4-char signatures and keys, stored as big-endian uint32 values
// and written through the resource byte order. In little-endian resources
// "8BIM" therefore appears reversed on disk, matching Photoshop output.
const (
	sigPhotoshop   = 0x3842494D // 8BIM
	keyLayerInfo   = 0x4C617972 // Layr, 8-bit layer info
	keyPatterns    = 0x50617474 // Patt
	keyFilterMask  = 0x464D736B // FMsk
	keyUserMask    = 0x4C4D736B // LMsk
	keyUnicodeName = 0x6C756E69 // luni
	keyBlendNormal = 0x6E6F726D // norm
)

// Channel identifiers of a layer record.
const (
	channelTransparency = -1
	channelRed          = 0
	channelGreen        = 1
	channelBlue         = 2
)

// Channel data compression methods.
const (
	compressionRawData       = 0
	compressionRLE           = 1
	compressionZip           = 2
	compressionZipPrediction = 3
)

// Layer record flag bits.
const (
	flagTransparencyProtected = 1 << 0
	flagLayerHidden           = 1 << 1
	flagPhotoshop5            = 1 << 3
)

// Color space identifier used in mask color structures.
const colorSpaceRGB = 0

func putUint16(out *bytes.Buffer, order binary.ByteOrder, v uint16) {
	var tmp [2]byte

	order.PutUint16(tmp[:], v)
	out.Write(tmp[:])
}

func putUint32(out *bytes.Buffer, order binary.ByteOrder, v uint32) {
	var tmp [4]byte

	order.PutUint32(tmp[:], v)
	out.Write(tmp[:])
}

// pad appends zero bytes until the buffer length is a multiple of align.
func pad(out *bytes.Buffer, align int) {
	for out.Len()%align != 0 {
		out.WriteByte(0)
	}
}
