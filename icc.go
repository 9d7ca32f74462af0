package pstiff

import (
	"bytes"
	"encoding/binary"
)

// A compact sRGB display profile is embedded in every output file, standing
// in for the profile the original toolchain pulled from a CMS. The profile
// carries a zeroed timestamp so output stays byte-reproducible.

var srgbICC = buildSRGBProfile()

// srgbProfile returns the embedded sRGB ICC v2 profile.
func srgbProfile() []byte {
	return srgbICC
}

type iccTag struct {
	sig  string
	data []byte
}

func buildSRGBProfile() []byte {
	be := binary.ByteOrder(binary.BigEndian)

	// D50-adapted sRGB primaries and white point, s15Fixed16.
	trc := iccCurv(0x0233) // gamma 2.2 in u8Fixed8

	tags := []iccTag{
		{sig: "desc", data: iccDesc("sRGB built-in")},
		{sig: "wtpt", data: iccXYZ(0xF6D6, 0x10000, 0xD32D)},
		{sig: "rXYZ", data: iccXYZ(0x6FA2, 0x38F5, 0x0390)},
		{sig: "gXYZ", data: iccXYZ(0x6299, 0xB785, 0x18DA)},
		{sig: "bXYZ", data: iccXYZ(0x24A0, 0x0F84, 0xB6CF)},
		{sig: "rTRC", data: trc},
		{sig: "gTRC", data: trc},
		{sig: "bTRC", data: trc},
		{sig: "cprt", data: iccText("public domain")},
	}

	// Identical payloads share one data slot, as the three TRC curves do.
	offsets := map[string]uint32{}
	dataStart := uint32(128 + 4 + len(tags)*12)

	var data bytes.Buffer

	type placed struct {
		offset, size uint32
	}

	placement := make([]placed, len(tags))

	for i, tag := range tags {
		key := string(tag.data)
		off, ok := offsets[key]

		if !ok {
			off = dataStart + uint32(data.Len())
			offsets[key] = off
			data.Write(tag.data)
			pad(&data, 4)
		}

		placement[i] = placed{offset: off, size: uint32(len(tag.data))}
	}

	size := dataStart + uint32(data.Len())

	header := make([]byte, 128)
	be.PutUint32(header[0:4], size)
	be.PutUint32(header[8:12], 0x02100000) // profile version 2.1
	copy(header[12:16], "mntr")
	copy(header[16:20], "RGB ")
	copy(header[20:24], "XYZ ")
	copy(header[36:40], "acsp")
	// PCS illuminant: D50.
	be.PutUint32(header[68:72], 0xF6D6)
	be.PutUint32(header[72:76], 0x10000)
	be.PutUint32(header[76:80], 0xD32D)

	var out bytes.Buffer

	out.Write(header)
	putUint32(&out, be, uint32(len(tags)))

	for i, tag := range tags {
		out.WriteString(tag.sig)
		putUint32(&out, be, placement[i].offset)
		putUint32(&out, be, placement[i].size)
	}

	out.Write(data.Bytes())

	return out.Bytes()
}

func iccXYZ(x, y, z uint32) []byte {
	var out bytes.Buffer

	be := binary.ByteOrder(binary.BigEndian)

	out.WriteString("XYZ ")
	putUint32(&out, be, 0)
	putUint32(&out, be, x)
	putUint32(&out, be, y)
	putUint32(&out, be, z)

	return out.Bytes()
}

func iccCurv(gamma uint16) []byte {
	var out bytes.Buffer

	be := binary.ByteOrder(binary.BigEndian)

	out.WriteString("curv")
	putUint32(&out, be, 0)
	putUint32(&out, be, 1)
	putUint16(&out, be, gamma)

	return out.Bytes()
}

func iccText(s string) []byte {
	var out bytes.Buffer

	be := binary.ByteOrder(binary.BigEndian)

	out.WriteString("text")
	putUint32(&out, be, 0)
	out.WriteString(s)
	out.WriteByte(0)

	return out.Bytes()
}

// iccDesc writes a textDescriptionType with empty unicode and scriptcode
// parts.
func iccDesc(s string) []byte {
	var out bytes.Buffer

	be := binary.ByteOrder(binary.BigEndian)

	out.WriteString("desc")
	putUint32(&out, be, 0)
	putUint32(&out, be, uint32(len(s)+1))
	out.WriteString(s)
	out.WriteByte(0)
	putUint32(&out, be, 0) // unicode language code
	putUint32(&out, be, 0) // unicode count
	putUint16(&out, be, 0) // scriptcode code
	out.WriteByte(0)       // scriptcode count
	out.Write(make([]byte, 67))

	return out.Bytes()
}
