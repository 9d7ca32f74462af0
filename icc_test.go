package pstiff

import (
	"encoding/binary"
	"testing"
)

func TestSRGBProfile(t *testing.T) {
	p := srgbProfile()

	if len(p) < 132 {
		t.Fatalf("profile too short: %d bytes", len(p))
	}

	if got := binary.BigEndian.Uint32(p[:4]); got != uint32(len(p)) {
		t.Fatalf("size field %d, want %d", got, len(p))
	}

	if string(p[36:40]) != "acsp" {
		t.Fatalf("profile signature %q, want acsp", p[36:40])
	}

	if string(p[12:16]) != "mntr" || string(p[16:20]) != "RGB " || string(p[20:24]) != "XYZ " {
		t.Fatal("unexpected profile class or color spaces")
	}

	tagCount := int(binary.BigEndian.Uint32(p[128:132]))
	if tagCount != 9 {
		t.Fatalf("tag count %d, want 9", tagCount)
	}

	// Every tag payload must fall inside the profile.
	for i := 0; i < tagCount; i++ {
		entry := p[132+i*12:]
		offset := binary.BigEndian.Uint32(entry[4:8])
		size := binary.BigEndian.Uint32(entry[8:12])

		if int(offset+size) > len(p) {
			t.Fatalf("tag %q out of bounds", entry[:4])
		}
	}

	// Deterministic output.
	q := buildSRGBProfile()
	if string(p) != string(q) {
		t.Fatal("profile is not reproducible")
	}
}
