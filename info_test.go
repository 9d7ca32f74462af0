package pstiff

import (
	"bytes"
	"errors"
	"image/color"
	"os"
	"testing"
)

func TestInfo_rejectsNonTIFF(t *testing.T) {
	cases := map[string][]byte{
		"empty":        nil,
		"short":        []byte("II"),
		"wrong header": []byte("GIF89a something else entirely"),
	}

	for name, data := range cases {
		name, data := name, data

		t.Run(name, func(t *testing.T) {
			if _, err := Info(data); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestInfo_truncated(t *testing.T) {
	b, err := New(10, 10)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := b.AddLayer(solidImage(10, 10, color.NRGBA{R: 255, A: 255})); err != nil {
		t.Fatalf("add layer: %v", err)
	}

	var buf bytes.Buffer

	if err := b.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	data := buf.Bytes()

	// Chopping the file anywhere must produce an error, never a panic.
	for _, n := range []int{8, 16, len(data) / 2, len(data) - 1} {
		if _, err := Info(data[:n]); err == nil {
			t.Fatalf("no error for %d-byte prefix", n)
		}
	}
}

func TestInfoFile_missing(t *testing.T) {
	_, err := InfoFile("testdata/does-not-exist.tiff")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got %v, want os.ErrNotExist", err)
	}
}
