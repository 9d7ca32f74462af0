package pstiff

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/klauspost/compress/zlib"
)

func TestPhotoshopEncoder_roundTrip(t *testing.T) {
	layers := []Layer{
		{Image: solidImage(8, 6, color.NRGBA{R: 10, G: 20, B: 30, A: 255}), Name: "background", Opacity: 255},
		{Image: solidImage(4, 4, color.NRGBA{R: 200, A: 128}), Name: "décor 1", Offset: image.Pt(2, 1), Opacity: 200, Hidden: true},
	}

	encoders := []struct {
		name string
		enc  PhotoshopEncoder
	}{
		{name: "little-endian", enc: PhotoshopEncoder{}},
		{name: "big-endian", enc: PhotoshopEncoder{BigEndian: true}},
	}

	for _, tc := range encoders {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			payload, err := tc.enc.EncodeSourceData(image.Rect(0, 0, 8, 6), layers)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}

			records, channels, err := parseSourceData(payload)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}

			if len(records) != 2 {
				t.Fatalf("got %d records, want 2", len(records))
			}

			if records[0].Name != "background" || records[0].Rect != image.Rect(0, 0, 8, 6) {
				t.Fatalf("background record: %+v", records[0])
			}

			if records[1].Name != "décor 1" || records[1].Rect != image.Rect(2, 1, 6, 5) {
				t.Fatalf("décor record: %+v", records[1])
			}

			if records[1].Opacity != 200 || !records[1].Hidden {
				t.Fatalf("décor state: %+v", records[1])
			}

			if len(channels[0]) != 4 {
				t.Fatalf("got %d channels, want 4", len(channels[0]))
			}

			wantIDs := []int{channelTransparency, channelRed, channelGreen, channelBlue}
			for i, ch := range channels[0] {
				if ch.id != wantIDs[i] {
					t.Fatalf("channel %d id %d, want %d", i, ch.id, wantIDs[i])
				}

				if ch.method != compressionZipPrediction {
					t.Fatalf("channel %d method %d, want %d", i, ch.method, compressionZipPrediction)
				}
			}
		})
	}
}

func TestPhotoshopEncoder_channelData(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 5, 3))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}

	enc := PhotoshopEncoder{}

	payload, err := enc.EncodeSourceData(image.Rect(0, 0, 5, 3), []Layer{{Image: img, Name: "gradient", Opacity: 255}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, channels, err := parseSourceData(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	planes := map[int]int{channelTransparency: 3, channelRed: 0, channelGreen: 1, channelBlue: 2}

	for _, ch := range channels[0] {
		got := decodeZipPredicted(t, ch.data, 5, 3)

		for y := 0; y < 3; y++ {
			for x := 0; x < 5; x++ {
				want := img.Pix[y*img.Stride+x*4+planes[ch.id]]
				if got[y*5+x] != want {
					t.Fatalf("channel %d pixel (%d,%d) = %d, want %d", ch.id, x, y, got[y*5+x], want)
				}
			}
		}
	}
}

// decodeZipPredicted inflates channel data and undoes the left-delta
// prediction.
func decodeZipPredicted(t *testing.T, data []byte, w, h int) []byte {
	t.Helper()

	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("zlib reader: %v", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("inflate: %v", err)
	}

	if len(raw) != w*h {
		t.Fatalf("channel has %d bytes, want %d", len(raw), w*h)
	}

	for y := 0; y < h; y++ {
		row := raw[y*w : (y+1)*w]
		for x := 1; x < w; x++ {
			row[x] += row[x-1]
		}
	}

	return raw
}

func TestPhotoshopEncoder_longName(t *testing.T) {
	name := ""
	for len(name) < 300 {
		name += "long layer name "
	}

	enc := PhotoshopEncoder{}

	payload, err := enc.EncodeSourceData(image.Rect(0, 0, 2, 2),
		[]Layer{{Image: solidImage(2, 2, color.NRGBA{A: 255}), Name: name, Opacity: 255}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	records, _, err := parseSourceData(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	// The Pascal name is capped at 255 bytes; the unicode block keeps the
	// full name and wins on read-back.
	if records[0].Name != name {
		t.Fatalf("name truncated to %d bytes", len(records[0].Name))
	}
}

func TestPhotoshopEncoder_emptyCanvas(t *testing.T) {
	enc := PhotoshopEncoder{}

	if _, err := enc.EncodeSourceData(image.Rectangle{}, nil); err == nil {
		t.Fatal("expected error for empty canvas")
	}
}

func TestParseSourceData_rejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":       nil,
		"short":       []byte("Adobe"),
		"wrong magic": bytes.Repeat([]byte{0xAB}, 64),
	}

	for name, data := range cases {
		name, data := name, data

		t.Run(name, func(t *testing.T) {
			if _, _, err := parseSourceData(data); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}
