package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func testJPEG(w, h int) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, solid(w, h, color.RGBA{255, 0, 0, 255}), &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func testPNG(w, h int) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, solid(w, h, color.RGBA{0, 0, 255, 255}))
	return buf.Bytes()
}

func TestProcessPNGBecomesJPEG(t *testing.T) {
	result, err := Process(bytes.NewReader(testPNG(100, 80)), ItemPhoto)
	if err != nil {
		t.Fatalf("Process PNG: %v", err)
	}
	if result.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", result.MIME)
	}
	if result.Width != 100 || result.Height != 80 {
		t.Errorf("expected 100x80, got %dx%d", result.Width, result.Height)
	}
}

func TestProcessDownscalesToPreset(t *testing.T) {
	tests := []struct {
		name   string
		preset Preset
		w, h   int
		wantW  int
		wantH  int
	}{
		{"landscape photo", ItemPhoto, 2048, 1024, 1024, 512},
		{"portrait photo", ItemPhoto, 1000, 2000, 512, 1024},
		{"avatar", Avatar, 600, 600, 256, 256},
		{"small avatar untouched", Avatar, 50, 50, 50, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Process(bytes.NewReader(testJPEG(tt.w, tt.h)), tt.preset)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			img, _, err := image.Decode(bytes.NewReader(result.Data))
			if err != nil {
				t.Fatalf("decoding result: %v", err)
			}
			b := img.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, b.Dx(), b.Dy())
			}
		})
	}
}

func TestProcessRejectsOtherFormats(t *testing.T) {
	for _, data := range [][]byte{[]byte("not an image"), []byte("GIF89a......")} {
		_, err := Process(bytes.NewReader(data), ItemPhoto)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat for %q, got %v", data, err)
		}
	}
}

func TestProcessRejectsOversizedUpload(t *testing.T) {
	data := make([]byte, MaxUploadBytes+10)
	copy(data, testJPEG(10, 10))
	_, err := Process(bytes.NewReader(data), ItemPhoto)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}
