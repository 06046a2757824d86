package proofimg

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 180, B: 40, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeDownscalesLargeImages(t *testing.T) {
	data := encodePNG(t, 3200, 2400)

	out, ct := Normalize(data, "image/png")
	if ct != "image/jpeg" {
		t.Fatalf("expected jpeg output, got %s", ct)
	}
	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode normalized image: %v", err)
	}
	b := img.Bounds()
	if b.Dx() > 1600 || b.Dy() > 1600 {
		t.Errorf("image not downscaled: %dx%d", b.Dx(), b.Dy())
	}
	// aspect ratio preserved (4:3)
	if b.Dx() != 1600 || b.Dy() != 1200 {
		t.Errorf("unexpected dimensions %dx%d, want 1600x1200", b.Dx(), b.Dy())
	}
}

func TestNormalizeReencodesSmallPNG(t *testing.T) {
	data := encodePNG(t, 400, 300)

	out, ct := Normalize(data, "image/png")
	if ct != "image/jpeg" {
		t.Fatalf("small PNGs are still re-encoded to jpeg, got %s", ct)
	}
	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode normalized image: %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 300 {
		t.Errorf("small image should keep its size, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestNormalizePassesThroughNonImages(t *testing.T) {
	data := []byte("%PDF-1.7 not an image")
	out, ct := Normalize(data, "application/pdf")
	if ct != "application/pdf" || !bytes.Equal(out, data) {
		t.Error("non-image payloads must pass through unchanged")
	}
}

func TestNormalizePassesThroughUndecodable(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02}
	out, ct := Normalize(data, "image/png")
	if ct != "image/png" || !bytes.Equal(out, data) {
		t.Error("undecodable payloads must pass through unchanged")
	}
}
