package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestScalePNG_Half(t *testing.T) {
	data := encodeTestPNG(t, 100, 60)
	out, err := ScalePNG(data, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not valid png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 50 || b.Dy() != 30 {
		t.Errorf("expected 50x30, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestScalePNG_FactorOneIsPassthrough(t *testing.T) {
	data := encodeTestPNG(t, 10, 10)
	out, err := ScalePNG(data, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("expected passthrough for factor 1.0")
	}
}

func TestScalePNG_BadData(t *testing.T) {
	if _, err := ScalePNG([]byte("not a png"), 0.5); err == nil {
		t.Error("expected error for invalid png data")
	}
}
