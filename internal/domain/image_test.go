package domain

import (
	"errors"
	"testing"
)

func TestNewSourceImageAcceptsImageTypes(t *testing.T) {
	for _, mime := range []string{"image/png", "image/jpeg", "image/gif", "image/webp"} {
		img, err := NewSourceImage("ring.png", mime, []byte{0x89})
		if err != nil {
			t.Fatalf("mime %q rejected: %v", mime, err)
		}
		if img.MIME != mime {
			t.Fatalf("mime = %q, want %q", img.MIME, mime)
		}
	}
}

func TestNewSourceImageRejectsNonImages(t *testing.T) {
	for _, mime := range []string{"application/pdf", "text/plain", "video/mp4", "", "imagex/png"} {
		if _, err := NewSourceImage("doc", mime, []byte("x")); !errors.Is(err, ErrInvalidAsset) {
			t.Fatalf("mime %q: err = %v, want ErrInvalidAsset", mime, err)
		}
	}
}

func TestSourceImageSizeBytes(t *testing.T) {
	img, err := NewSourceImage("ring.jpg", "image/jpeg", make([]byte, 2048))
	if err != nil {
		t.Fatalf("new source image: %v", err)
	}
	if img.SizeBytes() != 2048 {
		t.Fatalf("size = %d, want 2048", img.SizeBytes())
	}
	var nilImg *SourceImage
	if nilImg.SizeBytes() != 0 {
		t.Fatalf("nil image size should be 0")
	}
}
