package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAsset indicates that a selected file is not an image.
var ErrInvalidAsset = errors.New("selected file is not an image")

// SoftSizeLimitBytes is the upload size guideline advertised to users. It is
// not enforced; the provider imposes no hard limit of its own.
const SoftSizeLimitBytes = 10 << 20

// SourceImage wraps the raw bytes of an uploaded photo together with its
// declared MIME type.
type SourceImage struct {
	Name string
	MIME string
	Data []byte
}

// NewSourceImage validates a candidate upload. Only entries whose declared
// type begins with "image/" are accepted; anything else is rejected with
// ErrInvalidAsset.
func NewSourceImage(name, mime string, data []byte) (*SourceImage, error) {
	mime = strings.TrimSpace(mime)
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%w: declared type %q", ErrInvalidAsset, mime)
	}
	return &SourceImage{Name: name, MIME: mime, Data: data}, nil
}

// SizeBytes returns the size of the image payload.
func (s *SourceImage) SizeBytes() int64 {
	if s == nil {
		return 0
	}
	return int64(len(s.Data))
}

// ConversionRequest pairs the selected image with the generation parameters.
// It is assembled once at submit time and not mutated afterwards.
type ConversionRequest struct {
	Image   SourceImage
	Options Options
}
