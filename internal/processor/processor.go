package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	// Codecs registered for image.Decode. The set matches the upload
	// allow-list.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when the input bytes are not a decodable image.
var ErrDecode = errors.New("failed to decode image")

// Processor turns originals into resized variants. Resizing follows a
// fit-inside policy: the result fits within the requested box, keeps the
// source aspect ratio, and is never upscaled beyond the source dimensions.
// Output is always JPEG at the configured quality.
type Processor struct {
	quality int
}

// New creates a Processor encoding variants at the given JPEG quality (1-100).
func New(quality int) *Processor {
	return &Processor{quality: quality}
}

// Probe fully decodes src and reports its intrinsic dimensions and codec
// format. Client-declared dimensions are never trusted; this is the only
// source of truth for them.
func (p *Processor) Probe(src io.Reader) (width, height int, format string, err error) {
	img, format, err := image.Decode(src)
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := img.Bounds()

	return bounds.Dx(), bounds.Dy(), format, nil
}

// Fit decodes src, scales it to fit within width x height, and re-encodes it
// as JPEG. The CPU-bound work here runs without holding any locks; callers
// may invoke Fit concurrently.
func (p *Processor) Fit(src io.Reader, width, height int) ([]byte, error) {
	img, err := imaging.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	// imaging.Fit preserves aspect ratio and returns the source unchanged
	// when it already fits inside the bounds, so no upscaling happens.
	resized := imaging.Fit(img, width, height, imaging.Lanczos)

	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, resized, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, fmt.Errorf("failed to encode variant: %w", err)
	}

	return buf.Bytes(), nil
}
