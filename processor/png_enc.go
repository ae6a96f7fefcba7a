package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/geo-services/dsmwms/utils"
)

// ErrEncoding flags a failure to serialize the rendered tile.
var ErrEncoding = errors.New("image encoding error")

// EncodePNG serializes a luminance channel plus its alpha mask into a
// PNG at the exact pixel dimensions of the input grids. No resampling
// happens here; any resizing must already have occurred upstream in
// the clipping read.
func EncodePNG(lum, alpha *utils.ByteRaster) ([]byte, error) {
	if lum.Width <= 0 || lum.Height <= 0 {
		return nil, fmt.Errorf("%w: empty grid %dx%d", ErrEncoding, lum.Width, lum.Height)
	}
	if lum.Width != alpha.Width || lum.Height != alpha.Height {
		return nil, fmt.Errorf("%w: luminance %dx%d does not match alpha %dx%d",
			ErrEncoding, lum.Width, lum.Height, alpha.Width, alpha.Height)
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, lum.Width, lum.Height))
	var start int
	for i := 0; i < lum.Width*lum.Height; i++ {
		start = i * 4
		canvas.Pix[start] = lum.Data[i]
		canvas.Pix[start+1] = lum.Data[i]
		canvas.Pix[start+2] = lum.Data[i]
		canvas.Pix[start+3] = alpha.Data[i]
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, canvas); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return buf.Bytes(), nil
}
