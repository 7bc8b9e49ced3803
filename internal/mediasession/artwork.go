package mediasession

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

// ArtworkSizes are the square renditions produced from a cover picture.
var ArtworkSizes = []uint{192, 512}

// ArtworkFromPicture scales an embedded cover into PNG thumbnails, one per
// ArtworkSizes entry. Pictures smaller than a size are not upscaled.
func ArtworkFromPicture(data []byte) ([]Artwork, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("mediasession: decode artwork: %w", err)
	}

	out := make([]Artwork, 0, len(ArtworkSizes))
	for _, size := range ArtworkSizes {
		thumb := resize.Thumbnail(size, size, img, resize.Lanczos3)

		var buf bytes.Buffer
		if err := png.Encode(&buf, thumb); err != nil {
			return nil, fmt.Errorf("mediasession: encode artwork: %w", err)
		}

		b := thumb.Bounds()
		out = append(out, Artwork{
			Sizes: fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
			Type:  "image/png",
			Data:  buf.Bytes(),
		})
	}

	return out, nil
}
