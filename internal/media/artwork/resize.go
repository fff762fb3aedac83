package artwork

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// jpegQuality for re-encoded artwork. Covers are photographic; 85 is visually
// lossless at tile sizes.
const jpegQuality = 85

// resizeToWidth decodes image bytes, scales them to the target width while
// keeping the aspect ratio, and re-encodes as JPEG. Bytes already at or below
// the target width are returned unchanged.
func resizeToWidth(data []byte, targetWidth int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode artwork: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= targetWidth {
		return data, nil
	}

	targetHeight := (bounds.Dy() * targetWidth) / bounds.Dx()
	if targetHeight < 1 {
		targetHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode artwork: %w", err)
	}
	return buf.Bytes(), nil
}

// blurHashSize is the thumbnail edge used for BlurHash computation. BlurHash
// is a low-resolution placeholder; 64px keeps encoding in the millisecond
// range with no visible difference.
const blurHashSize = 64

// ComputeBlurHash generates a BlurHash placeholder string from image bytes.
// Uses 4x3 components, a good balance of string length and detail for covers.
func ComputeBlurHash(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode artwork: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > blurHashSize || bounds.Dy() > blurHashSize {
		w, h := blurHashSize, blurHashSize
		if bounds.Dx() > bounds.Dy() {
			h = max((bounds.Dy()*blurHashSize)/bounds.Dx(), 1)
		} else {
			w = max((bounds.Dx()*blurHashSize)/bounds.Dy(), 1)
		}
		thumb := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), img, bounds, draw.Over, nil)
		img = thumb
	}

	hash, err := blurhash.Encode(4, 3, img)
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}
