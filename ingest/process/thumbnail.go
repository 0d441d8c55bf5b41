package process

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	"os"

	"github.com/nfnt/resize"
)

// thumbnailMaxDim bounds the longer side of a generated preview thumbnail;
// images are never upscaled past their original size.
const thumbnailMaxDim = 256

// thumbnailQuality is the JPEG quality used for the generated preview,
// matching media's original ImageRescale encoding.
const thumbnailQuality = 85

// imageInfo is the image-specific metadata extractImage attaches to every
// decodable image blob: its dimensions and a small base64-encoded JPEG
// preview, good enough for a list view without fetching the original blob.
type imageInfo struct {
	Width    int
	Height   int
	ThumbB64 string
}

// decodeImageInfo opens tempPath, decodes it as an image, and produces a
// Lanczos3-resized preview capped at thumbnailMaxDim on its longer side.
// Adapted from media.ImageRescale: same decode/resize/encode idiom,
// collapsed to an in-memory byte buffer since the process pipeline has no
// derived-artifact table to write a second file to — the preview travels
// as an extracted_metadata value instead.
func decodeImageInfo(tempPath string) (*imageInfo, error) {
	f, err := os.Open(tempPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	thumb := img
	if width > thumbnailMaxDim || height > thumbnailMaxDim {
		if width >= height {
			thumb = resize.Resize(uint(thumbnailMaxDim), 0, img, resize.Lanczos3)
		} else {
			thumb = resize.Resize(0, uint(thumbnailMaxDim), img, resize.Lanczos3)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, err
	}

	return &imageInfo{
		Width:    width,
		Height:   height,
		ThumbB64: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}
