package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// MaxEmbedPixels is the largest pixel count the embedding API accepts.
const MaxEmbedPixels = 1568 * 1568

// ResizeForEmbedding scales an image down isotropically when its pixel count
// exceeds the embedding API budget. Images within budget are returned as-is.
func ResizeForEmbedding(img image.Image) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width*height <= MaxEmbedPixels {
		return img
	}

	scale := math.Sqrt(float64(MaxEmbedPixels) / float64(width*height))
	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// EncodePNG serializes an image as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURLFromImage resizes an image to the embedding pixel budget and encodes
// it as a base64 PNG data URL. The resize happens before encoding.
func DataURLFromImage(img image.Image) (string, error) {
	data, err := EncodePNG(ResizeForEmbedding(img))
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}
