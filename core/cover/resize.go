// Package cover downscales catalog cover images for thumbnails.
package cover

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// MaxWidth caps the requested thumbnail width.
const MaxWidth = 1200

const jpegQuality = 85

// Resize scales the image in data down to width, keeping the aspect
// ratio. Images already narrower than width, and non-positive widths,
// return data unchanged with an empty content type. PNG input stays PNG;
// everything else is encoded as JPEG.
func Resize(data []byte, width int) ([]byte, string, error) {
	if width <= 0 {
		return data, "", nil
	}
	if width > MaxWidth {
		width = MaxWidth
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() <= width {
		return data, "", nil
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var out bytes.Buffer
	if format == "png" {
		if err := png.Encode(&out, dst); err != nil {
			return nil, "", fmt.Errorf("failed to encode png: %w", err)
		}
		return out.Bytes(), "image/png", nil
	}
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return out.Bytes(), "image/jpeg", nil
}
