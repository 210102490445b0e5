package media

import (
	"fmt"
	"image"
	"io"

	"media-boards/internal/logging"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// MaxImageDimension is the maximum width or height we'll process.
	// Larger images are downscaled before thumbnailing.
	MaxImageDimension = 4096

	// MaxImagePixels is the maximum total pixels (width * height) we'll decode.
	// A 20MP image is ~80MB in RGBA.
	MaxImagePixels = 20_000_000
)

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// ReadDimensions returns the image size from its header and rewinds r.
func ReadDimensions(r io.ReadSeeker) (*ImageDimensions, error) {
	config, _, err := image.DecodeConfig(r)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return &ImageDimensions{Width: config.Width, Height: config.Height}, nil
}

// DecodeConstrained decodes an image, refusing anything over maxPixels and
// downscaling anything wider or taller than maxDimension.
func DecodeConstrained(r io.ReadSeeker, maxDimension, maxPixels int) (image.Image, error) {
	dims, err := ReadDimensions(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	if dims.Width*dims.Height > maxPixels {
		return nil, fmt.Errorf("image is %dx%d, over the %d pixel limit", dims.Width, dims.Height, maxPixels)
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if dims.Width <= maxDimension && dims.Height <= maxDimension {
		return img, nil
	}

	logging.Debug("Constraining large image from %dx%d to fit %d", dims.Width, dims.Height, maxDimension)
	return imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos), nil
}

// sniffFormat identifies formats we cannot decode from their leading bytes.
func sniffFormat(header []byte) string {
	switch {
	case len(header) >= 12 && string(header[4:8]) == "ftyp":
		brand := string(header[8:12])
		if brand == "avif" || brand == "avis" {
			return "avif"
		}
		if brand == "heic" || brand == "heix" || brand == "mif1" || brand == "msf1" {
			return "heif"
		}
		return "mp4-container"
	case len(header) >= 5 && (string(header[:5]) == "<?xml" || string(header[:4]) == "<svg"):
		return "svg"
	}
	return ""
}
