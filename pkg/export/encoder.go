package export

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 100

// Encoder writes a raster image of width*height pixels with the given number
// of 8-bit channels to path. Quality only applies to lossy formats.
type Encoder interface {
	Encode(path string, width, height, channels int, pix []byte, quality int) error
}

// ImagingEncoder encodes with github.com/disintegration/imaging. The output
// format follows the file extension (.jpg, .png, .bmp, .tif, .gif).
type ImagingEncoder struct{}

func (ImagingEncoder) Encode(path string, width, height, channels int, pix []byte, quality int) error {
	img, err := toImage(width, height, channels, pix)
	if err != nil {
		return err
	}

	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	if err := imaging.Save(img, path, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

func toImage(width, height, channels int, pix []byte) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	if len(pix) != width*height*channels {
		return nil, fmt.Errorf("pixel buffer has %d bytes, want %d", len(pix), width*height*channels)
	}

	rect := image.Rect(0, 0, width, height)

	switch channels {
	case 1:
		return &image.Gray{Pix: pix, Stride: width, Rect: rect}, nil
	case 3:
		img := image.NewNRGBA(rect)
		for i := 0; i < width*height; i++ {
			copy(img.Pix[i*4:i*4+3], pix[i*3:i*3+3])
			img.Pix[i*4+3] = 0xff
		}
		return img, nil
	case 4:
		return &image.NRGBA{Pix: pix, Stride: width * 4, Rect: rect}, nil
	}

	return nil, fmt.Errorf("unsupported channel count %d", channels)
}
