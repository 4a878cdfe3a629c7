package storage

import (
	"bytes"
	"fmt"
	"path"

	"github.com/disintegration/imaging"
)

// Photos larger than this box are scaled down to fit inside it.
const (
	maxPhotoWidth  = 1000
	maxPhotoHeight = 1000
)

// DownscalePhoto shrinks an image to fit 1000x1000, keeping its aspect
// ratio and format. Images already inside the box and formats imaging
// cannot encode are returned unchanged.
func DownscalePhoto(data []byte, filename string) ([]byte, error) {
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return data, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path.Base(filename), err)
	}
	b := img.Bounds()
	if b.Dx() <= maxPhotoWidth && b.Dy() <= maxPhotoHeight {
		return data, nil
	}

	var buf bytes.Buffer
	fitted := imaging.Fit(img, maxPhotoWidth, maxPhotoHeight, imaging.Lanczos)
	if err := imaging.Encode(&buf, fitted, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode %s: %w", path.Base(filename), err)
	}
	return buf.Bytes(), nil
}
