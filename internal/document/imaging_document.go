package document

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

var imagingExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// ImagingDocument renders page files in pure Go. It is slower than
// VipsDocument but needs no native libraries.
type ImagingDocument struct {
	pages
	logger *zap.Logger
}

func OpenImaging(dir string, logger *zap.Logger) (*ImagingDocument, error) {
	found, err := Scan(dir, imagingExtensions, probeImaging, logger)
	if len(found) == 0 {
		if err == nil {
			err = fmt.Errorf("no pages found in %s", dir)
		}
		return nil, err
	}
	if err != nil {
		logger.Warn("Some pages were skipped", zap.Error(err))
	}
	return &ImagingDocument{pages: found, logger: logger}, nil
}

func probeImaging(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func (d *ImagingDocument) Render(ctx context.Context, page int, size image.Point) (image.Image, error) {
	info := d.at(page)
	if err := checkSize(size); err != nil {
		return nil, err
	}

	src, err := imaging.Open(info.Path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return imaging.Resize(src, size.X, size.Y, imaging.Lanczos), nil
}
