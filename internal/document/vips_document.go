package document

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"

	"github.com/cshum/vipsgen/vips"
	"go.uber.org/zap"
)

var vipsExtensions = map[string]bool{
	".tif":  true,
	".tiff": true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// VipsDocument renders page files with libvips. vips.Startup must have been
// called before it is used.
type VipsDocument struct {
	pages
	logger *zap.Logger
}

func OpenVips(dir string, logger *zap.Logger) (*VipsDocument, error) {
	found, err := Scan(dir, vipsExtensions, probeVips, logger)
	if len(found) == 0 {
		if err == nil {
			err = fmt.Errorf("no pages found in %s", dir)
		}
		return nil, err
	}
	if err != nil {
		logger.Warn("Some pages were skipped", zap.Error(err))
	}
	return &VipsDocument{pages: found, logger: logger}, nil
}

func probeVips(path string) (int, int, error) {
	// Use AccessSequential for scanning (just need dimensions)
	img, err := loadImage(path, vips.AccessSequential)
	if err != nil {
		return 0, 0, err
	}
	defer img.Close()
	return img.Width(), img.Height(), nil
}

// Render loads the page, resizes it to size and returns it decoded. The
// context is checked between stages; libvips itself is not interrupted.
func (d *VipsDocument) Render(ctx context.Context, page int, size image.Point) (image.Image, error) {
	info := d.at(page)
	if err := checkSize(size); err != nil {
		return nil, err
	}

	img, err := loadImage(info.Path, vips.AccessSequential)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer img.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Width drives the scale factor; the height follows the aspect ratio.
	resizeOpts := vips.DefaultResizeOptions()
	resizeOpts.Kernel = vips.KernelLanczos3
	if err := img.Resize(float64(size.X)/float64(img.Width()), resizeOpts); err != nil {
		return nil, fmt.Errorf("failed to resize: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	jpegOpts := vips.DefaultJpegsaveBufferOptions()
	jpegOpts.Q = 90
	jpegOpts.Interlace = false

	data, err := img.JpegsaveBuffer(jpegOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to export: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	return out, nil
}

// loadImage loads an image based on file extension
func loadImage(path string, access vips.Access) (*vips.Image, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".tif", ".tiff":
		opts := vips.DefaultTiffloadOptions()
		opts.Access = access
		return vips.NewTiffload(path, opts)
	case ".jpg", ".jpeg":
		opts := vips.DefaultJpegloadOptions()
		opts.Access = access
		return vips.NewJpegload(path, opts)
	case ".png":
		opts := vips.DefaultPngloadOptions()
		opts.Access = access
		return vips.NewPngload(path, opts)
	case ".webp":
		opts := vips.DefaultWebploadOptions()
		opts.Access = access
		return vips.NewWebpload(path, opts)
	default:
		return nil, fmt.Errorf("unsupported image format: %s", ext)
	}
}
