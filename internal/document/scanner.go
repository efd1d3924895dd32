package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// PageInfo describes one page file of a document directory.
type PageInfo struct {
	Path   string `json:"-"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int64  `json:"bytes"`
}

// probeFunc returns the pixel dimensions of an image file.
type probeFunc func(path string) (width, height int, err error)

// Scan lists the page files of dir in file name order. Files with an
// extension outside extensions are ignored. Files that cannot be probed are
// skipped and reported in the returned error; the pages found so far are
// returned regardless.
func Scan(dir string, extensions map[string]bool, probe probeFunc, logger *zap.Logger) ([]PageInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read document directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var (
		pages []PageInfo
		errs  error
	)
	for _, name := range names {
		path := filepath.Join(dir, name)

		info, err := os.Stat(path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("stat %s: %w", name, err))
			continue
		}

		width, height, err := probe(path)
		if err != nil {
			logger.Warn("Skipping unreadable page", zap.String("path", path), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("probe %s: %w", name, err))
			continue
		}

		pages = append(pages, PageInfo{
			Path:   path,
			Name:   name,
			Width:  width,
			Height: height,
			Bytes:  info.Size(),
		})
	}

	logger.Info("Scanned document",
		zap.String("dir", dir),
		zap.Int("pages", len(pages)),
		zap.Int("skipped", len(multierr.Errors(errs))),
	)
	return pages, errs
}
