package document

import (
	"fmt"

	"go.uber.org/zap"

	"pageview/internal/render"
)

// Document is a render.Document backed by a directory of page files.
type Document interface {
	render.Document
	Pages() []PageInfo
}

// Open loads the document in dir with the named backend.
func Open(backend, dir string, log *zap.Logger) (Document, error) {
	var (
		doc Document
		err error
	)
	switch backend {
	case "vips":
		log.Info("Using vips backend", zap.String("dir", dir))
		doc, err = OpenVips(dir, log)
	case "imaging":
		log.Info("Using imaging backend", zap.String("dir", dir))
		doc, err = OpenImaging(dir, log)
	default:
		return nil, fmt.Errorf("unknown document backend: %s (supported: vips, imaging)", backend)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}
