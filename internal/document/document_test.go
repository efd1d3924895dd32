package document

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"pageview/internal/render"
)

func writePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
}

func TestScanOrdersPagesByName(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "002.png", 30, 40)
	writePNG(t, dir, "001.png", 10, 20)
	writePNG(t, dir, "010.png", 50, 60)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	pages, err := Scan(dir, imagingExtensions, probeImaging, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	want := []string{"001.png", "002.png", "010.png"}
	for i, p := range pages {
		if p.Name != want[i] {
			t.Fatalf("page %d: expected %s, got %s", i, want[i], p.Name)
		}
	}
	if pages[1].Width != 30 || pages[1].Height != 40 {
		t.Fatalf("unexpected size %dx%d", pages[1].Width, pages[1].Height)
	}
	if pages[0].Bytes == 0 {
		t.Fatalf("expected file size to be recorded")
	}
}

func TestScanCollectsErrors(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 4, 4)
	for _, name := range []string{"b.png", "c.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("not an image"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	pages, err := Scan(dir, imagingExtensions, probeImaging, zaptest.NewLogger(t))
	if len(pages) != 1 || pages[0].Name != "a.png" {
		t.Fatalf("expected the readable page to survive, got %v", pages)
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Fatalf("expected 2 errors, got %d (%v)", n, err)
	}
}

func TestScanMissingDirectory(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"), imagingExtensions, probeImaging, zaptest.NewLogger(t))
	if err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestImagingDocumentRender(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "page1.png", 40, 20)
	writePNG(t, dir, "page2.png", 10, 10)

	doc, err := Open("imaging", dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if doc.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", doc.PageCount())
	}
	if w, h := doc.PagePointSize(0); w != 40 || h != 20 {
		t.Fatalf("expected 40x20 points, got %vx%v", w, h)
	}

	img, err := doc.Render(context.Background(), 0, image.Point{X: 80, Y: 40})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if img.Bounds().Size() != (image.Point{X: 80, Y: 40}) {
		t.Fatalf("expected 80x40 render, got %v", img.Bounds())
	}
}

func TestImagingDocumentRenderCancelled(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "page.png", 8, 8)

	doc, err := OpenImaging(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	img, err := doc.Render(ctx, 0, image.Point{X: 4, Y: 4})
	if err != context.Canceled || img != nil {
		t.Fatalf("expected cancelled render, got %v, %v", img, err)
	}
}

func TestImagingDocumentRejectsEmptySize(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "page.png", 8, 8)

	doc, err := OpenImaging(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := doc.Render(context.Background(), 0, image.Point{}); err == nil {
		t.Fatalf("expected error for empty render size")
	}
}

func TestImagingDocumentRejectsHugeSize(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "page.png", 8, 8)

	doc, err := OpenImaging(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	_, err = doc.Render(context.Background(), 0, image.Point{X: 100000, Y: 100000})
	if !errors.Is(err, render.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestDocumentPageOutOfRangePanics(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "page.png", 8, 8)

	doc, err := OpenImaging(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for page out of range")
		}
	}()
	doc.PagePointSize(1)
}

func TestOpenEmptyDirectory(t *testing.T) {
	if _, err := Open("imaging", t.TempDir(), zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for empty document")
	}
	if _, err := Open("postscript", t.TempDir(), zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestPagesReturnsCopy(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "page.png", 8, 8)

	doc, err := OpenImaging(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	list := doc.Pages()
	list[0].Width = 999
	if w, _ := doc.PagePointSize(0); w != 8 {
		t.Fatalf("Pages must not expose the internal table")
	}
}
