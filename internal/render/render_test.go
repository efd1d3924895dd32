package render

import (
	"image"
	"testing"
)

func TestSameScale(t *testing.T) {
	if !SameScale(1.0, 1.0) {
		t.Fatalf("expected equal scales to match")
	}
	if !SameScale(1.0, 1.0+1e-15) {
		t.Fatalf("expected scales within tolerance to match")
	}
	if SameScale(1.0, 1.05) {
		t.Fatalf("expected 1.0 and 1.05 to differ")
	}
}

func TestSameTarget(t *testing.T) {
	a := Request{Page: 1, Scale: 2, Requester: 1}
	b := Request{Page: 1, Scale: 2, Requester: 7}
	if !a.SameTarget(b) {
		t.Fatalf("requester must not affect target equality")
	}
	if a.SameTarget(Request{Page: 2, Scale: 2}) {
		t.Fatalf("different pages must not match")
	}
}

func TestPixelSize(t *testing.T) {
	got := PixelSize(612, 792, 1.5, 2)
	want := image.Point{X: 1836, Y: 2376}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got = PixelSize(100, 100, 0.333, 1)
	if got != (image.Point{X: 33, Y: 33}) {
		t.Fatalf("expected rounding to nearest pixel, got %v", got)
	}
}

func TestFits(t *testing.T) {
	if !Fits(100, 100, 2, 1, 40_000) {
		t.Fatalf("200x200 must fit into 40000 pixels")
	}
	if Fits(100, 100, 2, 1.5, 40_000) {
		t.Fatalf("300x300 must not fit into 40000 pixels")
	}
	if Fits(100, 100, 1e200, 1, 1<<62) {
		t.Fatalf("huge scales must not fit")
	}
}

func TestUsable(t *testing.T) {
	if Usable(nil) {
		t.Fatalf("nil image must not be usable")
	}
	if Usable(image.NewRGBA(image.Rect(0, 0, 0, 10))) {
		t.Fatalf("empty image must not be usable")
	}
	if !Usable(image.NewRGBA(image.Rect(0, 0, 1, 1))) {
		t.Fatalf("1x1 image must be usable")
	}
}
