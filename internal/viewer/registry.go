// Package viewer tracks remote viewers and the page slots they display. It
// is the provider's Requester: a slot is actual while its page lies in the
// viewer's visible range, and notifications are queued per viewer until the
// viewer polls them.
package viewer

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"pageview/internal/render"
)

var ErrUnknownViewer = errors.New("unknown viewer")

// slot is a page shown by a viewer. Pinned slots have no viewer.
type slot struct {
	viewer string
	page   int
}

type session struct {
	first, last int // visible range, inclusive; empty when last < first
	slots       map[int]render.RequesterID
	ready       map[int]struct{}
	wake        chan struct{}
}

type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	slots    map[render.RequesterID]slot
	pinned   map[int]render.RequesterID
	nextID   render.RequesterID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		slots:    make(map[render.RequesterID]slot),
		pinned:   make(map[int]render.RequesterID),
	}
}

// Register creates a viewer with nothing visible and returns its id.
func (r *Registry) Register() string {
	id := uuid.New().String()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &session{
		first: 0,
		last:  -1,
		slots: make(map[int]render.RequesterID),
		ready: make(map[int]struct{}),
		wake:  make(chan struct{}, 1),
	}
	return id
}

// Remove forgets the viewer. Its slots stop being actual.
func (r *Registry) Remove(viewerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[viewerID]
	if !ok {
		return ErrUnknownViewer
	}
	for _, id := range s.slots {
		delete(r.slots, id)
	}
	delete(r.sessions, viewerID)
	return nil
}

// SetViewport sets the inclusive range of visible pages.
func (r *Registry) SetViewport(viewerID string, first, last int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[viewerID]
	if !ok {
		return ErrUnknownViewer
	}
	s.first, s.last = first, last
	return nil
}

// Slot returns the requester id of the viewer's page slot, creating it on
// first use.
func (r *Registry) Slot(viewerID string, page int) (render.RequesterID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[viewerID]
	if !ok {
		return 0, ErrUnknownViewer
	}
	if id, ok := s.slots[page]; ok {
		return id, nil
	}
	r.nextID++
	id := r.nextID
	s.slots[page] = id
	r.slots[id] = slot{viewer: viewerID, page: page}
	return id, nil
}

// Pin returns a slot for page that no viewer owns. It stays actual forever
// and nothing receives its notifications; warmup renders use it.
func (r *Registry) Pin(page int) render.RequesterID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.pinned[page]; ok {
		return id
	}
	r.nextID++
	id := r.nextID
	r.pinned[page] = id
	r.slots[id] = slot{page: page}
	return id
}

func (r *Registry) IsActual(id render.RequesterID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sl, ok := r.slots[id]
	if !ok {
		return false
	}
	if sl.viewer == "" {
		return true
	}
	s := r.sessions[sl.viewer]
	return sl.page >= s.first && sl.page <= s.last
}

// Notify marks the slot's page ready and wakes a pending poll. It returns
// false when nobody receives the notification: for slots that no longer
// exist and for pinned slots.
func (r *Registry) Notify(id render.RequesterID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sl, ok := r.slots[id]
	if !ok {
		return false
	}
	if sl.viewer == "" {
		return false
	}
	s := r.sessions[sl.viewer]
	s.ready[sl.page] = struct{}{}
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// Poll waits until at least one page of the viewer is ready or ctx ends and
// returns the ready pages in ascending order. A nil slice with a nil error
// means ctx ended first.
func (r *Registry) Poll(ctx context.Context, viewerID string) ([]int, error) {
	for {
		r.mu.Lock()
		s, ok := r.sessions[viewerID]
		if !ok {
			r.mu.Unlock()
			return nil, ErrUnknownViewer
		}
		if len(s.ready) > 0 {
			pages := make([]int, 0, len(s.ready))
			for page := range s.ready {
				pages = append(pages, page)
			}
			s.ready = make(map[int]struct{})
			r.mu.Unlock()
			sort.Ints(pages)
			return pages, nil
		}
		wake := s.wake
		r.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return nil, nil
		}
	}
}

// Viewers is the number of registered viewers.
func (r *Registry) Viewers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
