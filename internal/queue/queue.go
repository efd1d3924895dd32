// Package queue implements the pending render queue. It holds at most one
// request per page and keeps requests in the order their page was first
// enqueued.
package queue

import (
	"container/list"

	"pageview/internal/render"
)

// Queue is not safe for concurrent use.
type Queue struct {
	order  *list.List
	byPage map[int]*list.Element
}

func New() *Queue {
	return &Queue{
		order:  list.New(),
		byPage: make(map[int]*list.Element),
	}
}

// Coalesce retargets the pending request for req.Page, if there is one, and
// reports whether it did. Scale and requester are both replaced; the entry
// keeps its position in the queue.
func (q *Queue) Coalesce(req render.Request) bool {
	elem, ok := q.byPage[req.Page]
	if !ok {
		return false
	}
	pending := elem.Value.(*render.Request)
	pending.Scale = req.Scale
	pending.Requester = req.Requester
	return true
}

// Push appends req. It panics if the page is already queued.
func (q *Queue) Push(req render.Request) {
	if _, ok := q.byPage[req.Page]; ok {
		panic("queue: page already pending")
	}
	r := req
	q.byPage[req.Page] = q.order.PushBack(&r)
}

// Pop removes and returns the oldest request.
func (q *Queue) Pop() (render.Request, bool) {
	front := q.order.Front()
	if front == nil {
		return render.Request{}, false
	}
	req := *front.Value.(*render.Request)
	q.order.Remove(front)
	delete(q.byPage, req.Page)
	return req, true
}

// PruneFront drops leading requests for which isActual reports false,
// stopping at the first live one. It returns the number dropped.
func (q *Queue) PruneFront(isActual func(render.RequesterID) bool) int {
	dropped := 0
	for front := q.order.Front(); front != nil; front = q.order.Front() {
		req := front.Value.(*render.Request)
		if isActual(req.Requester) {
			break
		}
		q.order.Remove(front)
		delete(q.byPage, req.Page)
		dropped++
	}
	return dropped
}

// Find returns the pending request for page.
func (q *Queue) Find(page int) (render.Request, bool) {
	elem, ok := q.byPage[page]
	if !ok {
		return render.Request{}, false
	}
	return *elem.Value.(*render.Request), true
}

func (q *Queue) Len() int {
	return q.order.Len()
}

// Snapshot returns the pending requests front to back.
func (q *Queue) Snapshot() []render.Request {
	out := make([]render.Request, 0, q.order.Len())
	for e := q.order.Front(); e != nil; e = e.Next() {
		out = append(out, *e.Value.(*render.Request))
	}
	return out
}

func (q *Queue) Clear() {
	q.order.Init()
	q.byPage = make(map[int]*list.Element)
}
