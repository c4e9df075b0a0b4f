// Package capture implements the bounded-time network-response capture
// primitive strategies use to wait for one specific network call triggered
// by a page action. The same contract is satisfied by two producers: a live
// browser's network event stream and a direct HTTP fetch reporting its own
// response.
package capture

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dharmasatrya/awardsearch/internal/models"
)

// retainLimit bounds how many unclaimed responses are held for waiters that
// register after the response arrived.
const retainLimit = 32

// Response is one observed network response.
type Response struct {
	URL    string
	Method string
	Status int
	Body   []byte
}

// Predicate selects the response a waiter is interested in. Non-matching
// traffic is ignored, not buffered.
type Predicate func(Response) bool

// MatchURL matches a response by URL substring and method, the common case
// for both producers.
func MatchURL(substr, method string) Predicate {
	return func(r Response) bool {
		return strings.Contains(r.URL, substr) && strings.EqualFold(r.Method, method)
	}
}

type outcome struct {
	body []byte
	err  error
}

type waiter struct {
	match Predicate
	ch    chan outcome
}

type retained struct {
	resp Response
	out  outcome
}

// Controller routes observed responses to registered waiters. Each response
// is consumed by at most one waiter; a response with no matching waiter is
// retained so a wait that begins after the response arrived still gets it.
// One controller serves one search; it is never shared across searches.
type Controller struct {
	mu      sync.Mutex
	waiters []*waiter
	recent  []retained
}

func NewController() *Controller {
	return &Controller{}
}

// Observe delivers a response to the oldest waiter whose predicate matches,
// or retains it for a future waiter. Called by the browser recorder for each
// network response and by HTTP strategies for their own responses.
func (c *Controller) Observe(r Response) {
	c.deliver(r, outcome{body: r.Body})
}

// ObserveFailure marks a matching request as intercepted but unusable
// (blocked page, error banner). Waiters fail fast with ErrCaptureFailed
// instead of waiting out their timeout.
func (c *Controller) ObserveFailure(r Response) {
	c.deliver(r, outcome{err: models.ErrCaptureFailed})
}

func (c *Controller) deliver(r Response, out outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, w := range c.waiters {
		if w.match(r) {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			w.ch <- out
			return
		}
	}

	c.recent = append(c.recent, retained{resp: r, out: out})
	if len(c.recent) > retainLimit {
		c.recent = c.recent[1:]
	}
}

// AwaitMatchingResponse blocks until a response matching pred is observed,
// the match is reported unusable, the timeout elapses, or ctx is done.
// A matching response observed before the call returns immediately; the
// page action may therefore be triggered before or after the wait begins.
// Timeouts are a normal, recoverable outcome.
func (c *Controller) AwaitMatchingResponse(ctx context.Context, pred Predicate, timeout time.Duration) ([]byte, error) {
	c.mu.Lock()
	for i := len(c.recent) - 1; i >= 0; i-- {
		if pred(c.recent[i].resp) {
			out := c.recent[i].out
			c.recent = append(c.recent[:i], c.recent[i+1:]...)
			c.mu.Unlock()
			return out.body, out.err
		}
	}
	w := &waiter{
		match: pred,
		ch:    make(chan outcome, 1),
	}
	c.waiters = append(c.waiters, w)
	c.mu.Unlock()
	defer c.remove(w)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-w.ch:
		return out.body, out.err
	case <-timer.C:
		return nil, models.ErrCaptureTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Controller) remove(target *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, w := range c.waiters {
		if w == target {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}
