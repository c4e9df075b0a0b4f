package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/awardsearch/internal/models"
)

func TestAwaitDeliversMatchingBody(t *testing.T) {
	ctrl := NewController()

	go func() {
		time.Sleep(10 * time.Millisecond)
		ctrl.Observe(Response{
			URL:    "https://www.example.com/shop/ow/search?x=1",
			Method: "POST",
			Status: 200,
			Body:   []byte(`{"ok":true}`),
		})
	}()

	body, err := ctrl.AwaitMatchingResponse(context.Background(),
		MatchURL("/shop/ow/search", "POST"), time.Second)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(body))
}

func TestAwaitIgnoresNonMatchingTraffic(t *testing.T) {
	ctrl := NewController()

	go func() {
		ctrl.Observe(Response{URL: "https://cdn.example.com/app.js", Method: "GET"})
		ctrl.Observe(Response{URL: "https://www.example.com/shop/ow/search", Method: "GET"})
		time.Sleep(10 * time.Millisecond)
		ctrl.Observe(Response{
			URL:    "https://www.example.com/shop/ow/search",
			Method: "POST",
			Body:   []byte("match"),
		})
	}()

	body, err := ctrl.AwaitMatchingResponse(context.Background(),
		MatchURL("/shop/ow/search", "POST"), time.Second)
	require.NoError(t, err)
	require.Equal(t, []byte("match"), body)
}

func TestAwaitTimesOutWithoutHanging(t *testing.T) {
	ctrl := NewController()

	start := time.Now()
	_, err := ctrl.AwaitMatchingResponse(context.Background(),
		func(Response) bool { return false }, 50*time.Millisecond)

	require.ErrorIs(t, err, models.ErrCaptureTimeout)
	require.Less(t, time.Since(start), time.Second)
}

func TestAwaitFailsFastOnUnusableMatch(t *testing.T) {
	ctrl := NewController()

	go func() {
		time.Sleep(10 * time.Millisecond)
		ctrl.ObserveFailure(Response{
			URL:    "https://www.example.com/shop/ow/search",
			Method: "POST",
			Status: 403,
		})
	}()

	start := time.Now()
	_, err := ctrl.AwaitMatchingResponse(context.Background(),
		MatchURL("/shop/ow/search", "POST"), 10*time.Second)

	require.ErrorIs(t, err, models.ErrCaptureFailed)
	require.Less(t, time.Since(start), time.Second)
}

func TestAwaitHonorsContextCancel(t *testing.T) {
	ctrl := NewController()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := ctrl.AwaitMatchingResponse(ctx,
		func(Response) bool { return false }, 10*time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

// A response that arrives before the wait begins is retained and returned
// on registration. Both producers trigger their network action first and
// await second, so the race is routine, not exceptional.
func TestAwaitReturnsResponseObservedBeforeWait(t *testing.T) {
	ctrl := NewController()

	ctrl.Observe(Response{
		URL:    "https://www.example.com/shop/ow/search",
		Method: "POST",
		Status: 200,
		Body:   []byte(`{"early":true}`),
	})

	body, err := ctrl.AwaitMatchingResponse(context.Background(),
		MatchURL("/shop/ow/search", "POST"), 100*time.Millisecond)
	require.NoError(t, err)
	require.JSONEq(t, `{"early":true}`, string(body))
}

func TestAwaitReturnsFailureObservedBeforeWait(t *testing.T) {
	ctrl := NewController()

	ctrl.ObserveFailure(Response{
		URL:    "https://www.example.com/shop/ow/search",
		Method: "POST",
		Status: 403,
	})

	_, err := ctrl.AwaitMatchingResponse(context.Background(),
		MatchURL("/shop/ow/search", "POST"), 100*time.Millisecond)
	require.ErrorIs(t, err, models.ErrCaptureFailed)
}

// Each observed response satisfies exactly one wait. A second wait with the
// same predicate does not see an already-consumed response.
func TestResponseConsumedByOneWaiterOnly(t *testing.T) {
	ctrl := NewController()

	ctrl.Observe(Response{
		URL:    "https://x/search?priceType=miles",
		Method: "POST",
		Body:   []byte(`{"route":"JFK-LHR"}`),
	})

	body, err := ctrl.AwaitMatchingResponse(context.Background(),
		MatchURL("priceType=miles", "POST"), 100*time.Millisecond)
	require.NoError(t, err)
	require.JSONEq(t, `{"route":"JFK-LHR"}`, string(body))

	_, err = ctrl.AwaitMatchingResponse(context.Background(),
		MatchURL("priceType=miles", "POST"), 50*time.Millisecond)
	require.ErrorIs(t, err, models.ErrCaptureTimeout)
}

func TestConcurrentWaitersGetDistinctResponses(t *testing.T) {
	ctrl := NewController()

	type result struct {
		body []byte
		err  error
	}
	cashCh := make(chan result, 1)
	pointsCh := make(chan result, 1)

	go func() {
		body, err := ctrl.AwaitMatchingResponse(context.Background(),
			MatchURL("priceType=cash", "POST"), time.Second)
		cashCh <- result{body, err}
	}()
	go func() {
		body, err := ctrl.AwaitMatchingResponse(context.Background(),
			MatchURL("priceType=miles", "POST"), time.Second)
		pointsCh <- result{body, err}
	}()

	time.Sleep(10 * time.Millisecond)
	ctrl.Observe(Response{URL: "https://x/search?priceType=cash", Method: "POST", Body: []byte("cash")})
	ctrl.Observe(Response{URL: "https://x/search?priceType=miles", Method: "POST", Body: []byte("miles")})

	cash := <-cashCh
	points := <-pointsCh
	require.NoError(t, cash.err)
	require.NoError(t, points.err)
	require.Equal(t, []byte("cash"), cash.body)
	require.Equal(t, []byte("miles"), points.body)
}
