package models

import "errors"

// Sentinel errors shared between the engine, the strategies, and the
// session store. "No availability" and "failure" are distinct on purpose:
// the engine's control flow differs completely between the two.
var (
	// ErrNoAvailability is a confirmed empty result for the route/date.
	// It is terminal for the whole airline search, not just one strategy.
	ErrNoAvailability = errors.New("no award availability for this route and date")

	// ErrAllStrategiesFailed is returned after every strategy raised a
	// non-"no result" error across all engine attempts.
	ErrAllStrategiesFailed = errors.New("all strategies failed")

	// ErrNoActiveCredentials means the session store has nothing to replay
	// for a target; callers fall back to a strategy that mints new ones.
	ErrNoActiveCredentials = errors.New("no active session credentials")

	// ErrCaptureFailed means a matching request was observed but produced
	// no usable body (blocked page, error banner).
	ErrCaptureFailed = errors.New("capture matched but yielded no usable body")

	// ErrCaptureTimeout means no matching traffic arrived in time.
	ErrCaptureTimeout = errors.New("capture timed out")
)
