package vision

import "context"

// Metrics is the detector's final gesture snapshot, persisted alongside the
// feedback report.
type Metrics struct {
	SmileCount       int `json:"smileCount"`
	EyeTouchCount    int `json:"eyeTouchCount"`
	HandGestureCount int `json:"handGestureCount"`
}

// Detector is the consumed interface of the external body-language
// detector. It is an injected capability object owned by the session
// controller; detection internals live in the sidecar process.
type Detector interface {
	// Initialize prepares the detector for a session.
	Initialize(ctx context.Context) error

	// Reset clears all counters.
	Reset()

	// Detect submits one camera frame, fire-and-forget.
	Detect(frame []byte)

	// Metrics returns the current counter snapshot.
	Metrics() Metrics
}
