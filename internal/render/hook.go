package render

import "time"

// Pass names the two ways a pipeline walks its operations.
type Pass string

const (
	PassApply       Pass = "apply"
	PassFingerprint Pass = "fingerprint"
)

// Event describes one operation invocation. Start events carry only Pass,
// Index and Kind.
type Event struct {
	Pass  Pass
	Index int
	Kind  string
	// Fired reports whether the step replaced the image (apply) or predicts
	// that it would (fingerprint).
	Fired bool
	// Continue is false when the step stopped the pass.
	Continue bool
	// Fingerprint is the accumulator after the step (fingerprint pass only).
	Fingerprint int64
	Err         error
	Elapsed     time.Duration
}

// Hook observes pipeline steps. It must not assume anything about other
// concurrent invocations and cannot influence the pass.
type Hook interface {
	Start(ev Event)
	Stop(ev Event)
}
