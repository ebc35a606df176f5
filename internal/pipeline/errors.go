package pipeline

import (
	"errors"
	"fmt"
	"time"

	"asset-thumbnailer/internal/encode"
)

// ErrMissingAsset is returned when no asset path was given.
var ErrMissingAsset = errors.New("pipeline: asset path is required")

// PreconditionError reports asset geometry the normalizer cannot frame,
// such as an empty or zero-extent bounding box.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "pipeline: precondition failed: " + e.Reason
}

// ReadinessTimeoutError reports that scene setup did not signal ready in time.
type ReadinessTimeoutError struct {
	After time.Duration
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("pipeline: scene not ready after %s", e.After)
}

// CaptureError reports a failed frame capture. Frame is zero-based.
type CaptureError struct {
	Frame int
	Err   error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("pipeline: capture frame %d: %v", e.Frame, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// EncodeError reports a failed artifact write or frame merge.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("pipeline: encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// CleanupWarning is a failed transient frame deletion. It is logged and
// never fails a run.
type CleanupWarning = encode.CleanupWarning
