package upload

import (
	"context"
	"encoding/json"
	"fmt"
)

// PresignPercent is reported as soon as an attempt starts, before any byte moves.
const PresignPercent = 1.0

// Target is a single-use destination returned by the presign service.
type Target struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
}

// CommitResult is the record (or records) the commit service created for a key.
type CommitResult struct {
	Key   string            `json:"key,omitempty"`
	Meta  json.RawMessage   `json:"meta,omitempty"`
	Items []json.RawMessage `json:"items,omitempty"`

	// Body is the response payload exactly as the server returned it.
	Body json.RawMessage `json:"-"`
}

// DecodeCommitResult keeps raw as Body and lifts key, meta and items when the
// payload has that shape. A single typed record leaves those fields empty.
func DecodeCommitResult(raw []byte) (*CommitResult, error) {
	res := &CommitResult{}
	if err := json.Unmarshal(raw, res); err != nil {
		return nil, fmt.Errorf("decoding commit result: %w", err)
	}
	res.Body = append(json.RawMessage(nil), raw...)
	return res, nil
}

// Range maps native transfer percent [0,100] into [Low,High] of the overall
// scale. Below Low is reserved for presign, above High for commit.
type Range struct {
	Low  float64
	High float64
}

// DefaultRange matches the presign 5% / commit 95% checkpoints.
var DefaultRange = Range{Low: 5, High: 95}

// Validate checks that the range is increasing and leaves headroom on both sides.
func (r Range) Validate() error {
	if r.Low <= PresignPercent || r.High >= 100 || r.Low >= r.High {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidRange, r.Low, r.High)
	}
	return nil
}

// Map converts a native transfer percent into the overall scale.
func (r Range) Map(native float64) float64 {
	if native < 0 {
		native = 0
	}
	if native > 100 {
		native = 100
	}
	return r.Low + native*(r.High-r.Low)/100
}

type (
	// PresignFunc obtains an upload target for file. The resource context is
	// bound into the closure by whoever builds the strategy.
	PresignFunc func(ctx context.Context, file FileInfo) (*Target, error)
	// CommitFunc turns a stored key into a durable record.
	CommitFunc func(ctx context.Context, key string) (*CommitResult, error)
	// DirectFunc creates or updates the record from metadata alone.
	DirectFunc func(ctx context.Context) (*CommitResult, error)
)

// Strategy plugs the endpoints of one resource kind into the pipeline.
type Strategy struct {
	Name    string
	Presign PresignFunc
	Commit  CommitFunc
	Direct  DirectFunc
	Range   Range
}

func (s Strategy) progressRange() Range {
	if s.Range == (Range{}) {
		return DefaultRange
	}
	return s.Range
}

func (s Strategy) validate(withFile bool) error {
	if !withFile {
		if s.Direct == nil {
			return fmt.Errorf("%w: %s has no metadata endpoint and no file was given", ErrInvalidStrategy, s.Name)
		}
		return nil
	}
	if s.Presign == nil || s.Commit == nil {
		return fmt.Errorf("%w: %s needs both presign and commit", ErrInvalidStrategy, s.Name)
	}
	if err := s.progressRange().Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidStrategy, s.Name, err)
	}
	return nil
}
