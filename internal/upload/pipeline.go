package upload

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Pipeline drives presign -> transfer -> commit for any resource kind.
// It holds no per-attempt state, so one Pipeline may serve concurrent attempts.
type Pipeline struct {
	transfer Transferer
	logger   zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a Pipeline that moves bytes with transfer.
func NewPipeline(transfer Transferer, opts ...Option) *Pipeline {
	p := &Pipeline{transfer: transfer, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one attempt. A nil file bypasses the pipeline and issues the
// strategy's direct metadata request instead. observe may be nil.
func (p *Pipeline) Run(ctx context.Context, file *File, s Strategy, observe Observer) (*CommitResult, error) {
	if err := s.validate(file != nil); err != nil {
		return nil, err
	}
	if file == nil {
		return p.direct(ctx, s)
	}

	logger := p.logger.With().Str("strategy", s.Name).Str("file", file.Name).Logger()
	rng := s.progressRange()
	tr := newTracker(observe)
	tr.start(PresignPercent)

	target, err := s.Presign(ctx, file.FileInfo)
	if err == nil && (target == nil || target.UploadURL == "" || target.Key == "") {
		err = ErrEmptyTarget
	}
	if err != nil {
		tr.fail()
		logger.Debug().Err(err).Msg("presign failed")
		return nil, &PresignError{Err: err}
	}
	logger = logger.With().Str("key", target.Key).Logger()
	tr.advance(rng.Low)

	lastNative := -1.0
	tr.openTransfer()
	err = p.transfer.Put(ctx, target, file, func(loaded, total int64) {
		if total <= 0 {
			return
		}
		native := math.Round(float64(loaded) * 100 / float64(total))
		if native == lastNative {
			return
		}
		lastNative = native
		tr.advanceTransfer(rng.Map(native))
	})
	tr.closeTransfer()
	if err != nil {
		tr.fail()
		logger.Debug().Err(err).Msg("transfer failed")
		return nil, &TransferError{Key: target.Key, Err: err}
	}

	tr.advance(rng.High)
	res, err := s.Commit(ctx, target.Key)
	if err != nil {
		tr.fail()
		logger.Warn().Err(err).Msg("object stored but commit failed")
		return nil, &CommitError{Key: target.Key, Err: err}
	}
	tr.succeed()
	logger.Debug().Msg("upload committed")
	return res, nil
}

func (p *Pipeline) direct(ctx context.Context, s Strategy) (*CommitResult, error) {
	res, err := s.Direct(ctx)
	if err != nil {
		return nil, &DirectError{Err: fmt.Errorf("%s: %w", s.Name, err)}
	}
	return res, nil
}
