package pipeline

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// Source yields frames in order. It returns io.EOF when there are no more frames
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// Sink consumes results in the same order frames were produced
type Sink interface {
	Emit(ctx context.Context, result Result) error
}

// SourceFunc adapts function to Source
type SourceFunc func(ctx context.Context) (Frame, error)

func (f SourceFunc) Next(ctx context.Context) (Frame, error) { return f(ctx) }

// SinkFunc adapts function to Sink
type SinkFunc func(ctx context.Context, result Result) error

func (f SinkFunc) Emit(ctx context.Context, result Result) error { return f(ctx, result) }

// SliceSource returns frames from the slice one by one
func SliceSource(frames []Frame) Source {
	i := 0
	return SourceFunc(func(ctx context.Context) (Frame, error) {
		if i >= len(frames) {
			return Frame{}, io.EOF
		}
		frame := frames[i]
		i++
		return frame, nil
	})
}

// Run pulls frames from source, processes them one at a time and hands results to sink.
// Returns nil when source is exhausted. Cancellation is honoured between frames only.
func (p *Processor) Run(ctx context.Context, source Source, sink Sink) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "can't read frame")
		}
		result, err := p.ProcessFrame(ctx, frame)
		if err != nil {
			return err
		}
		if err := sink.Emit(ctx, result); err != nil {
			return errors.Wrapf(err, "can't emit frame %d", result.FrameIndex)
		}
	}
}
