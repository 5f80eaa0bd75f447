package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/teslashibe/go-edgeview/pkg/source"
)

// Feed pulls frames from src into mb until ctx ends, the source is
// exhausted, or the mailbox closes. io.EOF style exhaustion is reported
// as source.ErrExhausted.
func Feed(ctx context.Context, src source.Source, mb *Mailbox) error {
	var seq uint64
	for {
		f, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, source.ErrExhausted) {
				return err
			}
			return fmt.Errorf("pipeline: read frame: %w", err)
		}
		seq++
		if f.Seq == 0 {
			f.Seq = seq
		}
		if !mb.Publish(f) {
			return nil
		}
	}
}
