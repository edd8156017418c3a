package dispatcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/replbridge/replbridge/src/bridge/entity"
)

// handleFragment merges one response fragment into its pending eval. nREPL
// fragments carry the request id; prepl fragments are attributed to the
// request currently in flight.
func (d *dispatcher) handleFragment(ctx context.Context, f entity.Fragment) {
	if f.Kind == entity.FragmentNewSession {
		// Session handshakes are handled at dial time.
		return
	}

	id := f.RequestID
	if id == "" {
		id = d.inflight
	}
	if id == "" {
		d.orphan(f)
		return
	}

	p, err := d.pending.Get(ctx, id)
	if err != nil {
		d.orphan(f)
		return
	}

	switch f.Kind {
	case entity.FragmentValue:
		p.Value = f.Text
		p.Namespace = f.Namespace
		d.pending.Set(ctx, p)
	case entity.FragmentOut, entity.FragmentErr:
		p.Chunks = append(p.Chunks, entity.OutputChunk{Kind: f.Kind, Text: f.Text})
		d.pending.Set(ctx, p)
	case entity.FragmentException:
		p.Exception = f.Text
		d.pending.Set(ctx, p)
	case entity.FragmentDone:
		d.complete(ctx, p)
	default:
		d.orphan(f)
	}
}

// complete flushes a finished eval to the log and frees its slot.
func (d *dispatcher) complete(ctx context.Context, p *entity.PendingEval) {
	if err := d.log.AppendEval(p); err != nil {
		d.logger.Errorw("appending eval to log", zap.String("id", p.Request.ID), zap.Error(err))
	}
	d.pending.Delete(ctx, p.Request.ID)
	d.stats.Counter("evals_completed").Inc(1)

	if d.inflight == p.Request.ID {
		d.sendNextQueued(ctx)
	}
}

// orphan counts fragments that cannot be attributed to any request. They
// are dropped rather than guessed at.
func (d *dispatcher) orphan(f entity.Fragment) {
	d.stats.Counter("orphan_fragments").Inc(1)
	d.logger.Debugw("dropping orphan fragment",
		zap.String("request_id", f.RequestID), zap.String("kind", string(f.Kind)))
}
