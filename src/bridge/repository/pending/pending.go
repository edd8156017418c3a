// Package pending stores the accumulators for outstanding eval requests,
// keyed by wire-level request id.
package pending

import (
	"context"
	"sort"
	"sync"

	tally "github.com/uber-go/tally/v4"

	"github.com/replbridge/replbridge/src/bridge/entity"
	"github.com/replbridge/replbridge/src/bridge/internal/errors"
	"github.com/replbridge/replbridge/src/bridge/mapper"
	"github.com/replbridge/replbridge/src/bridge/model"
)

// Repository is the PendingEval store.
type Repository interface {
	Create(ctx context.Context, req *entity.Request) (*entity.PendingEval, error)
	Get(ctx context.Context, id string) (*entity.PendingEval, error)
	Set(ctx context.Context, p *entity.PendingEval) error
	Delete(ctx context.Context, id string) error
	// Oldest returns the pending eval with the lowest creation sequence,
	// the interrupt target.
	Oldest(ctx context.Context) (*entity.PendingEval, error)
	Count(ctx context.Context) (int, error)
	// DeleteAll removes every pending eval and returns them, for surfacing
	// incomplete requests after a connection loss.
	DeleteAll(ctx context.Context) ([]*entity.PendingEval, error)
}

type repository struct {
	mu       sync.Mutex
	memstore map[string]*model.PendingEval
	nextSeq  uint64
	stats    tally.Scope
}

// New returns a repository to a key-value PendingEval data store.
func New(stats tally.Scope) Repository {
	return &repository{
		memstore: make(map[string]*model.PendingEval),
		stats:    stats,
	}
}

// Create registers a fresh accumulator for an eval request.
func (r *repository) Create(ctx context.Context, req *entity.Request) (*entity.PendingEval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req == nil {
		return nil, errors.New("can't create a pending eval from a nil request")
	}
	p := mapper.RequestToPendingEval(req, r.nextSeq)
	r.nextSeq++
	r.memstore[req.ID] = mapper.PendingEvalToModel(p)
	r.stats.Gauge("pending_evals").Update(float64(len(r.memstore)))
	return p, nil
}

// Get returns the PendingEval associated with the given request id.
func (r *repository) Get(ctx context.Context, id string) (*entity.PendingEval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.memstore[id]
	if !ok {
		return nil, &errors.RequestNotFoundError{ID: id}
	}
	return mapper.ModelToPendingEval(m)
}

// Set stores the PendingEval under its request id.
func (r *repository) Set(ctx context.Context, p *entity.PendingEval) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p == nil {
		return errors.New("can't save nil pending eval")
	}
	r.memstore[p.Request.ID] = mapper.PendingEvalToModel(p)
	r.stats.Gauge("pending_evals").Update(float64(len(r.memstore)))
	return nil
}

// Delete removes the PendingEval associated with the given request id.
func (r *repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.memstore, id)
	r.stats.Gauge("pending_evals").Update(float64(len(r.memstore)))
	return nil
}

// Oldest returns the pending eval with the lowest creation sequence.
func (r *repository) Oldest(ctx context.Context) (*entity.PendingEval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var oldest *model.PendingEval
	for _, m := range r.memstore {
		if oldest == nil || m.Seq < oldest.Seq {
			oldest = m
		}
	}
	if oldest == nil {
		return nil, &errors.RequestNotFoundError{ID: ""}
	}
	return mapper.ModelToPendingEval(oldest)
}

// Count returns the number of outstanding evals.
func (r *repository) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.memstore), nil
}

// DeleteAll removes and returns every pending eval, oldest first.
func (r *repository) DeleteAll(ctx context.Context) ([]*entity.PendingEval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entity.PendingEval, 0, len(r.memstore))
	for id, m := range r.memstore {
		p, err := mapper.ModelToPendingEval(m)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
		delete(r.memstore, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	r.stats.Gauge("pending_evals").Update(0)
	return out, nil
}
