package dispatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/replbridge/replbridge/src/bridge/entity"
	"github.com/replbridge/replbridge/src/bridge/factory"
	"github.com/replbridge/replbridge/src/bridge/repository/pending"
)

func newBareDispatcher(t *testing.T) (*dispatcher, string) {
	t.Helper()
	lb, path := newTestLogBuf(t)
	return &dispatcher{
		logger:  zap.NewNop().Sugar(),
		stats:   tally.NoopScope,
		pending: pending.New(tally.NoopScope),
		log:     lb,
	}, path
}

func TestHandleFragmentMergesChunks(t *testing.T) {
	d, _ := newBareDispatcher(t)
	ctx := context.Background()

	req := factory.EvalRequest("(println \"hi\")")
	_, err := d.pending.Create(ctx, req)
	require.NoError(t, err)

	d.handleFragment(ctx, entity.Fragment{RequestID: req.ID, Kind: entity.FragmentOut, Text: "hi\n"})
	d.handleFragment(ctx, entity.Fragment{RequestID: req.ID, Kind: entity.FragmentErr, Text: "warn\n"})
	d.handleFragment(ctx, factory.ValueFragment(req.ID, 3))

	p, err := d.pending.Get(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, p.Chunks, 2)
	assert.Equal(t, entity.FragmentOut, p.Chunks[0].Kind)
	assert.Equal(t, entity.FragmentErr, p.Chunks[1].Kind)
	assert.Equal(t, "3", p.Value)
	assert.Equal(t, "user", p.Namespace)
}

func TestHandleFragmentDoneCompletesEval(t *testing.T) {
	d, path := newBareDispatcher(t)
	ctx := context.Background()

	req := factory.EvalRequest("(+ 1 2)")
	_, err := d.pending.Create(ctx, req)
	require.NoError(t, err)

	d.handleFragment(ctx, factory.ValueFragment(req.ID, 3))
	d.handleFragment(ctx, factory.DoneFragment(req.ID))

	n, _ := d.pending.Count(ctx)
	assert.Zero(t, n)
	assert.Contains(t, readLog(t, path), "\n3\n")
}

func TestHandleFragmentException(t *testing.T) {
	d, path := newBareDispatcher(t)
	ctx := context.Background()

	req := factory.EvalRequest("(/ 1 0)")
	_, err := d.pending.Create(ctx, req)
	require.NoError(t, err)

	d.handleFragment(ctx, entity.Fragment{
		RequestID: req.ID,
		Kind:      entity.FragmentException,
		Text:      "Divide by zero\nclojure.lang.Numbers divide",
	})
	d.handleFragment(ctx, factory.DoneFragment(req.ID))

	log := readLog(t, path)
	assert.Contains(t, log, ";  Divide by zero")
	assert.Contains(t, log, ";  clojure.lang.Numbers divide")
}

func TestHandleFragmentOrphan(t *testing.T) {
	d, _ := newBareDispatcher(t)
	ctx := context.Background()

	// Unknown request id and no inflight prepl eval: dropped silently.
	d.handleFragment(ctx, entity.Fragment{RequestID: "999", Kind: entity.FragmentValue, Text: "3"})
	d.handleFragment(ctx, entity.Fragment{Kind: entity.FragmentOut, Text: "stray"})

	n, _ := d.pending.Count(ctx)
	assert.Zero(t, n)
}

func TestHandleFragmentPreplAttribution(t *testing.T) {
	d, _ := newBareDispatcher(t)
	ctx := context.Background()

	req := factory.EvalRequest("(+ 1 2)")
	_, err := d.pending.Create(ctx, req)
	require.NoError(t, err)
	d.inflight = req.ID

	d.handleFragment(ctx, entity.Fragment{Kind: entity.FragmentOut, Text: "hi\n"})
	d.handleFragment(ctx, entity.Fragment{Kind: entity.FragmentValue, Text: "3", Namespace: "user"})

	p, err := d.pending.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, p.Chunks, 1)
	assert.Equal(t, "3", p.Value)
}

func TestHandleFragmentNewSessionIgnored(t *testing.T) {
	d, _ := newBareDispatcher(t)
	ctx := context.Background()

	d.handleFragment(ctx, entity.Fragment{Kind: entity.FragmentNewSession, Text: "abc"})
	n, _ := d.pending.Count(ctx)
	assert.Zero(t, n)
}
