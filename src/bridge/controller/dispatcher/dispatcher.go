// Package dispatcher implements the bridge business logic. A single event
// loop owns the REPL connection: editor commands arrive through the inbox,
// response fragments arrive from the connection's reader goroutine, and the
// loop is the only writer to the pending-eval store and the eval log.
package dispatcher

import (
	"context"
	goerrors "errors"
	"fmt"
	"sync"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/replbridge/replbridge/src/bridge/entity"
	notifier "github.com/replbridge/replbridge/src/bridge/gateway/editor-client"
	replclient "github.com/replbridge/replbridge/src/bridge/gateway/repl-client"
	"github.com/replbridge/replbridge/src/bridge/internal/editorrpc"
	"github.com/replbridge/replbridge/src/bridge/internal/errors"
	"github.com/replbridge/replbridge/src/bridge/internal/logbuf"
	"github.com/replbridge/replbridge/src/bridge/internal/serverinfofile"
	"github.com/replbridge/replbridge/src/bridge/repository/pending"
)

const _inboxSize = 64

// Controller orchestrates the bridge between editor commands and the REPL
// connection. It doubles as the command sink for the editor RPC layer.
type Controller interface {
	// Enqueue hands one editor command to the event loop. Never blocks.
	Enqueue(ctx context.Context, cmd entity.Command) error
	// State reports the current lifecycle state.
	State() entity.DispatcherState
}

// Params are inbound parameters to initialize a new controller.
type Params struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *zap.SugaredLogger
	Stats      tally.Scope
	Dialer     replclient.Dialer
	Editor     notifier.Gateway
	Pending    pending.Repository
	Log        logbuf.LogBuf
	RPC        editorrpc.EditorRPCModule
	InfoFile   serverinfofile.ServerInfoFile
}

type dispatcher struct {
	logger     *zap.SugaredLogger
	stats      tally.Scope
	shutdowner fx.Shutdowner
	dialer     replclient.Dialer
	editor     notifier.Gateway
	pending    pending.Repository
	log        logbuf.LogBuf
	infoFile   serverinfofile.ServerInfoFile

	conn  replclient.Conn
	inbox chan entity.Command
	// queue holds evals waiting their turn on a prepl connection, which
	// evaluates one form at a time.
	queue []*entity.Request
	// inflight is the request id currently evaluating on prepl. Empty when
	// idle or when the connection multiplexes (nREPL).
	inflight string

	stateMu  sync.Mutex
	state    entity.DispatcherState
	loopDone chan struct{}
}

// New constructs the controller and registers it as the editor command sink.
func New(p Params) (Controller, error) {
	d := &dispatcher{
		logger:     p.Logger,
		stats:      p.Stats.SubScope("dispatcher"),
		shutdowner: p.Shutdowner,
		dialer:     p.Dialer,
		editor:     p.Editor,
		pending:    p.Pending,
		log:        p.Log,
		infoFile:   p.InfoFile,
		inbox:      make(chan entity.Command, _inboxSize),
		state:      entity.StateDisconnected,
		loopDone:   make(chan struct{}),
	}

	if err := p.RPC.RegisterCommandSink(d); err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: d.OnStart,
		OnStop:  d.OnStop,
	})

	return d, nil
}

// OnStart launches the event loop.
func (d *dispatcher) OnStart(ctx context.Context) error {
	go d.run()
	return nil
}

// OnStop requests an orderly shutdown and waits for the loop to exit.
func (d *dispatcher) OnStop(ctx context.Context) error {
	select {
	case <-d.loopDone:
		return nil
	default:
	}

	// Ignore the error: the loop may already be tearing down.
	d.Enqueue(ctx, entity.Command{Kind: entity.CommandStop})

	select {
	case <-d.loopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *dispatcher) Enqueue(ctx context.Context, cmd entity.Command) error {
	select {
	case <-d.loopDone:
		return goerrors.New("dispatcher is not running")
	default:
	}

	select {
	case d.inbox <- cmd:
		return nil
	default:
		d.stats.Counter("commands_dropped").Inc(1)
		return goerrors.New("command inbox is full")
	}
}

func (d *dispatcher) State() entity.DispatcherState {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.state
}

func (d *dispatcher) setState(s entity.DispatcherState) {
	d.stateMu.Lock()
	d.state = s
	d.stateMu.Unlock()
	d.logger.Infow("dispatcher state", zap.String("state", string(s)))
}

// run connects to the REPL and then serves the event loop until a stop
// command or a connection loss.
func (d *dispatcher) run() {
	defer close(d.loopDone)
	ctx := context.Background()

	d.setState(entity.StateConnecting)
	conn, err := d.dialer.Dial(ctx)
	if err != nil {
		d.fail(ctx, fmt.Sprintf("connecting to REPL: %v", err))
		return
	}
	d.conn = conn

	info := conn.Info()
	d.infoFile.UpdateField(serverinfofile.KeyReplProtocol, string(info.Protocol))
	d.infoFile.UpdateField(serverinfofile.KeyLogPath, d.log.Path())
	d.log.Message(fmt.Sprintf("connected to %s server at %s", info.Protocol, info.Addr()))
	d.editor.Ready(ctx, &notifier.ReadyParams{
		Protocol: info.Protocol,
		Session:  info.Session,
		Address:  info.Addr(),
	})
	d.stats.Counter("connections_established").Inc(1)
	d.setState(entity.StateReady)

	for {
		select {
		case cmd := <-d.inbox:
			switch cmd.Kind {
			case entity.CommandEval:
				d.handleEval(ctx, cmd)
			case entity.CommandInterrupt:
				d.handleInterrupt(ctx)
			case entity.CommandStop:
				d.shutdown(ctx)
				return
			default:
				d.logger.Warnw("dropping unknown command", zap.String("kind", string(cmd.Kind)))
			}
		case f, ok := <-conn.Fragments():
			if !ok {
				d.connLost(ctx, "fragment stream ended")
				return
			}
			if f.Kind == entity.FragmentConnClosed {
				d.connLost(ctx, f.Text)
				return
			}
			d.handleFragment(ctx, f)
		}
	}
}

func (d *dispatcher) handleEval(ctx context.Context, cmd entity.Command) {
	req := &entity.Request{
		UUID:   uuid.Must(uuid.NewV4()),
		ID:     entity.NextRequestID(),
		Kind:   entity.RequestEval,
		Code:   cmd.Code,
		File:   cmd.File,
		Line:   cmd.Line,
		Column: cmd.Column,
	}

	if _, err := d.pending.Create(ctx, req); err != nil {
		d.logger.Errorw("registering pending eval", zap.Error(err))
		return
	}
	d.stats.Counter("evals_received").Inc(1)

	if d.singleFlight() && d.inflight != "" {
		d.queue = append(d.queue, req)
		return
	}
	d.send(ctx, req)
}

// handleInterrupt cancels the oldest outstanding eval. prepl has no
// interrupt primitive, so there the request is surfaced in the log instead.
func (d *dispatcher) handleInterrupt(ctx context.Context) {
	if !d.conn.SupportsInterrupt() {
		d.log.Message("interrupt is not supported over prepl")
		d.stats.Counter("interrupt_unsupported").Inc(1)
		return
	}

	oldest, err := d.pending.Oldest(ctx)
	if err != nil {
		// Nothing outstanding, nothing to do.
		return
	}

	req := &entity.Request{
		ID:          entity.NextRequestID(),
		Kind:        entity.RequestInterrupt,
		InterruptID: oldest.Request.ID,
	}
	if err := d.conn.Send(ctx, req); err != nil {
		d.logger.Errorw("sending interrupt", zap.Error(err))
		return
	}
	d.stats.Counter("interrupts_sent").Inc(1)
}

// send writes the request to the socket and claims the single-flight slot
// on prepl connections.
func (d *dispatcher) send(ctx context.Context, req *entity.Request) {
	if err := d.conn.Send(ctx, req); err != nil {
		d.logger.Errorw("sending eval", zap.String("id", req.ID), zap.Error(err))
		d.pending.Delete(ctx, req.ID)
		d.log.Message(fmt.Sprintf("failed to send eval: %v", err))
		var closed *errors.ConnectionClosedError
		if goerrors.As(err, &closed) {
			// The write stream is torn. Closing the socket ends the
			// fragment stream so the loop tears down instead of idling
			// on a connection that can no longer carry requests.
			d.conn.Close(ctx)
		}
		return
	}
	if d.singleFlight() {
		d.inflight = req.ID
	}
}

// sendNextQueued starts the next waiting eval after a prepl eval finished.
func (d *dispatcher) sendNextQueued(ctx context.Context) {
	d.inflight = ""
	for len(d.queue) > 0 {
		next := d.queue[0]
		d.queue = d.queue[1:]
		d.send(ctx, next)
		if d.inflight != "" {
			return
		}
	}
}

func (d *dispatcher) singleFlight() bool {
	return d.conn.Info().Protocol == entity.ProtocolPrepl
}

// shutdown tears the connection down in order: flush what is outstanding,
// close the socket, tell the editor, then stop the process.
func (d *dispatcher) shutdown(ctx context.Context) {
	d.setState(entity.StateStopping)

	d.flushPending(ctx)
	d.log.Message("bridge stopped")

	if err := d.conn.Close(ctx); err != nil {
		d.logger.Warnw("closing REPL connection", zap.Error(err))
	}
	for range d.conn.Fragments() {
	}

	d.editor.Exited(ctx)
	d.setState(entity.StateStopped)
	d.shutdowner.Shutdown()
}

// connLost handles an unexpected end of the fragment stream.
func (d *dispatcher) connLost(ctx context.Context, reason string) {
	d.flushPending(ctx)
	d.log.Message(fmt.Sprintf("connection to REPL lost: %s", reason))
	d.stats.Counter("connections_lost").Inc(1)

	d.conn.Close(ctx)
	for range d.conn.Fragments() {
	}

	d.editor.Failed(ctx, &notifier.FailedParams{Reason: reason})
	d.setState(entity.StateFailed)
	d.shutdowner.Shutdown()
}

// fail handles an unusable REPL target before any connection existed.
func (d *dispatcher) fail(ctx context.Context, reason string) {
	d.logger.Errorw("bridge failed", zap.String("reason", reason))
	d.log.Message(reason)
	d.editor.Failed(ctx, &notifier.FailedParams{Reason: reason})
	d.setState(entity.StateFailed)
	d.shutdowner.Shutdown()
}

// flushPending appends every incomplete eval to the log so partial output
// is not lost, then clears the store.
func (d *dispatcher) flushPending(ctx context.Context) {
	incomplete, err := d.pending.DeleteAll(ctx)
	if err != nil {
		d.logger.Errorw("discarding pending evals", zap.Error(err))
		return
	}
	for _, p := range incomplete {
		d.log.AppendEval(p)
	}
	d.queue = nil
	d.inflight = ""
}
