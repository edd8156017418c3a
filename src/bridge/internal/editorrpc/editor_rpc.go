// Package editorrpc accepts editor connections over TCP and turns their
// JSON-RPC notifications into bridge commands. Inbound requests are routed
// to a registered CommandSink; the connection itself is registered with the
// editor gateway so outbound notifications can reach every client.
package editorrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/gofrs/uuid"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/replbridge/replbridge/src/bridge/entity"
	notifier "github.com/replbridge/replbridge/src/bridge/gateway/editor-client"
	"github.com/replbridge/replbridge/src/bridge/internal/serverinfofile"
)

const _configKeyAddress = "editorrpc.address"

// Notification methods accepted from the editor.
const (
	MethodEval      = "bridge/eval"
	MethodInterrupt = "bridge/interrupt"
	MethodStop      = "bridge/stop"
)

// EvalParams carry one form to evaluate together with its buffer position.
type EvalParams struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Code   string `json:"code"`
}

// Module is an fx module to handle editor JSON-RPC connections.
var Module = fx.Provide(New)

// EditorRPCModule represents a module to manage editor connections.
type EditorRPCModule interface {
	OnStart(ctx context.Context) error
	ServeStream(ctx context.Context, conn jsonrpc2.Conn) error
	RegisterCommandSink(sink CommandSink) error
}

// CommandSink consumes decoded editor commands. The dispatcher registers
// itself here before the listener starts.
type CommandSink interface {
	Enqueue(ctx context.Context, cmd entity.Command) error
}

type module struct {
	Address string `json:"address"`

	sink           CommandSink
	ln             *net.TCPListener
	logger         *zap.SugaredLogger
	editor         notifier.Gateway
	serverInfoFile serverinfofile.ServerInfoFile
}

// Params define values to be used by the editor RPC server.
type Params struct {
	fx.In

	Config         config.Provider
	Lifecycle      fx.Lifecycle
	Logger         *zap.SugaredLogger
	Editor         notifier.Gateway
	ServerInfoFile serverinfofile.ServerInfoFile
}

// New creates a new server to handle editor JSON-RPC requests on the
// configured address.
func New(p Params) (EditorRPCModule, error) {
	if p.Lifecycle == nil || p.Config == nil {
		return nil, errors.New("required parameters are missing")
	}

	m := module{
		logger:         p.Logger,
		editor:         p.Editor,
		serverInfoFile: p.ServerInfoFile,
	}

	if err := m.processConfig(p.Config); err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: m.OnStart,
		OnStop:  m.OnStop,
	})

	return &m, nil
}

// OnStart binds the listener and begins accepting editor connections.
func (m *module) OnStart(ctx context.Context) error {
	if err := m.setup(); err != nil {
		return err
	}

	go m.start()
	return nil
}

// OnStop closes the listener so the serve loop unblocks.
func (m *module) OnStop(ctx context.Context) error {
	if m.ln != nil {
		return m.ln.Close()
	}
	return nil
}

// ServeStream is called once per accepted connection. It registers the
// connection for outbound notifications and routes inbound notifications to
// the command sink until the connection closes.
func (m *module) ServeStream(ctx context.Context, conn jsonrpc2.Conn) error {
	if m.sink == nil {
		m.logger.Errorf("cannot serve connection, no command sink set")
		return errors.New("cannot serve connection, no command sink set")
	}

	id := uuid.Must(uuid.NewV4())
	if err := m.editor.RegisterClient(ctx, id, &conn); err != nil {
		return err
	}
	m.logger.Infow("editor connected", zap.Stringer("uuid", id))
	conn.Go(ctx, m.handleReq)

	<-conn.Done()

	m.editor.DeregisterClient(ctx, id)
	m.logger.Infow("editor disconnected", zap.Stringer("uuid", id))

	return conn.Err()
}

// RegisterCommandSink sets the sink that consumes decoded commands.
func (m *module) RegisterCommandSink(sink CommandSink) error {
	if m.sink != nil {
		return errors.New("cannot register a duplicate command sink")
	}
	m.sink = sink
	return nil
}

func (m *module) handleReq(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	cmd, err := decodeCommand(req)
	if err != nil {
		m.logger.Warnw("rejecting editor request", zap.String("method", req.Method()), zap.Error(err))
		return reply(ctx, nil, err)
	}

	if err := m.sink.Enqueue(ctx, cmd); err != nil {
		return reply(ctx, nil, err)
	}
	return reply(ctx, nil, nil)
}

func decodeCommand(req jsonrpc2.Request) (entity.Command, error) {
	switch req.Method() {
	case MethodEval:
		var params EvalParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return entity.Command{}, fmt.Errorf("decoding %s params: %w", MethodEval, err)
		}
		if params.Code == "" {
			return entity.Command{}, fmt.Errorf("%s requires a non-empty code field", MethodEval)
		}
		return entity.Command{
			Kind:   entity.CommandEval,
			File:   params.File,
			Line:   params.Line,
			Column: params.Column,
			Code:   params.Code,
		}, nil
	case MethodInterrupt:
		return entity.Command{Kind: entity.CommandInterrupt}, nil
	case MethodStop:
		return entity.Command{Kind: entity.CommandStop}, nil
	default:
		return entity.Command{}, jsonrpc2.ErrMethodNotFound
	}
}

func (m *module) setup() error {
	if m.Address == "" {
		return errors.New("setup called before address is set")
	}

	addr, err := net.ResolveTCPAddr("tcp", m.Address)
	if err != nil {
		return err
	}

	m.ln, err = net.ListenTCP("tcp", addr)
	return err
}

// start serves connections until the listener is closed.
func (m *module) start() {
	if err := m.serverInfoFile.UpdateField(serverinfofile.KeyEditorAddress, m.ln.Addr().String()); err != nil {
		panic(err)
	}

	m.logger.Infow("started JSON-RPC inbound", zap.String("address", m.ln.Addr().String()))
	err := jsonrpc2.Serve(context.Background(), m.ln, m, 0)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		panic(err)
	}
}

// processConfig parses the configuration for values required by this module.
func (m *module) processConfig(cfg config.Provider) error {
	val := cfg.Get(_configKeyAddress)
	if err := val.Populate(&m.Address); err != nil {
		// incorrectly formatted config
		return fmt.Errorf("getting config field %q: %w", _configKeyAddress, err)
	}

	if m.Address == "" {
		// yaml is missing either the key or value
		return fmt.Errorf("missing field %q in config", _configKeyAddress)
	}

	return nil
}
