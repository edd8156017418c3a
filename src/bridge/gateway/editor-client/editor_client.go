// Package notifier sends outbound notifications to connected editor
// clients. Every editor connection registers here when its stream is
// accepted; lifecycle notifications are broadcast to all of them.
package notifier

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/replbridge/replbridge/src/bridge/entity"
)

// Notification methods pushed to the editor.
const (
	MethodReady  = "bridge/ready"
	MethodFailed = "bridge/failed"
	MethodExited = "bridge/exited"
)

// ReadyParams announce a usable REPL connection.
type ReadyParams struct {
	Protocol entity.Protocol `json:"protocol"`
	Session  string          `json:"session,omitempty"`
	Address  string          `json:"address"`
}

// FailedParams announce that the REPL connection was lost or never made.
type FailedParams struct {
	Reason string `json:"reason"`
}

// Gateway is used to send outbound notifications to editor clients.
type Gateway interface {
	// RegisterClient registers a new client with the gateway. Should be
	// called each time a new editor connection is initialized.
	RegisterClient(ctx context.Context, id uuid.UUID, conn *jsonrpc2.Conn) error
	// DeregisterClient removes a client from the gateway. Should be called
	// each time an editor connection is closed.
	DeregisterClient(ctx context.Context, id uuid.UUID) error

	// Ready notifies all clients that the REPL connection is established.
	Ready(ctx context.Context, params *ReadyParams) error
	// Failed notifies all clients that the REPL connection is gone.
	Failed(ctx context.Context, params *FailedParams) error
	// Exited notifies all clients that the bridge is shutting down.
	Exited(ctx context.Context) error
}

type gateway struct {
	connections map[uuid.UUID]jsonrpc2.Conn
	clientsMu   sync.Mutex
	logger      *zap.Logger
}

// New returns a Gateway for sending editor notifications.
func New(logger *zap.Logger) Gateway {
	return &gateway{
		connections: make(map[uuid.UUID]jsonrpc2.Conn),
		logger:      logger,
	}
}

func (g *gateway) RegisterClient(ctx context.Context, id uuid.UUID, conn *jsonrpc2.Conn) error {
	g.clientsMu.Lock()
	defer g.clientsMu.Unlock()

	g.connections[id] = *conn
	return nil
}

func (g *gateway) DeregisterClient(ctx context.Context, id uuid.UUID) error {
	g.clientsMu.Lock()
	defer g.clientsMu.Unlock()

	delete(g.connections, id)
	return nil
}

func (g *gateway) Ready(ctx context.Context, params *ReadyParams) error {
	return g.broadcast(ctx, MethodReady, params)
}

func (g *gateway) Failed(ctx context.Context, params *FailedParams) error {
	return g.broadcast(ctx, MethodFailed, params)
}

func (g *gateway) Exited(ctx context.Context) error {
	return g.broadcast(ctx, MethodExited, nil)
}

// broadcast notifies every registered client. One dead client does not
// stop delivery to the others.
func (g *gateway) broadcast(ctx context.Context, method string, params interface{}) error {
	g.clientsMu.Lock()
	conns := make([]jsonrpc2.Conn, 0, len(g.connections))
	for _, conn := range g.connections {
		conns = append(conns, conn)
	}
	g.clientsMu.Unlock()

	var errs error
	for _, conn := range conns {
		if err := conn.Notify(ctx, method, params); err != nil {
			g.logger.Warn("sending notification to editor", zap.String("method", method), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
