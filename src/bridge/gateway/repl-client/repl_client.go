// Package replclient owns the socket to the REPL server. It performs
// protocol detection and the session handshake at dial time and then
// exposes the connection through a protocol-agnostic interface: requests
// go out through the codec, decoded fragments come back on a channel fed
// by a dedicated reader goroutine.
package replclient

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/replbridge/replbridge/src/bridge/entity"
	"github.com/replbridge/replbridge/src/bridge/internal/errors"
	"github.com/replbridge/replbridge/src/bridge/internal/wire"
)

const (
	_configKeyRepl = "repl"

	// Sent once after the handshake so values print without namespaced
	// map literals, which keeps result blocks readable.
	_primingForm = "(set! *print-namespace-maps* false)"

	_readBufferSize   = 4096
	_fragmentChanSize = 64

	// Bounds a single socket write so a server that stops draining its
	// receive buffer cannot stall the event loop indefinitely.
	_sendTimeout = 10 * time.Second
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// Conn is one live connection to a REPL server.
type Conn interface {
	// Info describes the connection, including the nREPL session if any.
	Info() entity.ConnInfo
	// Send serializes the request and writes it fully to the socket.
	Send(ctx context.Context, req *entity.Request) error
	// Fragments returns the channel fed by the reader goroutine. It is
	// closed after a synthetic conn-closed fragment is delivered.
	Fragments() <-chan entity.Fragment
	// SupportsInterrupt reports whether the protocol has an interrupt
	// primitive.
	SupportsInterrupt() bool
	// Close ends the session (close op or :repl/quit) and closes the
	// socket.
	Close(ctx context.Context) error
}

// Dialer establishes Conns according to the configured policy.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// ReplConfig is the connection section of the bridge configuration.
type ReplConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// PortFile is consulted when Port is zero.
	PortFile string `yaml:"portFile"`
	// Protocol pins the wire protocol; empty means probe nREPL first and
	// fall back to prepl.
	Protocol       string `yaml:"protocol"`
	ProbeTimeoutMs int    `yaml:"probeTimeoutMs"`
}

func (c ReplConfig) probeTimeout() time.Duration {
	if c.ProbeTimeoutMs <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.ProbeTimeoutMs) * time.Millisecond
}

// Params define values to be used by the dialer.
type Params struct {
	fx.In

	Config config.Provider
	Logger *zap.SugaredLogger
	Stats  tally.Scope
}

type dialer struct {
	cfg    ReplConfig
	logger *zap.SugaredLogger
	stats  tally.Scope
}

// New creates a Dialer from configuration.
func New(p Params) (Dialer, error) {
	var cfg ReplConfig
	if err := p.Config.Get(_configKeyRepl).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKeyRepl, err)
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	return &dialer{cfg: cfg, logger: p.Logger, stats: p.Stats}, nil
}

// Dial connects to the REPL server. With an explicit protocol configured it
// is used directly; otherwise an nREPL clone handshake is attempted within
// the probe timeout, falling back to prepl when it fails.
func (d *dialer) Dial(ctx context.Context) (Conn, error) {
	port, err := d.resolvePort(ctx)
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(port))

	switch entity.Protocol(d.cfg.Protocol) {
	case entity.ProtocolNrepl:
		return d.dialNrepl(ctx, addr, port)
	case entity.ProtocolPrepl:
		return d.dialPrepl(ctx, addr, port)
	case "":
		c, err := d.dialNrepl(ctx, addr, port)
		if err == nil {
			return c, nil
		}
		var handshake *errors.HandshakeFailedError
		if !goerrors.As(err, &handshake) {
			return nil, err
		}
		d.logger.Infow("nREPL probe failed, falling back to prepl", zap.Error(err))
		return d.dialPrepl(ctx, addr, port)
	default:
		return nil, fmt.Errorf("unknown protocol %q in config", d.cfg.Protocol)
	}
}

func (d *dialer) resolvePort(ctx context.Context) (int, error) {
	if d.cfg.Port > 0 {
		return d.cfg.Port, nil
	}
	portFile := d.cfg.PortFile
	if portFile == "" {
		portFile = ".nrepl-port"
	}
	raw, err := os.ReadFile(portFile)
	if os.IsNotExist(err) {
		// The server writes the file once its listener is bound, which may
		// be after the bridge starts.
		raw, err = d.awaitPortFile(ctx, portFile)
	}
	if err != nil {
		return 0, fmt.Errorf("no port configured and port file unreadable: %w", err)
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("port file %q does not contain a port: %w", portFile, err)
	}
	return port, nil
}

// awaitPortFile watches the port file's directory until the file is written,
// bounded by the probe timeout.
func (d *dialer) awaitPortFile(ctx context.Context, portFile string) ([]byte, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(portFile)); err != nil {
		return nil, err
	}
	// The file may have appeared between the failed read and the watch.
	if raw, err := os.ReadFile(portFile); err == nil {
		return raw, nil
	}

	d.logger.Infow("waiting for port file", zap.String("file", portFile))
	timer := time.NewTimer(d.cfg.probeTimeout())
	defer timer.Stop()
	for {
		select {
		case ev := <-watcher.Events:
			if filepath.Clean(ev.Name) != filepath.Clean(portFile) {
				continue
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			raw, err := os.ReadFile(portFile)
			if err != nil {
				continue
			}
			return raw, nil
		case err := <-watcher.Errors:
			return nil, err
		case <-timer.C:
			return nil, fmt.Errorf("timed out waiting for %s", portFile)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (d *dialer) dialNrepl(ctx context.Context, addr string, port int) (Conn, error) {
	sock, err := (&net.Dialer{Timeout: d.cfg.probeTimeout()}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	codec := wire.NewNrepl()
	c := &conn{
		info:   entity.ConnInfo{Host: d.cfg.Host, Port: port, Protocol: entity.ProtocolNrepl},
		sock:   sock,
		codec:  codec,
		ch:     make(chan entity.Fragment, _fragmentChanSize),
		closed: make(chan struct{}),
		logger: d.logger,
		stats:  d.stats,
	}

	if err := c.nreplHandshake(ctx, codec, d.cfg.probeTimeout()); err != nil {
		sock.Close()
		return nil, err
	}
	c.info.Session = codec.Session()

	d.logger.Infow("nREPL connection ready",
		zap.String("addr", addr), zap.String("session", c.info.Session))
	go c.readLoop()
	return c, nil
}

func (d *dialer) dialPrepl(ctx context.Context, addr string, port int) (Conn, error) {
	sock, err := (&net.Dialer{Timeout: d.cfg.probeTimeout()}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	c := &conn{
		info:   entity.ConnInfo{Host: d.cfg.Host, Port: port, Protocol: entity.ProtocolPrepl},
		sock:   sock,
		codec:  wire.NewPrepl(),
		ch:     make(chan entity.Fragment, _fragmentChanSize),
		closed: make(chan struct{}),
		logger: d.logger,
		stats:  d.stats,
	}

	if err := c.preplPrime(d.cfg.probeTimeout()); err != nil {
		sock.Close()
		return nil, err
	}

	d.logger.Infow("prepl connection ready", zap.String("addr", addr))
	go c.readLoop()
	return c, nil
}

type conn struct {
	info  entity.ConnInfo
	sock  net.Conn
	codec wire.Codec

	ch chan entity.Fragment
	// preseed holds fragments decoded during the handshake that belong to
	// the steady-state stream.
	preseed []entity.Fragment

	closeOnce sync.Once
	closed    chan struct{}

	logger *zap.SugaredLogger
	stats  tally.Scope
}

func (c *conn) Info() entity.ConnInfo {
	return c.info
}

func (c *conn) SupportsInterrupt() bool {
	return c.info.Protocol == entity.ProtocolNrepl
}

func (c *conn) Fragments() <-chan entity.Fragment {
	return c.ch
}

// Send writes the encoded request fully to the socket. A short write is
// retried until complete; the whole write is bounded by a deadline since a
// stalled peer would otherwise block the caller's event loop. A deadline
// expiry leaves the framing torn, so it surfaces as a closed connection.
func (c *conn) Send(ctx context.Context, req *entity.Request) error {
	raw, err := c.codec.Encode(req)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(_sendTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.sock.SetWriteDeadline(deadline)
	defer c.sock.SetWriteDeadline(time.Time{})
	for len(raw) > 0 {
		n, err := c.sock.Write(raw)
		if err != nil {
			return &errors.ConnectionClosedError{Op: "send", Err: err}
		}
		raw = raw[n:]
	}
	return nil
}

// Close ends the session and closes the socket. The reader goroutine
// observes the closed socket and shuts the fragment channel down.
func (c *conn) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		// Best effort: tell the server the session is over.
		closeReq := &entity.Request{ID: entity.NextRequestID(), Kind: entity.RequestClose}
		if raw, encErr := c.codec.Encode(closeReq); encErr == nil {
			c.sock.SetWriteDeadline(time.Now().Add(time.Second))
			c.sock.Write(raw)
		}
		err = c.sock.Close()
	})
	return err
}

// nreplHandshake sends the clone op, captures the new session id and runs
// the priming eval, all synchronously with read deadlines.
func (c *conn) nreplHandshake(ctx context.Context, codec *wire.Nrepl, timeout time.Duration) error {
	cloneReq := &entity.Request{ID: entity.NextRequestID(), Kind: entity.RequestClone}
	if err := c.Send(ctx, cloneReq); err != nil {
		return &errors.HandshakeFailedError{Protocol: entity.ProtocolNrepl, Reason: err.Error()}
	}

	session, err := c.awaitHandshakeFragment(timeout, func(f entity.Fragment) (string, bool) {
		if f.Kind == entity.FragmentNewSession {
			return f.Text, true
		}
		return "", false
	})
	if err != nil {
		return err
	}
	if session == "" {
		return &errors.HandshakeFailedError{Protocol: entity.ProtocolNrepl, Reason: "no session id in clone response"}
	}
	codec.SetSession(session)

	primeReq := &entity.Request{ID: entity.NextRequestID(), Kind: entity.RequestEval, Code: _primingForm}
	if err := c.Send(ctx, primeReq); err != nil {
		return &errors.HandshakeFailedError{Protocol: entity.ProtocolNrepl, Reason: err.Error()}
	}
	_, err = c.awaitHandshakeFragment(timeout, func(f entity.Fragment) (string, bool) {
		if f.Kind == entity.FragmentDone && f.RequestID == primeReq.ID {
			return f.Text, true
		}
		return "", false
	})
	if err != nil {
		return err
	}

	// Responses to the clone and priming requests are handshake noise.
	kept := c.preseed[:0]
	for _, f := range c.preseed {
		if f.RequestID != cloneReq.ID && f.RequestID != primeReq.ID {
			kept = append(kept, f)
		}
	}
	c.preseed = kept
	return nil
}

// preplPrime writes the priming form and discards its ret line so the first
// eval's responses are not misattributed.
func (c *conn) preplPrime(timeout time.Duration) error {
	if _, err := c.sock.Write([]byte(_primingForm + "\n")); err != nil {
		return &errors.HandshakeFailedError{Protocol: entity.ProtocolPrepl, Reason: err.Error()}
	}
	_, err := c.awaitHandshakeFragment(timeout, func(f entity.Fragment) (string, bool) {
		if f.Kind == entity.FragmentDone {
			return f.Text, true
		}
		return "", false
	})
	if err != nil {
		return err
	}
	// The priming ret and anything decoded with it is handshake noise.
	c.preseed = nil
	return nil
}

// awaitHandshakeFragment reads synchronously until match accepts a fragment
// or the deadline passes. Non-matching fragments are preserved in arrival
// order for the steady-state stream.
func (c *conn) awaitHandshakeFragment(timeout time.Duration, match func(entity.Fragment) (string, bool)) (string, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, _readBufferSize)

	for i := 0; i < len(c.preseed); i++ {
		if text, ok := match(c.preseed[i]); ok {
			c.preseed = append(c.preseed[:i], c.preseed[i+1:]...)
			return text, nil
		}
	}

	for {
		if time.Now().After(deadline) {
			return "", &errors.HandshakeFailedError{Protocol: c.info.Protocol, Reason: "timed out waiting for handshake response"}
		}
		c.sock.SetReadDeadline(deadline)
		n, err := c.sock.Read(buf)
		if err != nil {
			return "", &errors.HandshakeFailedError{Protocol: c.info.Protocol, Reason: err.Error()}
		}
		frags, err := c.codec.Decode(buf[:n])
		if err != nil {
			return "", &errors.HandshakeFailedError{Protocol: c.info.Protocol, Reason: err.Error()}
		}
		for _, f := range frags {
			if text, ok := match(f); ok {
				return text, nil
			}
			c.preseed = append(c.preseed, f)
		}
	}
}

// readLoop owns the socket read side. It feeds decoded fragments into the
// channel in byte-arrival order and terminates with a synthetic conn-closed
// fragment on EOF or a framing error.
func (c *conn) readLoop() {
	defer close(c.ch)

	for _, f := range c.preseed {
		if !c.deliver(f) {
			return
		}
	}
	c.preseed = nil

	c.sock.SetReadDeadline(time.Time{})
	buf := make([]byte, _readBufferSize)
	for {
		n, err := c.sock.Read(buf)
		if n > 0 {
			frags, decErr := c.codec.Decode(buf[:n])
			for _, f := range frags {
				c.stats.Counter("fragments_received").Inc(1)
				if !c.deliver(f) {
					return
				}
			}
			if decErr != nil {
				c.logger.Errorw("closing connection on malformed message", zap.Error(decErr))
				c.deliver(entity.Fragment{Kind: entity.FragmentConnClosed, Text: decErr.Error()})
				c.sock.Close()
				return
			}
		}
		if err != nil {
			c.deliver(entity.Fragment{Kind: entity.FragmentConnClosed, Text: err.Error()})
			return
		}
	}
}

func (c *conn) deliver(f entity.Fragment) bool {
	select {
	case c.ch <- f:
		return true
	case <-c.closed:
		return false
	}
}
