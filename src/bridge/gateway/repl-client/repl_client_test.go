package replclient

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tally "github.com/uber-go/tally/v4"

	"github.com/replbridge/replbridge/src/bridge/entity"
	"github.com/replbridge/replbridge/src/bridge/internal/bencode"
	"github.com/replbridge/replbridge/src/bridge/internal/errors"
	"github.com/replbridge/replbridge/src/bridge/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

const _testSession = "abc"

func startFakeServer(t *testing.T, handler func(net.Conn)) (port int, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				handler(c)
			}()
		}
	}()

	port = ln.Addr().(*net.TCPAddr).Port
	return port, func() {
		ln.Close()
		wg.Wait()
	}
}

// nreplHandler implements enough of an nREPL server for handshake and a
// canned (+ 1 2) eval. Received eval messages are exposed for assertions.
func nreplHandler(evals chan<- bencode.Value) func(net.Conn) {
	return func(c net.Conn) {
		defer c.Close()
		var dec bencode.Decoder
		buf := make([]byte, 4096)
		for {
			n, err := c.Read(buf)
			if err != nil {
				return
			}
			dec.Feed(buf[:n])
			for {
				msg, err := dec.Next()
				if err != nil || msg == nil {
					break
				}
				id := msg.StringAt("id")
				switch msg.StringAt("op") {
				case "clone":
					c.Write(bencode.Encode(bencode.Dict(map[string]bencode.Value{
						"id":          bencode.String(id),
						"new-session": bencode.String(_testSession),
						"status":      bencode.List(bencode.String("done")),
					})))
				case "eval":
					if evals != nil {
						select {
						case evals <- *msg:
						default:
						}
					}
					value := "false"
					if msg.StringAt("code") == "(+ 1 2)" {
						c.Write(bencode.Encode(bencode.Dict(map[string]bencode.Value{
							"id":  bencode.String(id),
							"out": bencode.String("hi\n"),
						})))
						value = "3"
					}
					c.Write(bencode.Encode(bencode.Dict(map[string]bencode.Value{
						"id":    bencode.String(id),
						"value": bencode.String(value),
						"ns":    bencode.String("user"),
					})))
					c.Write(bencode.Encode(bencode.Dict(map[string]bencode.Value{
						"id":     bencode.String(id),
						"status": bencode.List(bencode.String("done")),
					})))
				case "close":
					return
				}
			}
		}
	}
}

// preplHandler implements enough of a prepl server: one EDN response line
// per evaluated form.
func preplHandler(c net.Conn) {
	defer c.Close()
	scanner := bufio.NewScanner(c)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == ":repl/quit":
			return
		case line == "(+ 1 2)":
			c.Write([]byte(`{:tag :out, :val "hi\n"}` + "\n"))
			c.Write([]byte(`{:tag :ret, :val "3", :ns "user", :ms 1, :form "(+ 1 2)"}` + "\n"))
		default:
			c.Write([]byte(`{:tag :ret, :val "false", :ns "user", :ms 0, :form ""}` + "\n"))
		}
	}
}

func newTestDialer(port int, protocol string) *dialer {
	return &dialer{
		cfg: ReplConfig{
			Host:           "127.0.0.1",
			Port:           port,
			Protocol:       protocol,
			ProbeTimeoutMs: 500,
		},
		logger: zap.NewNop().Sugar(),
		stats:  tally.NoopScope,
	}
}

func awaitFragment(t *testing.T, c Conn, kind entity.FragmentKind) entity.Fragment {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case f, ok := <-c.Fragments():
			require.True(t, ok, "fragment channel closed while waiting for %s", kind)
			if f.Kind == kind {
				return f
			}
		case <-deadline:
			t.Fatalf("timed out waiting for fragment %s", kind)
		}
	}
}

func drain(c Conn) {
	for range c.Fragments() {
	}
}

func TestDialNreplHandshake(t *testing.T) {
	evals := make(chan bencode.Value, 10)
	port, stop := startFakeServer(t, nreplHandler(evals))
	defer stop()

	d := newTestDialer(port, "nrepl")
	c, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer func() {
		c.Close(context.Background())
		drain(c)
	}()

	info := c.Info()
	assert.Equal(t, entity.ProtocolNrepl, info.Protocol)
	assert.Equal(t, _testSession, info.Session)
	assert.True(t, c.SupportsInterrupt())

	// The priming eval reached the server without a session requirement
	// failing; it must carry the cloned session.
	prime := <-evals
	assert.Equal(t, _testSession, prime.StringAt("session"))
}

func TestNreplEvalRoundTrip(t *testing.T) {
	evals := make(chan bencode.Value, 10)
	port, stop := startFakeServer(t, nreplHandler(evals))
	defer stop()

	d := newTestDialer(port, "nrepl")
	c, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer func() {
		c.Close(context.Background())
		drain(c)
	}()

	req := &entity.Request{ID: entity.NextRequestID(), Kind: entity.RequestEval, Code: "(+ 1 2)"}
	require.NoError(t, c.Send(context.Background(), req))

	out := awaitFragment(t, c, entity.FragmentOut)
	assert.Equal(t, "hi\n", out.Text)
	assert.Equal(t, req.ID, out.RequestID)

	value := awaitFragment(t, c, entity.FragmentValue)
	assert.Equal(t, "3", value.Text)
	assert.Equal(t, "user", value.Namespace)

	done := awaitFragment(t, c, entity.FragmentDone)
	assert.Equal(t, req.ID, done.RequestID)

	<-evals // priming eval
	sent := <-evals
	assert.Equal(t, "(+ 1 2)", sent.StringAt("code"))
	assert.Equal(t, _testSession, sent.StringAt("session"))
}

func TestDialPrepl(t *testing.T) {
	port, stop := startFakeServer(t, preplHandler)
	defer stop()

	d := newTestDialer(port, "prepl")
	c, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer func() {
		c.Close(context.Background())
		drain(c)
	}()

	info := c.Info()
	assert.Equal(t, entity.ProtocolPrepl, info.Protocol)
	assert.Empty(t, info.Session)
	assert.False(t, c.SupportsInterrupt())

	req := &entity.Request{ID: entity.NextRequestID(), Kind: entity.RequestEval, Code: "(+ 1 2)"}
	require.NoError(t, c.Send(context.Background(), req))

	out := awaitFragment(t, c, entity.FragmentOut)
	assert.Equal(t, "hi\n", out.Text)
	value := awaitFragment(t, c, entity.FragmentValue)
	assert.Equal(t, "3", value.Text)
	awaitFragment(t, c, entity.FragmentDone)
}

func TestProbeFallsBackToPrepl(t *testing.T) {
	// A prepl server never answers the bencode clone probe (no newline in
	// it), so the nREPL handshake times out and the dialer reconnects.
	port, stop := startFakeServer(t, preplHandler)
	defer stop()

	d := newTestDialer(port, "")
	c, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer func() {
		c.Close(context.Background())
		drain(c)
	}()

	assert.Equal(t, entity.ProtocolPrepl, c.Info().Protocol)
}

func TestProbePrefersNrepl(t *testing.T) {
	port, stop := startFakeServer(t, nreplHandler(nil))
	defer stop()

	d := newTestDialer(port, "")
	c, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer func() {
		c.Close(context.Background())
		drain(c)
	}()

	assert.Equal(t, entity.ProtocolNrepl, c.Info().Protocol)
}

func TestDialRefusedConnection(t *testing.T) {
	// Grab a port and close it again so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	d := newTestDialer(port, "nrepl")
	_, err = d.Dial(context.Background())
	assert.Error(t, err)
}

func TestHandshakeTimeout(t *testing.T) {
	// Server accepts and stays silent: handshake must fail, not hang.
	port, stop := startFakeServer(t, func(c net.Conn) {
		defer c.Close()
		buf := make([]byte, 4096)
		for {
			if _, err := c.Read(buf); err != nil {
				return
			}
		}
	})
	defer stop()

	d := newTestDialer(port, "nrepl")
	d.cfg.ProbeTimeoutMs = 200
	_, err := d.Dial(context.Background())
	require.Error(t, err)
	var handshake *errors.HandshakeFailedError
	assert.ErrorAs(t, err, &handshake)
}

func TestEOFEmitsConnClosed(t *testing.T) {
	evals := make(chan bencode.Value, 10)
	closeNow := make(chan struct{})
	port, stop := startFakeServer(t, func(c net.Conn) {
		nested := nreplHandler(evals)
		go func() {
			<-closeNow
			c.Close()
		}()
		nested(c)
	})
	defer stop()

	d := newTestDialer(port, "nrepl")
	c, err := d.Dial(context.Background())
	require.NoError(t, err)

	close(closeNow)
	f := awaitFragment(t, c, entity.FragmentConnClosed)
	assert.Equal(t, entity.FragmentConnClosed, f.Kind)

	// Channel closes after the synthetic fragment.
	_, ok := <-c.Fragments()
	assert.False(t, ok)
	c.Close(context.Background())
}

func TestResolvePortFromPortFile(t *testing.T) {
	port, stop := startFakeServer(t, preplHandler)
	defer stop()

	portFile := filepath.Join(t.TempDir(), ".nrepl-port")
	require.NoError(t, os.WriteFile(portFile, []byte(strconv.Itoa(port)+"\n"), 0644))

	d := newTestDialer(0, "prepl")
	d.cfg.Port = 0
	d.cfg.PortFile = portFile
	c, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer func() {
		c.Close(context.Background())
		drain(c)
	}()

	assert.Equal(t, port, c.Info().Port)
}

func TestResolvePortWaitsForPortFile(t *testing.T) {
	port, stop := startFakeServer(t, preplHandler)
	defer stop()

	portFile := filepath.Join(t.TempDir(), ".nrepl-port")

	d := newTestDialer(0, "prepl")
	d.cfg.Port = 0
	d.cfg.PortFile = portFile
	d.cfg.ProbeTimeoutMs = 2000

	// The server writes the file a moment after the bridge starts looking.
	written := make(chan struct{})
	go func() {
		defer close(written)
		time.Sleep(100 * time.Millisecond)
		os.WriteFile(portFile, []byte(strconv.Itoa(port)+"\n"), 0644)
	}()

	c, err := d.Dial(context.Background())
	<-written
	require.NoError(t, err)
	defer func() {
		c.Close(context.Background())
		drain(c)
	}()

	assert.Equal(t, port, c.Info().Port)
}

func TestResolvePortMissingEverything(t *testing.T) {
	d := newTestDialer(0, "prepl")
	d.cfg.Port = 0
	d.cfg.PortFile = filepath.Join(t.TempDir(), "absent")
	d.cfg.ProbeTimeoutMs = 100
	_, err := d.Dial(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port file")
}

func TestSendBoundedWhenServerStallsReads(t *testing.T) {
	// Server accepts but never reads: once the kernel buffers fill, the
	// write must fail at the context deadline instead of blocking forever.
	unblock := make(chan struct{})
	port, stop := startFakeServer(t, func(c net.Conn) {
		<-unblock
		c.Close()
	})
	defer stop()
	defer close(unblock)

	sock, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	defer sock.Close()

	c := &conn{
		info:   entity.ConnInfo{Host: "127.0.0.1", Port: port, Protocol: entity.ProtocolPrepl},
		sock:   sock,
		codec:  wire.NewPrepl(),
		ch:     make(chan entity.Fragment, _fragmentChanSize),
		closed: make(chan struct{}),
		logger: zap.NewNop().Sugar(),
		stats:  tally.NoopScope,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	req := &entity.Request{
		ID:   entity.NextRequestID(),
		Kind: entity.RequestEval,
		Code: strings.Repeat(";", 32<<20),
	}
	start := time.Now()
	err = c.Send(ctx, req)
	require.Error(t, err)
	var closedErr *errors.ConnectionClosedError
	assert.ErrorAs(t, err, &closedErr)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestUnknownProtocolConfig(t *testing.T) {
	d := newTestDialer(1234, "telnet")
	_, err := d.Dial(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown protocol")
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
