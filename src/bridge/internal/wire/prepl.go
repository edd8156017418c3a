package wire

import (
	"bytes"
	"strings"

	"github.com/replbridge/replbridge/src/bridge/entity"
	"github.com/replbridge/replbridge/src/bridge/internal/errors"
	"olympos.io/encoding/edn"
)

const _quitForm = ":repl/quit"

// preplEvent is the structured literal a prepl server emits per line.
type preplEvent struct {
	Tag       edn.Keyword `edn:"tag"`
	Val       string      `edn:"val"`
	Namespace string      `edn:"ns"`
	Ms        int64       `edn:"ms"`
	Form      string      `edn:"form"`
	Exception bool        `edn:"exception"`
}

// Prepl is the codec for the line-oriented prepl protocol. Requests are the
// raw code text followed by a newline; responses are one EDN map per line.
// The protocol has no sessions and no interrupt primitive.
type Prepl struct {
	buf []byte
}

// NewPrepl returns a codec for a prepl connection.
func NewPrepl() *Prepl {
	return &Prepl{}
}

// Encode serializes a request as a newline-terminated form.
func (c *Prepl) Encode(req *entity.Request) ([]byte, error) {
	switch req.Kind {
	case entity.RequestEval:
		return []byte(req.Code + "\n"), nil
	case entity.RequestClose:
		return []byte(_quitForm + "\n"), nil
	default:
		return nil, &errors.UnsupportedOperationError{Protocol: entity.ProtocolPrepl, Op: string(req.Kind)}
	}
}

// Decode buffers bytes and parses every complete line into fragments.
// Fragments carry no request id; correlation is the caller's concern since
// prepl allows only one request in flight.
func (c *Prepl) Decode(p []byte) ([]entity.Fragment, error) {
	c.buf = append(c.buf, p...)

	var frags []entity.Fragment
	for {
		nl := bytes.IndexByte(c.buf, '\n')
		if nl < 0 {
			return frags, nil
		}
		line := strings.TrimSpace(string(c.buf[:nl]))
		c.buf = c.buf[nl+1:]
		if line == "" {
			continue
		}
		lineFrags, err := c.lineFragments(line)
		if err != nil {
			return frags, err
		}
		frags = append(frags, lineFrags...)
	}
}

func (c *Prepl) lineFragments(line string) ([]entity.Fragment, error) {
	var ev preplEvent
	if err := edn.Unmarshal([]byte(line), &ev); err != nil {
		return nil, &errors.MalformedMessageError{Protocol: entity.ProtocolPrepl, Detail: err.Error()}
	}

	switch ev.Tag {
	case "ret":
		// A ret line terminates the in-flight request.
		if ev.Exception {
			return []entity.Fragment{
				{Kind: entity.FragmentException, Text: digestException(ev.Val)},
				{Kind: entity.FragmentDone, Text: "done"},
			}, nil
		}
		return []entity.Fragment{
			{Kind: entity.FragmentValue, Text: ev.Val, Namespace: ev.Namespace},
			{Kind: entity.FragmentDone, Text: "done"},
		}, nil
	case "out":
		return []entity.Fragment{{Kind: entity.FragmentOut, Text: ev.Val}}, nil
	case "err":
		return []entity.Fragment{{Kind: entity.FragmentErr, Text: ev.Val}}, nil
	default:
		// Servers may emit tap> or other tags; they are not part of any
		// request's result.
		return nil, nil
	}
}
