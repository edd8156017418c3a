package wire

import (
	goerrors "errors"

	"github.com/replbridge/replbridge/src/bridge/entity"
	"github.com/replbridge/replbridge/src/bridge/internal/bencode"
	"github.com/replbridge/replbridge/src/bridge/internal/errors"
)

const (
	_opEval      = "eval"
	_opClone     = "clone"
	_opClose     = "close"
	_opInterrupt = "interrupt"

	_keyThrowable = "nrepl.middleware.caught/throwable"
)

// Nrepl is the codec for the bencode-framed nREPL protocol. Once a session
// id is set it is attached to every encoded request.
type Nrepl struct {
	session string
	dec     bencode.Decoder
}

// NewNrepl returns a codec for an nREPL connection without a session yet.
func NewNrepl() *Nrepl {
	return &Nrepl{}
}

// SetSession attaches the server-assigned session id to future requests.
func (c *Nrepl) SetSession(id string) {
	c.session = id
}

// Session returns the session id currently attached to requests.
func (c *Nrepl) Session() string {
	return c.session
}

// Encode serializes a request as one bencode dictionary.
func (c *Nrepl) Encode(req *entity.Request) ([]byte, error) {
	m := map[string]bencode.Value{
		"id": bencode.String(req.ID),
	}
	switch req.Kind {
	case entity.RequestEval:
		m["op"] = bencode.String(_opEval)
		m["code"] = bencode.String(req.Code)
		if req.File != "" {
			m["file"] = bencode.String(req.File)
		}
		if req.Line > 0 {
			m["line"] = bencode.Int(int64(req.Line))
		}
		if req.Column > 0 {
			m["column"] = bencode.Int(int64(req.Column))
		}
	case entity.RequestInterrupt:
		m["op"] = bencode.String(_opInterrupt)
		m["interrupt-id"] = bencode.String(req.InterruptID)
	case entity.RequestClone:
		m["op"] = bencode.String(_opClone)
	case entity.RequestClose:
		m["op"] = bencode.String(_opClose)
	default:
		return nil, &errors.UnsupportedOperationError{Protocol: entity.ProtocolNrepl, Op: string(req.Kind)}
	}
	if c.session != "" {
		m["session"] = bencode.String(c.session)
	}
	return bencode.Encode(bencode.Dict(m)), nil
}

// Decode feeds bytes to the resumable bencode decoder and maps every
// complete message to fragments.
func (c *Nrepl) Decode(p []byte) ([]entity.Fragment, error) {
	c.dec.Feed(p)

	var frags []entity.Fragment
	for {
		val, err := c.dec.Next()
		if err != nil {
			if goerrors.Is(err, bencode.ErrMalformed) {
				return frags, &errors.MalformedMessageError{Protocol: entity.ProtocolNrepl, Detail: err.Error()}
			}
			return frags, err
		}
		if val == nil {
			return frags, nil
		}
		if val.Kind != bencode.KindDict {
			return frags, &errors.MalformedMessageError{Protocol: entity.ProtocolNrepl, Detail: "top-level value is not a dictionary"}
		}
		frags = append(frags, messageFragments(*val)...)
	}
}

// messageFragments maps one nREPL message to zero or more fragments.
// A single message may carry output, a value and a status list at once;
// the terminal done fragment is always emitted last.
func messageFragments(msg bencode.Value) []entity.Fragment {
	id := msg.StringAt("id")
	var frags []entity.Fragment

	if s := msg.StringAt("new-session"); s != "" {
		frags = append(frags, entity.Fragment{RequestID: id, Kind: entity.FragmentNewSession, Text: s})
	}
	if s := msg.StringAt("out"); s != "" {
		frags = append(frags, entity.Fragment{RequestID: id, Kind: entity.FragmentOut, Text: s})
	}
	if s := msg.StringAt("err"); s != "" {
		frags = append(frags, entity.Fragment{RequestID: id, Kind: entity.FragmentErr, Text: s})
	}
	if s := msg.StringAt("ex"); s != "" {
		text := s
		if throwable := msg.StringAt(_keyThrowable); throwable != "" {
			text = digestException(throwable)
		}
		frags = append(frags, entity.Fragment{RequestID: id, Kind: entity.FragmentException, Text: text})
	}
	if v, ok := msg.Get("value"); ok && v.Kind == bencode.KindString {
		frags = append(frags, entity.Fragment{
			RequestID: id,
			Kind:      entity.FragmentValue,
			Text:      v.Str,
			Namespace: msg.StringAt("ns"),
		})
	}
	if status, ok := msg.Get("status"); ok {
		for _, s := range status.Strings() {
			if s == "done" || s == "session-closed" || s == "interrupted" {
				frags = append(frags, entity.Fragment{RequestID: id, Kind: entity.FragmentDone, Text: s})
				break
			}
		}
	}
	return frags
}
