// Package wire translates between editor-originated requests and the two
// REPL wire protocols. Each codec encodes a request to raw bytes and
// incrementally decodes raw bytes into response fragments, retaining any
// trailing partial bytes between calls. Decode never blocks.
package wire

import (
	"fmt"
	"strings"

	"github.com/replbridge/replbridge/src/bridge/entity"
	"olympos.io/encoding/edn"
)

// Codec is the protocol-agnostic encode/decode interface shared by the
// nREPL and prepl variants.
type Codec interface {
	// Encode serializes one outgoing request.
	Encode(req *entity.Request) ([]byte, error)
	// Decode appends p to the internal buffer and returns all fragments
	// that are complete so far. A MalformedMessageError means the framing
	// is unrecoverable and the connection must be closed.
	Decode(p []byte) ([]entity.Fragment, error)
}

type exceptionVia struct {
	Message string `edn:"message"`
}

type exceptionMap struct {
	Via   []exceptionVia  `edn:"via"`
	Trace [][]interface{} `edn:"trace"`
	Cause string          `edn:"cause"`
}

// digestException turns the EDN Throwable map printed by Clojure servers
// into readable message and trace lines. Unparseable input is returned
// unchanged rather than dropped.
func digestException(raw string) string {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#error"))
	var ex exceptionMap
	if err := edn.Unmarshal([]byte(s), &ex); err != nil {
		return raw
	}

	var b strings.Builder
	for _, via := range ex.Via {
		if via.Message != "" {
			b.WriteString(via.Message)
			b.WriteByte('\n')
		}
	}
	if b.Len() == 0 && ex.Cause != "" {
		b.WriteString(ex.Cause)
		b.WriteByte('\n')
	}
	for _, frame := range ex.Trace {
		parts := make([]string, 0, len(frame))
		for _, elem := range frame {
			parts = append(parts, fmt.Sprint(elem))
		}
		b.WriteString(strings.Join(parts, " "))
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return raw
	}
	return strings.TrimRight(b.String(), "\n")
}
