// Package factory provides user-defined factories for values used across
// tests.
package factory

import (
	"fmt"

	"github.com/gofrs/uuid"
	"go.lsp.dev/jsonrpc2"

	"github.com/replbridge/replbridge/src/bridge/entity"
)

// UUID is a user-defined factory for a random uuid.UUID.
func UUID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

// JSONRPCNotification is a user-defined factory for a JSON-RPC notification
// containing the specified method and parameters.
func JSONRPCNotification(method string, params interface{}) jsonrpc2.Request {
	req, _ := jsonrpc2.NewNotification(method, params)
	return req
}

// EvalRequest is a factory for a minimal eval request with a fresh id.
func EvalRequest(code string) *entity.Request {
	return &entity.Request{
		UUID: UUID(),
		ID:   entity.NextRequestID(),
		Kind: entity.RequestEval,
		Code: code,
		File: "/tmp/scratch.clj",
		Line: 1,
	}
}

// DoneFragment is a factory for the terminal fragment of a request.
func DoneFragment(requestID string) entity.Fragment {
	return entity.Fragment{RequestID: requestID, Kind: entity.FragmentDone}
}

// ValueFragment is a factory for an evaluation result fragment.
func ValueFragment(requestID string, n int) entity.Fragment {
	return entity.Fragment{
		RequestID: requestID,
		Kind:      entity.FragmentValue,
		Text:      fmt.Sprintf("%d", n),
		Namespace: "user",
	}
}
