// Package gateway aggregates the outbound gateways.
package gateway

import (
	notifier "github.com/replbridge/replbridge/src/bridge/gateway/editor-client"
	replclient "github.com/replbridge/replbridge/src/bridge/gateway/repl-client"
	"go.uber.org/fx"
)

// Module provides the outbound gateways into an Fx application.
var Module = fx.Options(
	fx.Provide(notifier.New),
	replclient.Module,
)
