package app

import (
	"context"
	"time"

	tally "github.com/uber-go/tally/v4"
	"github.com/replbridge/replbridge/src/bridge/controller"
	"github.com/replbridge/replbridge/src/bridge/controller/dispatcher"
	"github.com/replbridge/replbridge/src/bridge/gateway"
	"github.com/replbridge/replbridge/src/bridge/internal/core"
	"github.com/replbridge/replbridge/src/bridge/internal/editorrpc"
	"github.com/replbridge/replbridge/src/bridge/internal/logbuf"
	"github.com/replbridge/replbridge/src/bridge/internal/serverinfofile"
	"github.com/replbridge/replbridge/src/bridge/repository/pending"
	"go.uber.org/fx"
)

// Module defines the repl-bridge application module.
var Module = fx.Options(
	gateway.Module,    // outbounds
	controller.Module, // business logic
	editorrpc.Module,  // inbounds
	logbuf.Module,
	serverinfofile.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(pending.New),
	fx.Provide(func(lc fx.Lifecycle) tally.Scope {
		rs, closer := tally.NewRootScope(tally.ScopeOptions{
			Tags: map[string]string{
				"service": "repl-bridge",
			},
		}, 1*time.Second)

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})

		return rs
	}),
	// The dispatcher registers itself as the command sink, so it must be
	// constructed even though nothing depends on it directly.
	fx.Invoke(func(c dispatcher.Controller) {}),
)
