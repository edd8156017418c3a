package controller

import (
	"github.com/replbridge/replbridge/src/bridge/controller/dispatcher"
	"go.uber.org/fx"
)

// Module provides the bridge controllers into an Fx application.
var Module = fx.Options(
	fx.Provide(dispatcher.New),
)
