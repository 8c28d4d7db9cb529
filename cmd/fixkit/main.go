package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fixkit/fixkit/internal/config"
	"github.com/fixkit/fixkit/internal/logger"
	"github.com/fixkit/fixkit/internal/server"
	"github.com/fixkit/fixkit/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
