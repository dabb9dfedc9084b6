package main

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/pragcc/pragcc/internal/config"
	"github.com/pragcc/pragcc/internal/store"
	"github.com/pragcc/pragcc/internal/tools"
)

func serve(ctx context.Context, s *store.Store, cfg *config.Config) error {
	srv := tools.NewServer(s, cfg)
	log.Info().Str("version", version).Msg("serve.start")
	err := srv.MCPServer().Run(ctx, &mcp.StdioTransport{})
	log.Info().Err(err).Msg("serve.stop")
	return err
}
