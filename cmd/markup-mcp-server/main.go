package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"chat-relay/internal/logging"
	"chat-relay/internal/telegram"
)

func main() {
	envErr := godotenv.Load(".env")

	// stdout carries the protocol, logs go to stderr.
	log := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("APP_ENV"), os.Stderr)
	if envErr != nil {
		log.Debug().Err(envErr).Msg(".env file not found")
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "chat-relay-markup-mcp",
		Version: telegram.Version,
	}, nil)
	register(server, NewMarkupServer(log))

	log.Info().Strs("tools", []string{"format_for_telegram", "escape_markdown_v2"}).Msg("starting markup MCP server on stdin/stdout")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("markup MCP server failed")
	}
}
