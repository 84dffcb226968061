package main

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"chat-relay/internal/markup"
)

type FormatParams struct {
	Text string `json:"text" mcp:"Markdown text as produced by a language model"`
}

type EscapeParams struct {
	Text string `json:"text" mcp:"plain text to escape for Telegram MarkdownV2"`
}

// MarkupServer exposes the Telegram markup helpers as MCP tools.
type MarkupServer struct {
	log zerolog.Logger
}

func NewMarkupServer(log zerolog.Logger) *MarkupServer {
	return &MarkupServer{log: log}
}

func (s *MarkupServer) Format(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[FormatParams]) (*mcp.CallToolResultFor[any], error) {
	in := params.Arguments.Text
	out := markup.Transcode(in)
	s.log.Debug().
		Int("inputLength", markup.Length(in)).
		Int("outputLength", markup.Length(out)).
		Msg("format_for_telegram")
	return textResult(out), nil
}

func (s *MarkupServer) Escape(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[EscapeParams]) (*mcp.CallToolResultFor[any], error) {
	out := markup.Escape(params.Arguments.Text)
	s.log.Debug().Int("outputLength", markup.Length(out)).Msg("escape_markdown_v2")
	return textResult(out), nil
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func register(server *mcp.Server, s *MarkupServer) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "format_for_telegram",
		Description: "Converts model Markdown into Telegram MarkdownV2, truncated to fit one message",
	}, s.Format)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "escape_markdown_v2",
		Description: "Escapes every MarkdownV2 special character in plain text",
	}, s.Escape)
}
