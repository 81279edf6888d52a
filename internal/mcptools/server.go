// Package mcptools exposes the AI helpers as Model Context Protocol tools.
package mcptools

import (
	"context"
	"net/http"

	"artisan-marketplace/internal/models"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

const (
	serverName    = "artisan-marketplace-ai"
	serverVersion = "1.0.0"
)

// Toolset is the AI service the tools call into
type Toolset interface {
	Content(ctx context.Context, userID uuid.UUID, req models.ContentRequest) (*models.ContentResult, error)
	Pricing(ctx context.Context, userID uuid.UUID, req models.PricingRequest) (*models.PricingResult, error)
	Marketing(ctx context.Context, userID uuid.UUID, req models.MarketingRequest) (*models.MarketingResult, error)
	Image(ctx context.Context, userID uuid.UUID, req models.ImageRequest) (*models.ImageResult, error)
	Voice(ctx context.Context, userID uuid.UUID, data []byte, declaredType string, draftListing bool) (*models.VoiceResult, error)
}

// Tool is one MCP tool definition and its handler
type Tool interface {
	Build() mcp.Tool
	Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

type userKey struct{}

// WithUser attaches the authenticated caller to ctx
func WithUser(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFrom returns the caller attached by WithUser
func UserFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// Tools returns every tool backed by ai
func Tools(ai Toolset, log *logrus.Logger) []Tool {
	entry := log.WithField("component", "mcp")
	return []Tool{
		&contentTool{ai: ai, log: entry},
		&pricingTool{ai: ai, log: entry},
		&marketingTool{ai: ai, log: entry},
		&imageTool{ai: ai, log: entry},
		&voiceTool{ai: ai, log: entry},
	}
}

// NewServer registers the tools on an MCP server
func NewServer(ai Toolset, log *logrus.Logger) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	for _, t := range Tools(ai, log) {
		s.AddTool(t.Build(), t.Handle)
	}
	return s
}

// Handler serves the tools over streamable HTTP. The request context must
// carry the caller, see WithUser.
func Handler(ai Toolset, log *logrus.Logger) http.Handler {
	return server.NewStreamableHTTPServer(NewServer(ai, log))
}
