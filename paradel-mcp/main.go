package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"paradel/internal/cli/client"
)

const bridgeVersion = "0.1.0"

type typeArgs struct {
	Type string `json:"type"`
}

type noArgs struct{}

// apiClient is the part of the CLI client the bridge needs.
type apiClient interface {
	Get(path string, out any) error
	Post(path string, body any, out any) error
}

func main() {
	baseURL := strings.TrimSpace(os.Getenv("PARADEL_URL"))
	apiKey := strings.TrimSpace(os.Getenv("PARADEL_API_KEY"))
	if baseURL == "" || apiKey == "" {
		fmt.Fprintln(os.Stderr, "PARADEL_URL and PARADEL_API_KEY are required")
		os.Exit(1)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		fmt.Fprintln(os.Stderr, "invalid PARADEL_URL:", err)
		os.Exit(1)
	}

	server := newBridgeServer(client.New(baseURL, apiKey))
	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		fmt.Fprintln(os.Stderr, "mcp bridge:", err)
		os.Exit(1)
	}
}

// newBridgeServer exposes the paradel HTTP API as MCP tools over stdio.
func newBridgeServer(cl apiClient) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "paradel-mcp",
		Version: bridgeVersion,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "paradel_list_paragraph_types",
		Description: "List paragraph types with their instance counts",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ noArgs) (*mcp.CallToolResult, any, error) {
		var resp map[string]any
		if err := cl.Get("/api/v1/paragraphs-types", &resp); err != nil {
			return nil, nil, err
		}
		return jsonResult(resp)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "paradel_list_usages",
		Description: "List the content items that embed paragraphs of a type",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args typeArgs) (*mcp.CallToolResult, any, error) {
		typeID, err := requireType(args.Type)
		if err != nil {
			return nil, nil, err
		}
		var resp map[string]any
		if err := cl.Get("/api/v1/paragraphs-types/"+typeID+"/usages", &resp); err != nil {
			return nil, nil, err
		}
		return jsonResult(resp)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "paradel_bulk_delete",
		Description: "Delete every paragraph of a type and flush all caches. Requires an admin key.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args typeArgs) (*mcp.CallToolResult, any, error) {
		typeID, err := requireType(args.Type)
		if err != nil {
			return nil, nil, err
		}
		var resp map[string]any
		if err := cl.Post("/api/v1/paragraphs-types/"+typeID+"/bulk-delete", nil, &resp); err != nil {
			return nil, nil, err
		}
		return jsonResult(resp)
	})

	return server
}

func requireType(raw string) (string, error) {
	typeID := strings.TrimSpace(raw)
	if typeID == "" {
		return "", errors.New("type is required")
	}
	return url.PathEscape(typeID), nil
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}, nil, nil
}
