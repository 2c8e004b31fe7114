package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	mcpauth "github.com/modelcontextprotocol/go-sdk/auth"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"paradel/internal/auth"
	"paradel/internal/db"
)

type mcpTypeArgs struct {
	Type string `json:"type"`
}

type mcpEmptyArgs struct{}

func mcpHandler(d Deps) http.Handler {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "paradel-server",
		Version: d.Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "paradel_list_paragraph_types",
		Description: "List paragraph types with their instance counts",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ mcpEmptyArgs) (*mcp.CallToolResult, any, error) {
		types, err := db.ListParagraphTypes(ctx, d.DB)
		if err != nil {
			return nil, nil, err
		}
		out, err := toJSONText(map[string]any{"paragraphs_types": types})
		if err != nil {
			return nil, nil, err
		}
		return textToolResult(out), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "paradel_list_usages",
		Description: "List the content items that embed paragraphs of a type",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args mcpTypeArgs) (*mcp.CallToolResult, any, error) {
		typeID, err := mcpLoadType(ctx, d, args.Type)
		if err != nil {
			return nil, nil, err
		}
		listing, err := cachedListing(ctx, d, typeID)
		if err != nil {
			return nil, nil, err
		}
		out, err := toJSONText(listing)
		if err != nil {
			return nil, nil, err
		}
		return textToolResult(out), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "paradel_bulk_delete",
		Description: "Delete every paragraph of a type and flush all caches. Requires an admin key.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args mcpTypeArgs) (*mcp.CallToolResult, any, error) {
		if !mcpIsAdmin(req) {
			return nil, nil, errors.New("admin role required")
		}
		typeID, err := mcpLoadType(ctx, d, args.Type)
		if err != nil {
			return nil, nil, err
		}
		report, deleteErr := d.Bulk.Delete(ctx, typeID)
		if report == nil {
			return nil, nil, deleteErr
		}
		d.Logger.Info().Str("type", typeID).Int("instances", report.Instances).Msg("paragraph_bulk_delete")
		out, err := toJSONText(report)
		if err != nil {
			return nil, nil, err
		}
		if deleteErr != nil {
			d.Logger.Error().Err(deleteErr).Str("type", typeID).Msg("paragraph data deleted, cache flush incomplete")
			res := textToolResult("paragraph data deleted but cache flush incomplete: " + deleteErr.Error() + "\n" + out)
			res.IsError = true
			return res, nil, nil
		}
		return textToolResult(out), nil, nil
	})

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)

	verify := func(ctx context.Context, token string, req *http.Request) (*mcpauth.TokenInfo, error) {
		account, err := db.GetAccountByAPIKeyHash(ctx, d.DB, auth.HashAPIKey(token))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, mcpauth.ErrInvalidToken
			}
			return nil, err
		}
		return &mcpauth.TokenInfo{
			Scopes:     []string{"read", "write"},
			Expiration: time.Now().UTC().Add(10 * 365 * 24 * time.Hour),
			UserID:     account.Name,
			Extra: map[string]any{
				"account_name": account.Name,
				"account_role": account.Role,
			},
		}, nil
	}

	return mcpauth.RequireBearerToken(verify, nil)(handler)
}

func mcpLoadType(ctx context.Context, d Deps, raw string) (string, error) {
	typeID := strings.TrimSpace(raw)
	if typeID == "" {
		return "", errors.New("type is required")
	}
	if _, err := db.GetParagraphType(ctx, d.DB, typeID); err != nil {
		return "", err
	}
	return typeID, nil
}

func mcpIsAdmin(req *mcp.CallToolRequest) bool {
	if req == nil || req.Extra == nil || req.Extra.TokenInfo == nil {
		return false
	}
	role, _ := req.Extra.TokenInfo.Extra["account_role"].(string)
	return role == "admin"
}

func textToolResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func toJSONText(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
