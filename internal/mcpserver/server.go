// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes brand catalog tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/brandvault/internal/apperr"
	"github.com/starford/brandvault/internal/assetservice"
	"github.com/starford/brandvault/internal/models"
)

// AssetTypesURI is the resource describing the catalog record format.
const AssetTypesURI = "brandvault://asset-types"

// Server wraps the MCP server with catalog tools.
type Server struct {
	mcp *server.MCPServer
	svc *assetservice.Service
}

// New creates a new MCP server with all catalog tools registered.
func New(svc *assetservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"brandvault",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_assets",
		mcp.WithDescription("List brand assets (logos, colors, fonts, icons). All filters are optional and combine."),
		mcp.WithString("type", mcp.Description("Asset type"), mcp.Enum(assetTypeNames()...)),
		mcp.WithString("brand", mcp.Description("Brand name, case-insensitive")),
		mcp.WithString("tag", mcp.Description("Tag, case-insensitive")),
	), s.listAssets)

	s.mcp.AddTool(mcp.NewTool("get_asset",
		mcp.WithDescription("Get one brand asset by id, including its file URLs."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Asset id")),
	), s.getAsset)

	s.mcp.AddTool(mcp.NewTool("brand_palette",
		mcp.WithDescription("List the color assets of a brand in display order."),
		mcp.WithString("brand", mcp.Required(), mcp.Description("Brand name")),
	), s.brandPalette)

	s.mcp.AddTool(mcp.NewTool("find_images",
		mcp.WithDescription("Find compositing images. Images matching any of the given emotions are returned, newest first."),
		mcp.WithString("emotions", mcp.Description("Comma-separated emotions, e.g. happy,excited")),
		mcp.WithString("type", mcp.Description("Image type"), mcp.Enum("foreground", "background")),
	), s.findImages)

	s.mcp.AddTool(mcp.NewTool("import_image",
		mcp.WithDescription("Import a compositing image from an http(s) URL or a base64 data URI. "+
			"Only png, jpeg, gif, webp and svg are accepted (checked by content). "+
			"Foreground images need at least one emotion. "+
			"Read the record format first via the "+AssetTypesURI+" resource."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Image type"), mcp.Enum("foreground", "background")),
		mcp.WithString("emotions", mcp.Description("Comma-separated emotions")),
		mcp.WithString("category", mcp.Description("Optional category")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
		mcp.WithString("uploaded_by", mcp.Description("Optional uploader name")),
	), s.importImage)

	s.mcp.AddTool(mcp.NewTool("get_asset_types",
		mcp.WithDescription("Returns the brand catalog record format: asset types, image types and their fields."),
	), s.getAssetTypes)

	s.mcp.AddResource(
		mcp.NewResource(AssetTypesURI, "Catalog Record Format",
			mcp.WithResourceDescription("Asset and image types with the fields each one carries."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readAssetTypesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listAssets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListAssets(ctx, assetservice.AssetFilter{
		Type:  req.GetString("type", ""),
		Brand: req.GetString("brand", ""),
		Tag:   req.GetString("tag", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) getAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.svc.GetAsset(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(a)
}

func (s *Server) brandPalette(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	brand, err := req.RequireString("brand")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	colors := s.svc.Palette(ctx, brand)
	if len(colors) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no colors found for brand %s", brand)), nil
	}
	return jsonResult(colors)
}

func (s *Server) findImages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListImages(ctx, assetservice.ImageFilter{
		Type:     req.GetString("type", ""),
		Emotions: splitList(req.GetString("emotions", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no images found"), nil
	}
	return jsonResult(items)
}

func (s *Server) getAssetTypes(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(AssetFormatContract), nil
}

func (s *Server) readAssetTypesResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      AssetTypesURI,
			MIMEType: "text/markdown",
			Text:     AssetFormatContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func assetTypeNames() []string {
	names := make([]string, len(models.AssetTypes))
	for i, t := range models.AssetTypes {
		names[i] = string(t)
	}
	return names
}
