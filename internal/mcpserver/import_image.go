package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/brandvault/internal/models"
)

type importResult struct {
	ID       string   `json:"id"`
	URL      string   `json:"url"`
	Filename string   `json:"filename"`
	Type     string   `json:"type"`
	Emotions []string `json:"emotions"`
}

func (s *Server) importImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	imageType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	img, err := s.svc.ImportImage(ctx, rawURL, models.ImageMetadata{
		Filename:   req.GetString("filename", ""),
		Type:       models.ImageType(imageType),
		Emotions:   splitList(req.GetString("emotions", "")),
		Category:   req.GetString("category", ""),
		UploadedBy: req.GetString("uploaded_by", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.Marshal(importResult{
		ID:       img.ID,
		URL:      img.URL,
		Filename: img.Filename,
		Type:     string(img.Type),
		Emotions: img.Emotions,
	})
	return mcp.NewToolResultText(string(out)), nil
}
