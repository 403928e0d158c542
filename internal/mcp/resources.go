// ABOUTME: MCP resource implementations for the training tracker.
// ABOUTME: Provides crux://plans, crux://status, and crux://week resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crux/internal/models"
)

func (s *Server) registerResources() {
	// crux://plans - Imported plans with progress
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "crux://plans",
		Name:        "Training Plans",
		Description: "Imported training plans with per-plan completion progress",
		MIMEType:    "application/json",
	}, s.handlePlansResource)

	// crux://status - Sync queue depths and last sync
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "crux://status",
		Name:        "Sync Status",
		Description: "Pending mutation queue depths and last successful sync",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	// crux://week - Sessions completed in the last 7 days
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "crux://week",
		Name:        "This Week's Training",
		Description: "Sessions and exercises completed in the last 7 days",
		MIMEType:    "application/json",
	}, s.handleWeekResource)
}

// Resource handlers

func (s *Server) handlePlansResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	plans, err := s.catalog.ListPlans()
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	type planProgress struct {
		Plan      *models.Plan `json:"plan"`
		Sessions  int          `json:"sessions"`
		Completed int          `json:"completed"`
	}

	out := make([]planProgress, 0, len(plans))
	for _, p := range plans {
		prog := planProgress{Plan: p}
		for _, rec := range s.engine.Sessions(p.ID) {
			prog.Sessions++
			if rec.Completed {
				prog.Completed++
			}
		}
		out = append(out, prog)
	}

	return resourceResult("crux://plans", out)
}

func (s *Server) handleStatusResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	sessions, exercises, deletes, err := s.engine.Pending()
	if err != nil {
		return nil, fmt.Errorf("failed to read queues: %w", err)
	}

	result := map[string]any{
		"pending": map[string]int{
			"sessions":  sessions,
			"exercises": exercises,
			"deletes":   deletes,
		},
	}
	if last, err := s.engine.LastSync(); err == nil && !last.IsZero() {
		result["last_sync"] = last.Format(time.RFC3339)
	}

	return resourceResult("crux://status", result)
}

func (s *Server) handleWeekResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	plans, err := s.catalog.ListPlans()
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	weekStart := time.Now().AddDate(0, 0, -7)
	var sessions []models.SessionRecord
	var exercises []models.ExerciseCompletion
	for _, p := range plans {
		for _, rec := range s.engine.Sessions(p.ID) {
			if rec.Completed && rec.CompletedAt != nil && rec.CompletedAt.After(weekStart) {
				sessions = append(sessions, rec)
			}
		}
		for _, rec := range s.engine.Exercises(p.ID) {
			if rec.CompletedOn.After(weekStart) {
				exercises = append(exercises, rec)
			}
		}
	}

	result := map[string]any{
		"since":     weekStart.Format("2006-01-02"),
		"sessions":  sessions,
		"exercises": exercises,
		"counts": map[string]int{
			"sessions":  len(sessions),
			"exercises": len(exercises),
		},
	}

	return resourceResult("crux://week", result)
}

// resourceResult marshals v as the single JSON content of a resource.
func resourceResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
