// ABOUTME: MCP tool implementations for the training tracker.
// ABOUTME: Session listing, exercise completion toggles, and sync control.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crux/internal/idem"
)

func (s *Server) registerTools() {
	// list_plans
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_plans",
		Description: "List imported training plans",
	}, s.handleListPlans)

	// list_sessions
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List a plan's training sessions with completion state",
	}, s.handleListSessions)

	// complete_exercise
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "complete_exercise",
		Description: "Record an exercise as completed within a session",
	}, s.handleCompleteExercise)

	// uncomplete_exercise
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "uncomplete_exercise",
		Description: "Remove all completion records for an exercise in a session",
	}, s.handleUncompleteExercise)

	// complete_session
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "complete_session",
		Description: "Mark a training session completed or not completed",
	}, s.handleCompleteSession)

	// training_status
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "training_status",
		Description: "Show pending sync queue depths and last successful sync",
	}, s.handleTrainingStatus)

	// sync_now
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "sync_now",
		Description: "Flush pending mutations and reconcile with the server",
	}, s.handleSyncNow)
}

// Tool input/output types

type listSessionsInput struct {
	PlanID string `json:"plan_id" jsonschema:"Plan identifier"`
	Week   int    `json:"week,omitempty" jsonschema:"Filter by week number"`
}

type completeExerciseInput struct {
	PlanID      string `json:"plan_id" jsonschema:"Plan identifier"`
	SessionID   string `json:"session_id" jsonschema:"Session identifier"`
	Title       string `json:"title" jsonschema:"Exercise display title"`
	Notes       string `json:"notes,omitempty" jsonschema:"Optional notes"`
	CompletedOn string `json:"completed_on,omitempty" jsonschema:"Date performed (YYYY-MM-DD), defaults to today"`
}

type uncompleteExerciseInput struct {
	PlanID    string `json:"plan_id" jsonschema:"Plan identifier"`
	SessionID string `json:"session_id" jsonschema:"Session identifier"`
	Title     string `json:"title" jsonschema:"Exercise display title"`
}

type completeSessionInput struct {
	PlanID    string `json:"plan_id" jsonschema:"Plan identifier"`
	SessionID string `json:"session_id" jsonschema:"Session identifier"`
	Completed *bool  `json:"completed,omitempty" jsonschema:"Completion state, defaults to true"`
	Notes     string `json:"notes,omitempty" jsonschema:"Session notes"`
}

type emptyInput struct{}

type simpleOutput struct {
	Message string `json:"message"`
}

type completionOutput struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type statusOutput struct {
	PendingSessions  int    `json:"pending_sessions"`
	PendingExercises int    `json:"pending_exercises"`
	PendingDeletes   int    `json:"pending_deletes"`
	LastSync         string `json:"last_sync,omitempty"`
	Message          string `json:"message"`
}

type syncOutput struct {
	Delivered int    `json:"delivered"`
	Remaining int    `json:"remaining"`
	Dropped   int    `json:"dropped"`
	Message   string `json:"message"`
}

// shortID returns an 8-character ID prefix for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Tool handlers

func (s *Server) handleListPlans(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	plans, err := s.catalog.ListPlans()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list plans: %w", err)
	}
	if len(plans) == 0 {
		return nil, map[string]any{"message": "No plans imported."}, nil
	}
	return nil, plans, nil
}

func (s *Server) handleListSessions(ctx context.Context, req *mcp.CallToolRequest, input listSessionsInput) (*mcp.CallToolResult, any, error) {
	if _, err := s.engine.EnsureSessions(ctx, input.PlanID); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize sessions: %w", err)
	}

	sessions := s.engine.Sessions(input.PlanID)
	if input.Week > 0 {
		filtered := sessions[:0]
		for _, rec := range sessions {
			if rec.Week == input.Week {
				filtered = append(filtered, rec)
			}
		}
		sessions = filtered
	}

	if len(sessions) == 0 {
		return nil, map[string]any{"message": "No sessions found."}, nil
	}
	return nil, sessions, nil
}

func (s *Server) handleCompleteExercise(ctx context.Context, req *mcp.CallToolRequest, input completeExerciseInput) (*mcp.CallToolResult, completionOutput, error) {
	completedOn := time.Now()
	if input.CompletedOn != "" {
		t, err := time.Parse("2006-01-02", input.CompletedOn)
		if err != nil {
			return nil, completionOutput{}, fmt.Errorf("invalid date: %s", input.CompletedOn)
		}
		completedOn = t
	}

	key := idem.Key(input.PlanID, input.SessionID, input.Title, time.Now())
	rec, err := s.engine.RecordExerciseCompletion(input.PlanID, input.SessionID, "", input.Title, key, input.Notes, completedOn)
	if err != nil {
		return nil, completionOutput{}, fmt.Errorf("failed to record completion: %w", err)
	}

	return nil, completionOutput{
		ID:        rec.ID,
		Title:     rec.Title,
		SessionID: rec.SessionID,
		Message:   fmt.Sprintf("Completed %s (ID: %s)", rec.Title, shortID(rec.ID)),
	}, nil
}

func (s *Server) handleUncompleteExercise(ctx context.Context, req *mcp.CallToolRequest, input uncompleteExerciseInput) (*mcp.CallToolResult, simpleOutput, error) {
	if err := s.engine.MarkIncomplete(input.PlanID, input.SessionID, input.Title); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to un-mark exercise: %w", err)
	}
	return nil, simpleOutput{
		Message: fmt.Sprintf("Removed completions of %s", input.Title),
	}, nil
}

func (s *Server) handleCompleteSession(ctx context.Context, req *mcp.CallToolRequest, input completeSessionInput) (*mcp.CallToolResult, simpleOutput, error) {
	completed := true
	if input.Completed != nil {
		completed = *input.Completed
	}

	if err := s.engine.MarkSessionCompleted(input.PlanID, input.SessionID, completed, input.Notes); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to mark session: %w", err)
	}

	state := "completed"
	if !completed {
		state = "not completed"
	}
	return nil, simpleOutput{
		Message: fmt.Sprintf("Session %s marked %s", shortID(input.SessionID), state),
	}, nil
}

func (s *Server) handleTrainingStatus(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, statusOutput, error) {
	sessions, exercises, deletes, err := s.engine.Pending()
	if err != nil {
		return nil, statusOutput{}, fmt.Errorf("failed to read queues: %w", err)
	}

	out := statusOutput{
		PendingSessions:  sessions,
		PendingExercises: exercises,
		PendingDeletes:   deletes,
	}
	if last, err := s.engine.LastSync(); err == nil && !last.IsZero() {
		out.LastSync = last.Format(time.RFC3339)
	}

	total := sessions + exercises + deletes
	if total == 0 {
		out.Message = "All changes synced."
	} else {
		out.Message = fmt.Sprintf("%d changes waiting to sync", total)
	}
	return nil, out, nil
}

func (s *Server) handleSyncNow(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, syncOutput, error) {
	report := s.engine.Sync(ctx)
	msg := fmt.Sprintf("Delivered %d, %d remaining", report.Delivered, report.Remaining)
	if report.AuthError {
		msg = "Sync blocked: sign in again"
	}
	return nil, syncOutput{
		Delivered: report.Delivered,
		Remaining: report.Remaining,
		Dropped:   report.Dropped,
		Message:   msg,
	}, nil
}
