package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/pragcc/pragcc/internal/store"
)

// record saves run and returns its id, or "" when there is no store.
func (s *Server) record(run *store.Run) string {
	if s.store == nil {
		return ""
	}
	if err := s.store.SaveRun(run); err != nil {
		log.Warn().Err(err).Msg("tools.run.save")
		return ""
	}
	return run.ID
}

func (s *Server) handleListRuns(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return errResult("run history is disabled"), nil
	}
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	limit := min(max(getIntArg(args, "limit", 20), 1), 200)

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		return errResult(fmt.Sprintf("list runs: %v", err)), nil
	}
	total, _ := s.store.CountRuns()

	// The output can be large; get_run returns it.
	summaries := make([]store.Run, 0, len(runs))
	for _, r := range runs {
		summary := *r
		summary.Output = ""
		summaries = append(summaries, summary)
	}
	return jsonResult(map[string]any{
		"total": total,
		"runs":  summaries,
	}), nil
}

func (s *Server) handleGetRun(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return errResult("run history is disabled"), nil
	}
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	id := getStringArg(args, "id")
	if id == "" {
		return errResult("id is required"), nil
	}

	run, err := s.store.GetRun(id)
	if errors.Is(err, store.ErrRunNotFound) {
		return errResult(fmt.Sprintf("run not found: %s", id)), nil
	}
	if err != nil {
		return errResult(fmt.Sprintf("get run: %v", err)), nil
	}
	return jsonResult(run), nil
}

func (s *Server) handleDeleteRun(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return errResult("run history is disabled"), nil
	}
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	id := getStringArg(args, "id")
	if id == "" {
		return errResult("id is required"), nil
	}
	if _, err := s.store.GetRun(id); err != nil {
		return errResult(fmt.Sprintf("run not found: %s", id)), nil
	}
	if err := s.store.DeleteRun(id); err != nil {
		return errResult(fmt.Sprintf("delete failed: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"deleted": id,
		"status":  "ok",
	}), nil
}
