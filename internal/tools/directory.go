package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pragcc/pragcc/internal/config"
	"github.com/pragcc/pragcc/internal/metadata"
	"github.com/pragcc/pragcc/internal/pipeline"
)

func (s *Server) handleAnnotateDirectory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	path := getStringArg(args, "path")
	if path == "" {
		return errResult("path is required"), nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errResult(fmt.Sprintf("invalid path: %v", err)), nil
	}
	if info, statErr := os.Stat(absPath); statErr != nil || !info.IsDir() {
		return errResult(fmt.Sprintf("not a directory: %s", absPath)), nil
	}

	// Settings of the annotated directory win over the server's.
	cfg := config.LoadConfig(absPath)
	if cfg.Target == "" {
		cfg.Target = s.cfg.Target
	}
	target := getStringArg(args, "target")
	if target == "" {
		target = cfg.EffectiveTarget()
	}
	if _, err := metadata.ParseTarget(target); err != nil {
		return errResult(err.Error()), nil
	}

	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	report, err := pipeline.New(ctx, s.store, absPath, pipeline.OptionsFromConfig(cfg, target, getBoolArg(args, "force", false))).Run()
	if err != nil {
		return errResult(fmt.Sprintf("annotate directory failed: %v", err)), nil
	}
	return jsonResult(report), nil
}
