package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pragcc/pragcc/internal/annotate"
	"github.com/pragcc/pragcc/internal/metadata"
	"github.com/pragcc/pragcc/internal/pipeline"
)

func (s *Server) handleAnnotateOpenMP(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.annotate(ctx, metadata.OpenMP, req), nil
}

func (s *Server) handleAnnotateOpenACC(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.annotate(ctx, metadata.OpenACC, req), nil
}

func (s *Server) annotate(ctx context.Context, target metadata.Target, req *mcp.CallToolRequest) *mcp.CallToolResult {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error())
	}

	spec := getStringArg(args, "raw_parallel_file")
	if spec == "" {
		return errResult("Parallel file was not provided")
	}
	source := getStringArg(args, "raw_c_code")
	if source == "" {
		return errResult("C99 source code was not provided")
	}
	verify := getBoolArg(args, "verify", s.cfg.EffectiveVerify())

	res, err := annotate.AnnotateWithOptions(ctx, string(target), source, []byte(spec), annotate.Options{Verify: verify})
	runID := s.record(pipeline.NewRun(string(target), "", []byte(source), []byte(spec), res, err))

	if err != nil {
		var failure *annotate.Failure
		if errors.As(err, &failure) {
			return jsonErrResult(map[string]any{
				"kind":    failure.Kind,
				"message": failure.Message,
				"run_id":  runID,
			})
		}
		return errResult(fmt.Sprintf("annotate failed: %v", err))
	}

	return jsonResult(map[string]any{
		"target":     target,
		"source":     res.Source,
		"insertions": res.Insertions,
		"functions":  res.Functions,
		"run_id":     runID,
	})
}

// jsonErrResult is jsonResult flagged as an error.
func jsonErrResult(data any) *mcp.CallToolResult {
	r := jsonResult(data)
	r.IsError = true
	return r
}
