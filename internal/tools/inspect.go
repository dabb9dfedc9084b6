package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pragcc/pragcc/internal/annotate"
	"github.com/pragcc/pragcc/internal/code"
)

func (s *Server) handleInspectCode(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	source := getStringArg(args, "raw_c_code")
	if source == "" {
		return errResult("C99 source code was not provided"), nil
	}

	sf, err := code.FromText(ctx, source)
	if err != nil {
		return errResult(annotate.Describe(err)), nil
	}
	return jsonResult(sf.Outline()), nil
}
