// Package tools exposes annotation as MCP tools.
package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pragcc/pragcc/internal/config"
	"github.com/pragcc/pragcc/internal/store"
)

// Version is reported in the MCP handshake.
var Version = "dev"

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp   *mcp.Server
	store *store.Store
	cfg   *config.Config

	// batchMu serializes directory runs so two batches never write the
	// same output files.
	batchMu sync.Mutex
}

// NewServer creates a new MCP server with all tools registered. s may be
// nil, in which case runs are not recorded and the run tools report an
// error.
func NewServer(s *store.Store, cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	srv := &Server{
		store: s,
		cfg:   cfg,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "pragcc",
				Version: Version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

const annotateSchema = `{
	"type": "object",
	"properties": {
		"raw_c_code": {
			"type": "string",
			"description": "The C99 source code to annotate. It must contain at least one #include line and one function, and the includes must precede the first function."
		},
		"raw_parallel_file": {
			"type": "string",
			"description": "YAML parallel file describing which functions and loops receive which directives (functs.all, functs.parallel)."
		},
		"verify": {
			"type": "boolean",
			"description": "Re-parse the annotated output and fail if it no longer parses (default from config)."
		}
	},
	"required": ["raw_c_code", "raw_parallel_file"]
}`

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "annotate_openmp",
		Description: "Annotate C99 source code with OpenMP compiler directives (#pragma omp parallel / for / parallel for) as described by a parallel file. Returns the annotated source and the insertions applied per function.",
		InputSchema: json.RawMessage(annotateSchema),
	}, s.handleAnnotateOpenMP)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "annotate_openacc",
		Description: "Annotate C99 source code with OpenACC compiler directives (#pragma acc data / loop / parallel loop) as described by a parallel file. Returns the annotated source and the insertions applied per function.",
		InputSchema: json.RawMessage(annotateSchema),
	}, s.handleAnnotateOpenACC)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "inspect_code",
		Description: "Segment C99 source code into includes, declarations and functions, and list the for-loops of every function with their index (nro), nesting depth and line span. Use to write the nro and scope values of a parallel file.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"raw_c_code": {
					"type": "string",
					"description": "The C99 source code to inspect."
				}
			},
			"required": ["raw_c_code"]
		}`),
	}, s.handleInspectCode)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "annotate_directory",
		Description: "Annotate every .c file under a directory. Each file is paired with <name>.yml, then parallel.yml in the same directory, then the configured parallel file; output is written next to the source as omp_<name>.c or acc_<name>.c.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "Absolute path of the directory to annotate."
				},
				"target": {
					"type": "string",
					"description": "Directive set: 'mp' (OpenMP) or 'acc' (OpenACC).",
					"enum": ["mp", "acc"]
				},
				"force": {
					"type": "boolean",
					"description": "Re-annotate files that are unchanged since their last successful run."
				}
			},
			"required": ["path"]
		}`),
	}, s.handleAnnotateDirectory)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_runs",
		Description: "List recorded annotation runs, newest first, with target, file, status, failure kind and insertion count.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {
					"type": "integer",
					"description": "Max runs (default 20, max 200)"
				}
			}
		}`),
	}, s.handleListRuns)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_run",
		Description: "Return one recorded annotation run, including the annotated output.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {
					"type": "string",
					"description": "Run id as returned by list_runs or an annotate tool."
				}
			},
			"required": ["id"]
		}`),
	}, s.handleGetRun)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "delete_run",
		Description: "Delete one recorded annotation run. This action is irreversible.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {
					"type": "string",
					"description": "Run id to delete."
				}
			},
			"required": ["id"]
		}`),
	}, s.handleDeleteRun)
}

// jsonResult marshals data to JSON and returns as tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	f, ok := args[key].(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

// getBoolArg extracts a boolean argument with a default value.
func getBoolArg(args map[string]any, key string, defaultVal bool) bool {
	b, ok := args[key].(bool)
	if !ok {
		return defaultVal
	}
	return b
}
