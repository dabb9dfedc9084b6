package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const mcpServerKey = "pragcc"

// editor is an MCP client configured through a JSON file with an
// mcpServers map.
type editor struct {
	name string
	path func(home string) string
}

var editors = []editor{
	{"Cursor", func(home string) string { return filepath.Join(home, ".cursor", "mcp.json") }},
	{"Windsurf", func(home string) string { return filepath.Join(home, ".codeium", "windsurf", "mcp_config.json") }},
}

func newInstallCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register \"pragcc serve\" as an MCP server in Cursor and Windsurf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			binaryPath, err := detectBinaryPath()
			if err != nil {
				return err
			}
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("home dir: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "pragcc %s install\nBinary: %s\n", version, binaryPath)
			for _, e := range editors {
				if err := installEditorMCP(w, binaryPath, e.path(home), e.name, dryRun); err != nil {
					return fmt.Errorf("%s: %w", e.name, err)
				}
			}
			fmt.Fprintln(w, "Done. Restart the editors to activate.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would change without writing")
	return cmd
}

func newUninstallCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the pragcc MCP server from Cursor and Windsurf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("home dir: %w", err)
			}
			for _, e := range editors {
				if err := removeEditorMCP(cmd.OutOrStdout(), e.path(home), e.name, dryRun); err != nil {
					return fmt.Errorf("%s: %w", e.name, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would change without writing")
	return cmd
}

// detectBinaryPath resolves the current binary's real path.
func detectBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("detect binary: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve symlink: %w", err)
	}
	return resolved, nil
}

func readMCPConfig(path string) (map[string]any, error) {
	root := make(map[string]any)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return root, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return root, nil
}

func writeMCPConfig(path string, root map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	out, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(out, '\n'), 0o600)
}

// installEditorMCP upserts the pragcc entry in an editor's MCP config. Other
// entries are preserved.
func installEditorMCP(w io.Writer, binaryPath, configPath, editorName string, dryRun bool) error {
	fmt.Fprintf(w, "[%s] MCP config: %s\n", editorName, configPath)
	if dryRun {
		fmt.Fprintf(w, "  [dry-run] would upsert %s\n", mcpServerKey)
		return nil
	}

	root, err := readMCPConfig(configPath)
	if err != nil {
		return err
	}
	servers, ok := root["mcpServers"].(map[string]any)
	if !ok {
		servers = make(map[string]any)
	}
	servers[mcpServerKey] = map[string]any{
		"command": binaryPath,
		"args":    []string{"serve"},
	}
	root["mcpServers"] = servers

	if err := writeMCPConfig(configPath, root); err != nil {
		return err
	}
	fmt.Fprintf(w, "  registered %s\n", mcpServerKey)
	return nil
}

// removeEditorMCP deletes the pragcc entry from an editor's MCP config. A
// missing file or entry is not an error.
func removeEditorMCP(w io.Writer, configPath, editorName string, dryRun bool) error {
	if _, err := os.Stat(configPath); err != nil {
		return nil
	}
	root, err := readMCPConfig(configPath)
	if err != nil {
		return err
	}
	servers, ok := root["mcpServers"].(map[string]any)
	if !ok {
		return nil
	}
	if _, exists := servers[mcpServerKey]; !exists {
		return nil
	}

	fmt.Fprintf(w, "[%s] MCP config: %s\n", editorName, configPath)
	if dryRun {
		fmt.Fprintf(w, "  [dry-run] would remove %s\n", mcpServerKey)
		return nil
	}
	delete(servers, mcpServerKey)
	if err := writeMCPConfig(configPath, root); err != nil {
		return err
	}
	fmt.Fprintf(w, "  removed %s\n", mcpServerKey)
	return nil
}
