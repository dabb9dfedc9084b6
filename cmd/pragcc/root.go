package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pragcc/pragcc/internal/config"
	"github.com/pragcc/pragcc/internal/logging"
	"github.com/pragcc/pragcc/internal/store"
	"github.com/pragcc/pragcc/internal/tools"
)

// app holds the flags and settings shared by every subcommand.
type app struct {
	configDir string
	dbPath    string
	noHistory bool
	logLevel  string
	logFormat string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "pragcc",
		Short: "Annotate C99 code with OpenMP and OpenACC directives",
		Long: `pragcc inserts compiler parallelization directives into sequential C99
code. A YAML parallel file names the functions and loops to annotate and the
clauses of each directive:

  functs:
    all: [main, saxpy]
    parallel:
      saxpy:
        mp:
          parallel_for:
            - nro: 0
              clauses:
                private: [i]

Loops are numbered per function in textual order starting at 0; run
"pragcc inspect" to list them.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	cmd.PersistentFlags().StringVar(&a.configDir, "config-dir", ".", "directory holding "+config.FileName)
	cmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "run history database (default ~/.cache/pragcc/runs.db)")
	cmd.PersistentFlags().BoolVar(&a.noHistory, "no-history", false, "do not record runs")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: auto, console, json")

	cmd.AddCommand(
		newAnnotateCmd(a),
		newInspectCmd(a),
		newBatchCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newRunsCmd(a),
		newInstallCmd(),
		newUninstallCmd(),
		newVersionCmd(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.cfg = config.LoadConfig(a.configDir)
	level := a.logLevel
	if level == "" {
		level = a.cfg.EffectiveLogLevel()
	}
	format := a.logFormat
	if format == "" {
		format = a.cfg.EffectiveLogFormat()
	}
	// Logs go to stderr; stdout carries annotated code and MCP traffic.
	logging.Setup(cmd.ErrOrStderr(), level, format)
	return nil
}

// openStore opens the run database, or returns nil when history is off.
func (a *app) openStore() (*store.Store, error) {
	if a.noHistory {
		return nil, nil
	}
	path := a.dbPath
	if path == "" {
		path = a.cfg.DBPath
	}
	var (
		s   *store.Store
		err error
	)
	if path == "" {
		s, err = store.Open()
	} else {
		s, err = store.OpenPath(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	return s, nil
}

// recordRun saves a run unless history is disabled. History problems never
// fail the command.
func (a *app) recordRun(run *store.Run) {
	s, err := a.openStore()
	if err != nil {
		log.Warn().Err(err).Msg("history.open")
		return
	}
	if s == nil {
		return
	}
	defer closeStore(s)
	if err := s.SaveRun(run); err != nil {
		log.Warn().Err(err).Msg("history.save")
	}
}

func closeStore(s *store.Store) {
	if s != nil {
		_ = s.Close()
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "pragcc", version)
		},
	}
}

func init() {
	tools.Version = version
}
