package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pragcc/pragcc/internal/config"
	"github.com/pragcc/pragcc/internal/discover"
	"github.com/pragcc/pragcc/internal/metadata"
	"github.com/pragcc/pragcc/internal/pipeline"
	"github.com/pragcc/pragcc/internal/watcher"
)

// batchFlags are shared by batch and watch.
type batchFlags struct {
	target string
	force  bool
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "directive set: mp (OpenMP) or acc (OpenACC)")
	cmd.Flags().BoolVar(&f.force, "force", false, "re-annotate files unchanged since their last successful run")
}

// options resolves the pipeline options of one directory. A .pragcc.yml
// inside it wins over the global settings.
func (f *batchFlags) options(a *app, dir string) (pipeline.Options, error) {
	cfg := a.cfg
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		cfg = config.LoadConfig(dir)
	}
	target := f.target
	if target == "" {
		target = cfg.EffectiveTarget()
	}
	if _, err := metadata.ParseTarget(target); err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.OptionsFromConfig(cfg, target, f.force), nil
}

func discoverOptions(cfg *config.Config) *discover.Options {
	return &discover.Options{
		ExcludeDirs:  cfg.ExcludeDirs,
		SkipPrefixes: cfg.Prefixes(),
	}
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		flags  batchFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Annotate every C file under a directory",
		Long: `Annotate every .c file under DIR. Each file pairs with NAME.yml, then
parallel.yml in its directory, then the "spec" setting; files without a
parallel file are skipped. Output goes next to the source as omp_NAME.c or
acc_NAME.c. One failing file does not stop the others, but the command exits
non-zero when any file failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(a, args[0])
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore(s)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, err := pipeline.New(ctx, s, args[0], opts).Run()
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(cmd.OutOrStdout(), report)
			}
			if n := report.Count(pipeline.StatusFailed); n > 0 {
				return fmt.Errorf("%d of %d files failed", n, len(report.Files))
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(w io.Writer, report *pipeline.Report) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Status", "Insertions", "Output"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
	for _, f := range report.Files {
		detail := f.Output
		if f.Status == pipeline.StatusFailed || f.Status == pipeline.StatusSkipped {
			detail = f.Message
		}
		status := f.Status
		if f.ErrorKind != "" {
			status += " (" + f.ErrorKind + ")"
		}
		table.Append([]string{f.File, status, fmt.Sprintf("%d", f.Insertions), detail})
	}
	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(report.Files)),
		fmt.Sprintf("%d ok", report.Count(pipeline.StatusOK)),
		"",
		fmt.Sprintf("%d failed", report.Count(pipeline.StatusFailed)),
	})
	table.Render()
}

func newWatchCmd(a *app) *cobra.Command {
	var flags batchFlags
	cmd := &cobra.Command{
		Use:   "watch DIR [DIR...]",
		Short: "Annotate directories now and again whenever their inputs change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore(s)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			run := func(ctx context.Context, dir string) error {
				opts, err := flags.options(a, dir)
				if err != nil {
					return err
				}
				report, err := pipeline.New(ctx, s, dir, opts).Run()
				if err != nil {
					return err
				}
				printReport(cmd.OutOrStdout(), report)
				return nil
			}

			lo, hi := a.cfg.EffectiveWatchIntervals()
			w := watcher.New(run, watcher.Options{
				MinInterval: lo,
				MaxInterval: hi,
				Discover:    discoverOptions(a.cfg),
				Extra:       extraInputs(a.cfg),
			})
			for _, dir := range args {
				if err := run(ctx, dir); err != nil {
					return err
				}
				w.Add(dir)
			}
			log.Info().Strs("dirs", args).Msg("watcher.start")
			w.Run(ctx)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func extraInputs(cfg *config.Config) []string {
	if cfg.Spec == "" {
		return nil
	}
	return []string{cfg.Spec}
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the annotation tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore(s)
			return serve(cmd.Context(), s, a.cfg)
		},
	}
}
