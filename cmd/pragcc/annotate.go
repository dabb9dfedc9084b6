package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pragcc/pragcc/internal/annotate"
	"github.com/pragcc/pragcc/internal/pipeline"
)

func newAnnotateCmd(a *app) *cobra.Command {
	var (
		target string
		spec   string
		output string
		verify bool
	)
	cmd := &cobra.Command{
		Use:   "annotate FILE.c",
		Short: "Annotate one C file and print or write the result",
		Long: `Annotate one C file. Without --spec the parallel file is FILE.yml, then
parallel.yml in the same directory, then the "spec" setting. The result goes
to stdout unless --output is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if target == "" {
				target = a.cfg.EffectiveTarget()
			}
			if !cmd.Flags().Changed("verify") {
				verify = a.cfg.EffectiveVerify()
			}
			if spec == "" {
				found, err := pipeline.FindSpec(a.configDir, path, a.cfg.Spec)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				spec = found
			}

			source, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			specData, err := os.ReadFile(spec)
			if err != nil {
				return err
			}

			res, annErr := annotate.AnnotateWithOptions(cmd.Context(), target, string(source), specData, annotate.Options{Verify: verify})
			a.recordRun(pipeline.NewRun(target, absPath(path), source, specData, res, annErr))
			if annErr != nil {
				var failure *annotate.Failure
				if errors.As(annErr, &failure) {
					return fmt.Errorf("%s: %s", path, failure.Message)
				}
				return annErr
			}

			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), res.Source)
				return err
			}
			return os.WriteFile(output, []byte(res.Source), 0o644)
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "directive set: mp (OpenMP) or acc (OpenACC)")
	cmd.Flags().StringVarP(&spec, "spec", "s", "", "parallel file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the annotated code to this file")
	cmd.Flags().BoolVar(&verify, "verify", true, "re-parse the annotated code before emitting it")
	return cmd
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
