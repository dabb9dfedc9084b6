package main

import (
	"errors"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pragcc/pragcc/internal/store"
)

var errNoHistory = errors.New("run history is disabled")

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded annotation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			if s == nil {
				return errNoHistory
			}
			defer closeStore(s)

			runs, err := s.ListRuns(limit)
			if err != nil {
				return err
			}
			total, err := s.CountRuns()
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "Created", "Target", "File", "Status", "Insertions"})
			table.SetBorder(false)
			table.SetCenterSeparator("")
			table.SetAutoWrapText(false)
			for _, r := range runs {
				status := r.Status
				if r.ErrorKind != "" {
					status += " (" + r.ErrorKind + ")"
				}
				file := r.File
				if file == "" {
					file = "-"
				}
				table.Append([]string{
					r.ID,
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					r.Target,
					file,
					status,
					fmt.Sprintf("%d", r.Insertions),
				})
			}
			table.SetFooter([]string{fmt.Sprintf("Showing %d of %d", len(runs), total), "", "", "", "", ""})
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 for all)")
	cmd.AddCommand(newRunsShowCmd(a), newRunsRmCmd(a))
	return cmd
}

func newRunsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print the annotated output of a run, or its failure message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := withStore(a, func(s *store.Store) (*store.Run, error) {
				return s.GetRun(args[0])
			})
			if err != nil {
				return err
			}
			if run.Status != store.StatusOK {
				return fmt.Errorf("run %s failed (%s): %s", run.ID, run.ErrorKind, run.Message)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), run.Output)
			return err
		},
	}
}

func newRunsRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID [ID...]",
		Short: "Delete recorded runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			_, err := withStore(a, func(s *store.Store) (*store.Run, error) {
				return nil, s.WithTransaction(func(tx *store.Store) error {
					for _, id := range args {
						if err := tx.DeleteRun(id); err != nil {
							return fmt.Errorf("delete %s: %w", id, err)
						}
					}
					return nil
				})
			})
			return err
		},
	}
}

func withStore(a *app, fn func(*store.Store) (*store.Run, error)) (*store.Run, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errNoHistory
	}
	defer closeStore(s)
	return fn(s)
}
