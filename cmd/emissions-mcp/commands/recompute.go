package commands

import (
	"fmt"
	"runtime"

	"emissions-mcp/internal/planning"
	"emissions-mcp/internal/wellplan"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type recomputeRow struct {
	Path   string                    `json:"path"`
	Result *planning.RecomputeResult `json:"result,omitempty"`
	PlanID string                    `json:"plan_id"`
	Name   string                    `json:"name"`
	State  string                    `json:"state"`
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute <plan.yaml>...",
	Short: "Load well plan files and recompute their emission series",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(runtime.GOMAXPROCS(0))

		rows := make([]recomputeRow, len(args))
		for i, path := range args {
			g.Go(func() error {
				plan, err := wellplan.Load(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				res, err := service.Import(ctx, plan)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				rows[i] = recomputeRow{
					Path:   path,
					Result: res,
					PlanID: plan.ID.String(),
					Name:   plan.Name,
					State:  string(plan.State),
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, rows)
		}

		tbl := newTable(out, table.Row{"Plan", "ID", "State", "Baseline day", "Baseline hour", "Target day", "Target hour"})
		for _, r := range rows {
			if r.Result == nil {
				tbl.AppendRow(table.Row{r.Name, r.PlanID, r.State, "-", "-", "-", "-"})
				continue
			}
			c := r.Result.Rows
			tbl.AppendRow(table.Row{r.Name, r.PlanID, r.State, c["baseline"]["day"], c["baseline"]["hour"], c["target"]["day"], c["target"]["hour"]})
		}
		tbl.AppendFooter(table.Row{fmt.Sprintf("%d plans", len(rows))})
		tbl.Render()
		return nil
	},
}

func init() {
	recomputeCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(recomputeCmd)
}
