package commands

import (
	"fmt"

	"emissions-mcp/internal/emissions"
	"emissions-mcp/internal/store"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	seriesFlag string
	unitFlag   string
	startFlag  string
	endFlag    string
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List stored well plans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		plans, err := service.ListPlans(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, plans)
		}
		tbl := newTable(out, table.Row{"Name", "ID", "State", "Start"})
		for _, p := range plans {
			tbl.AppendRow(table.Row{p.Name, p.ID, p.State, emissions.Day.GenerateLabel(p.StartDate.Time)})
		}
		tbl.Render()
		return nil
	},
}

var emissionsCmd = &cobra.Command{
	Use:   "emissions <plan-id>",
	Short: "Print the aggregated emission series of a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid plan id %q: %w", args[0], err)
		}
		series, err := store.ParseSeries(seriesFlag)
		if err != nil {
			return err
		}
		unitName := unitFlag
		if unitName == "" {
			unitName = string(cfg.DefaultUnit)
		}
		unit, err := emissions.ParseUnit(unitName)
		if err != nil {
			return err
		}
		window, err := emissions.ParseWindow(startFlag, endFlag, unit)
		if err != nil {
			return err
		}

		rows, err := service.Emissions(cmd.Context(), id, series, unit, window)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			if rows == nil {
				rows = []emissions.DailyEmission{}
			}
			return writeJSON(out, rows)
		}

		tbl := newTable(out, table.Row{"Date", "Primary", "Auxiliary", "Vessels", "Air", "Consumables", "External power", "Total"})
		var sum emissions.Bundle
		for _, r := range rows {
			b := r.Bundle
			sum = sum.Add(b)
			tbl.AppendRow(table.Row{
				unit.GenerateLabel(r.Date),
				tonnes(b.PrimaryUnit), tonnes(b.AuxiliaryUnit), tonnes(b.SupportVessels),
				tonnes(b.AirTransport), tonnes(b.Consumables), tonnes(b.ExternalPowerSupply),
				tonnes(b.Total()),
			})
		}
		tbl.AppendFooter(table.Row{
			"Total",
			tonnes(sum.PrimaryUnit), tonnes(sum.AuxiliaryUnit), tonnes(sum.SupportVessels),
			tonnes(sum.AirTransport), tonnes(sum.Consumables), tonnes(sum.ExternalPowerSupply),
			tonnes(sum.Total()),
		})
		tbl.Render()
		return nil
	},
}

var reductionsCmd = &cobra.Command{
	Use:   "reductions <plan-id>",
	Short: "Print the daily CO2 reduction per initiative of a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid plan id %q: %w", args[0], err)
		}
		entries, err := service.Reductions(cmd.Context(), id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, entries)
		}

		tbl := newTable(out, table.Row{"Date", "Initiative", "Type", "Reduction"})
		total := 0.0
		for _, e := range entries {
			date := emissions.Day.GenerateLabel(e.Date)
			if len(e.Initiatives) == 0 {
				tbl.AppendRow(table.Row{date, "-", "-", tonnes(0)})
				continue
			}
			for _, in := range e.Initiatives {
				tbl.AppendRow(table.Row{date, in.Name, in.Type, tonnes(in.TotalValue)})
				total += in.TotalValue
			}
		}
		tbl.AppendFooter(table.Row{"Total", "", "", tonnes(total)})
		tbl.Render()
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{plansCmd, emissionsCmd, reductionsCmd} {
		c.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
		rootCmd.AddCommand(c)
	}
	emissionsCmd.Flags().StringVar(&seriesFlag, "series", "baseline", "baseline or target")
	emissionsCmd.Flags().StringVar(&unitFlag, "unit", "", "day or hour (DEFAULT_GRANULARITY when empty)")
	emissionsCmd.Flags().StringVar(&startFlag, "start", "", "first date to include (YYYY-MM-DD or RFC3339)")
	emissionsCmd.Flags().StringVar(&endFlag, "end", "", "last date to include (YYYY-MM-DD or RFC3339)")
}
