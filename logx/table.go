package logx

import (
	"fmt"
	"io"
	"text/tabwriter"

	"gridpolicy/grid"
)

// NewTableWriter creates a tabwriter for custom output
func NewTableWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// PrintYearTable - prints one row per simulated year
func PrintYearTable(w io.Writer, rows []grid.YearlyAggregates) error {
	tw := NewTableWriter(w)
	fmt.Fprintln(tw, "YEAR\tUSAGE GWh\tGEN GWh\tBALANCE\tNET CO2\tCOST\tOPINION\tRELIABILITY")
	for _, y := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%.3f\t%.3f\n",
			y.Year,
			formatNumber(int(y.PowerUsage)),
			formatNumber(int(y.PowerGeneration)),
			formatNumber(int(y.PowerBalance())),
			formatTonnes(y.NetEmissions()),
			FormatCost(y.TotalCost),
			y.PublicOpinion,
			y.Reliability,
		)
	}
	return tw.Flush()
}

// PrintWeightTable - prints labelled weights for one year, in the order given
func PrintWeightTable(w io.Writer, year int, labels []string, weights []float64) error {
	tw := NewTableWriter(w)
	fmt.Fprintf(tw, "%d\tACTION\tWEIGHT\n", year)
	for i, label := range labels {
		fmt.Fprintf(tw, "%d\t%s\t%.4f\n", i+1, label, weights[i])
	}
	return tw.Flush()
}

// PrintImprovementTable - prints the improvement history
func PrintImprovementTable(w io.Writer, iterations []int, scores, emissions, costs []float64) error {
	tw := NewTableWriter(w)
	fmt.Fprintln(tw, "ITERATION\tSCORE\tNET CO2\tCOST")
	for i := range iterations {
		fmt.Fprintf(tw, "%d\t%.4f\t%s\t%s\n", iterations[i], scores[i], formatTonnes(emissions[i]), FormatCost(costs[i]))
	}
	return tw.Flush()
}
