package main

import (
	"fmt"
	"io"

	"github.com/TrevorS/aucell"
	"github.com/TrevorS/aucell/internal/tsv"
	"github.com/spf13/cobra"
)

// statsCmd reports detection statistics for an expression table.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize detected genes per cell and the rank cutoff they imply",
	Long: `Summarize detected genes per cell and the rank cutoff they imply.

A gene is detected in a cell when its expression is above zero. The rank cutoff
should stay below the number of genes most cells detect; "run" derives it from
the --detected-quantile of this distribution unless --rank-cutoff is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		m, err := readExpression(c.Expr)
		if err != nil {
			return err
		}
		return printStats(cmd.OutOrStdout(), m, c.CutoffPolicy())
	},
}

func printStats(w io.Writer, m *aucell.ExpressionMatrix, policy aucell.CutoffPolicy) error {
	nGenes, nCells := m.Dims()
	d := aucell.DetectionStats(m)

	fmt.Fprintf(w, "genes\t%d\ncells\t%d\n", nGenes, nCells)
	fmt.Fprintln(w, "quantile\tdetected genes")
	for i, p := range d.Probabilities {
		fmt.Fprintf(w, "%g\t%g\n", p, d.Quantiles[i])
	}

	k, err := aucell.RankCutoff(m, policy)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "rank cutoff\t%d\n", k)
	return err
}

func readExpression(path string) (*aucell.ExpressionMatrix, error) {
	if path == "" {
		return nil, fmt.Errorf("an expression table is required (--expr)")
	}
	rc, err := tsv.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return tsv.ReadExpression(rc)
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringP("expr", "e", "", "path to a genes × cells expression TSV (.gz and .zst accepted)")
	statsCmd.Flags().Float64("detected-quantile", aucell.DefaultCutoffPolicy().DetectedQuantile, "quantile of detected genes per cell used as the rank cutoff")
	statsCmd.Flags().Float64("gene-fraction", aucell.DefaultCutoffPolicy().GeneFraction, "share of genes used when the quantile gives too small a cutoff")
	statsCmd.MarkFlagRequired("expr")
}
