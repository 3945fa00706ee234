package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/TrevorS/aucell"
	"github.com/TrevorS/aucell/internal/config"
	"github.com/TrevorS/aucell/internal/report"
	"github.com/TrevorS/aucell/internal/tsv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Output file names written to --out.
const (
	scoresFile     = "auc.tsv"
	binaryFile     = "binary.tsv"
	thresholdsFile = "thresholds.json"
	clustersFile   = "clusters.tsv"
)

// runCmd scores a gene set catalog against an expression table.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score gene sets in every cell and call the active cells of each set",
	Long: `Score gene sets in every cell and call the active cells of each set.

"aucell run" writes four files to --out:

  auc.tsv          gene sets × cells AUC scores
  binary.tsv       gene sets × cells 0/1 activity calls
  thresholds.json  per-set thresholds, how they were chosen and skipped sets
  clusters.tsv     gene sets grouped by score similarity (unless --cluster=false)

Gene sets are read from a GMT file: one set per line with a name, a description
and the member genes, tab separated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runScoring(c)
	},
}

func runScoring(c config.Config) error {
	m, err := readExpression(c.Expr)
	if err != nil {
		return err
	}
	catalog, err := readCatalog(c.Sets)
	if err != nil {
		return err
	}

	res, err := aucell.Run(m, catalog, c.Options())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.Out, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(c.Out, scoresFile), func(w io.Writer) error {
		return tsv.WriteScores(w, res.Scores)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(c.Out, binaryFile), func(w io.Writer) error {
		return tsv.WriteBinary(w, res.Thresholds)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(c.Out, thresholdsFile), func(w io.Writer) error {
		return report.Write(w, report.Summarize(res))
	}); err != nil {
		return err
	}
	if res.Clustering != nil {
		if err := writeFile(filepath.Join(c.Out, clustersFile), func(w io.Writer) error {
			return tsv.WriteClusters(w, res.Clustering)
		}); err != nil {
			return err
		}
	}

	log.Info().Str("out", c.Out).Msg("wrote results")
	return nil
}

func readCatalog(path string) ([]aucell.GeneSet, error) {
	if path == "" {
		return nil, fmt.Errorf("a gene set catalog is required (--sets)")
	}
	rc, err := tsv.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return tsv.ReadGMT(rc)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func init() {
	rootCmd.AddCommand(runCmd)

	def := aucell.DefaultConfig()
	flags := runCmd.Flags()
	flags.StringP("expr", "e", "", "path to a genes × cells expression TSV (.gz and .zst accepted)")
	flags.StringP("sets", "s", "", "path to a GMT gene set catalog")
	flags.StringP("out", "o", ".", "directory for the result files")
	flags.Uint64("seed", def.Seed, "seed for ranking tie-breaks and mixture fits")
	flags.IntP("rank-cutoff", "k", 0, "top ranking positions scored, 0 to derive from the data")
	flags.Float64("detected-quantile", def.Cutoff.DetectedQuantile, "quantile of detected genes per cell used as the rank cutoff")
	flags.Float64("gene-fraction", def.Cutoff.GeneFraction, "share of genes used when the quantile gives too small a cutoff")
	flags.Int("min-set-size", def.MinSetSize, "drop gene sets with fewer distinct genes")
	flags.Float64("min-population", def.Threshold.MinPopulationFraction, "smallest share of cells on each side of a mixture split")
	flags.Float64("fallback-quantile", def.Threshold.FallbackQuantile, "quantile threshold used when no mixture split is found")
	flags.Int("max-components", def.Threshold.MaxComponents, "largest mixture tried per gene set (1-3)")
	flags.Bool("cluster", true, "group gene sets by score similarity")
	flags.String("linkage", string(def.Cluster.Linkage), "grouping linkage: single, average or complete")

	runCmd.MarkFlagRequired("expr")
	runCmd.MarkFlagRequired("sets")
}
