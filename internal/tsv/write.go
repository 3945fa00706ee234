package tsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/TrevorS/aucell"
	"gonum.org/v1/gonum/mat"
)

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return cw
}

// WriteMatrix writes m as a table with one row per entry of rows and one
// column per entry of cols. corner labels the row-name column. Values are
// written with prec digits after the decimal point, or in the shortest exact
// form when prec is negative.
func WriteMatrix(w io.Writer, corner string, rows, cols []string, m mat.Matrix, prec int) error {
	cw := newWriter(w)
	if err := cw.Write(append([]string{corner}, cols...)); err != nil {
		return err
	}
	if m != nil {
		r, c := m.Dims()
		if r != len(rows) || c != len(cols) {
			return fmt.Errorf("tsv: matrix is %dx%d but got %d rows and %d columns", r, c, len(rows), len(cols))
		}
		record := make([]string, c+1)
		for i := range r {
			record[0] = rows[i]
			for j := range c {
				record[j+1] = strconv.FormatFloat(m.At(i, j), 'f', prec, 64)
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteScores writes the AUC matrix, gene sets as rows and cells as columns.
func WriteScores(w io.Writer, s *aucell.ScoreMatrix) error {
	var m mat.Matrix
	if s.Matrix() != nil {
		m = s.Matrix()
	}
	return WriteMatrix(w, "gene_set", s.Sets(), s.Cells(), m, 6)
}

// WriteBinary writes the 0/1 activity matrix, gene sets as rows.
func WriteBinary(w io.Writer, ts *aucell.ThresholdSet) error {
	sets := make([]string, len(ts.Thresholds))
	for i, t := range ts.Thresholds {
		sets[i] = t.Set
	}
	var m mat.Matrix
	if b := ts.BinaryMatrix(); b != nil {
		m = b
	}
	return WriteMatrix(w, "gene_set", sets, ts.Cells(), m, 0)
}

// WriteClusters writes one line per clustered gene set in display order with
// its group label (-1 when ungrouped) and membership strength. Constant sets
// follow with an empty group.
func WriteClusters(w io.Writer, c *aucell.SetClustering) error {
	cw := newWriter(w)
	if err := cw.Write([]string{"gene_set", "order", "group", "strength"}); err != nil {
		return err
	}
	for pos, i := range c.Order {
		record := []string{
			c.Sets[i],
			strconv.Itoa(pos),
			strconv.Itoa(c.Labels[i]),
			strconv.FormatFloat(c.Strength[i], 'f', 4, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	for _, name := range c.Constant {
		if err := cw.Write([]string{name, "", "", ""}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
