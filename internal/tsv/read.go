package tsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/TrevorS/aucell"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

// ReadExpression parses a genes × cells expression table. The header line
// holds a label for the gene column followed by the cell identifiers; every
// other line holds a gene identifier followed by one value per cell.
func ReadExpression(r io.Reader) (*aucell.ExpressionMatrix, error) {
	cr := newReader(r)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("tsv: empty expression table")
		}
		return nil, fmt.Errorf("tsv: reading header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("tsv: header has no cell columns")
	}
	cells := make([]string, len(header)-1)
	for i, h := range header[1:] {
		cells[i] = strings.TrimSpace(h)
	}
	nCells := len(cells)

	var genes []string
	var data []float64
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tsv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		gene := strings.TrimSpace(record[0])
		for j, s := range record[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("tsv: line %d, gene %q, cell %q: %w", line, gene, cells[j], err)
			}
			data = append(data, v)
		}
		genes = append(genes, gene)
	}
	if len(genes) == 0 {
		return nil, fmt.Errorf("%w: no gene rows", aucell.ErrInvalidMatrix)
	}

	log.Debug().Int("genes", len(genes)).Int("cells", nCells).Msg("read expression table")
	return aucell.NewExpressionMatrix(genes, cells, mat.NewDense(len(genes), nCells, data))
}

// ReadGMT parses a gene set catalog in GMT format: one set per line, with the
// set name, a description and then the member genes, tab separated. A
// description naming a single gene identifier is kept as the set's
// regulator.
func ReadGMT(r io.Reader) ([]aucell.GeneSet, error) {
	cr := newReader(r)
	cr.FieldsPerRecord = -1

	var sets []aucell.GeneSet
	seen := make(map[string]bool)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tsv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) < 2 {
			return nil, fmt.Errorf("tsv: line %d: gene set needs a name and a description", line)
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			return nil, fmt.Errorf("tsv: line %d: empty gene set name", line)
		}
		if seen[name] {
			return nil, fmt.Errorf("tsv: line %d: duplicate gene set %q", line, name)
		}
		seen[name] = true

		s := aucell.GeneSet{Name: name, Regulator: regulator(record[1])}
		for _, g := range record[2:] {
			if g = strings.TrimSpace(g); g != "" {
				s.Genes = append(s.Genes, g)
			}
		}
		sets = append(sets, s)
	}

	log.Debug().Int("sets", len(sets)).Msg("read gene set catalog")
	return sets, nil
}

// regulator returns desc when it looks like a single gene identifier.
func regulator(desc string) string {
	desc = strings.TrimSpace(desc)
	if desc == "" || strings.EqualFold(desc, "na") || strings.ContainsAny(desc, " \t/:") {
		return ""
	}
	return desc
}
