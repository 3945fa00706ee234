package aucell

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ExpressionMatrix is a read-only genes × cells view of expression values.
// Rows are genes and columns are cells; identifier order carries no meaning.
// The matrix is borrowed from the caller and must not be mutated while any
// stage of the pipeline is using it.
type ExpressionMatrix struct {
	values    mat.Matrix
	genes     []string
	cells     []string
	geneIndex map[string]int
}

// NewExpressionMatrix validates values against the gene and cell identifiers
// and returns a read-only view. Values must be finite and non-negative, and
// identifiers must be unique. Errors wrap ErrInvalidMatrix.
func NewExpressionMatrix(genes, cells []string, values mat.Matrix) (*ExpressionMatrix, error) {
	if values == nil {
		return nil, fmt.Errorf("%w: nil values", ErrInvalidMatrix)
	}
	if len(genes) == 0 || len(cells) == 0 {
		return nil, fmt.Errorf("%w: %d genes x %d cells", ErrInvalidMatrix, len(genes), len(cells))
	}
	rows, cols := values.Dims()
	if rows != len(genes) || cols != len(cells) {
		return nil, fmt.Errorf("%w: values are %dx%d but got %d genes and %d cells",
			ErrInvalidMatrix, rows, cols, len(genes), len(cells))
	}

	geneIndex := make(map[string]int, len(genes))
	for i, g := range genes {
		if _, dup := geneIndex[g]; dup {
			return nil, fmt.Errorf("%w: duplicate gene %q", ErrInvalidMatrix, g)
		}
		geneIndex[g] = i
	}
	seen := make(map[string]struct{}, len(cells))
	for _, c := range cells {
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: duplicate cell %q", ErrInvalidMatrix, c)
		}
		seen[c] = struct{}{}
	}

	for i := range rows {
		for j := range cols {
			v := values.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("%w: value %v at gene %q, cell %q",
					ErrInvalidMatrix, v, genes[i], cells[j])
			}
		}
	}

	return &ExpressionMatrix{
		values:    values,
		genes:     append([]string(nil), genes...),
		cells:     append([]string(nil), cells...),
		geneIndex: geneIndex,
	}, nil
}

// Dims returns the number of genes and cells.
func (m *ExpressionMatrix) Dims() (genes, cells int) {
	return len(m.genes), len(m.cells)
}

// Genes returns the gene identifiers in row order. The slice must not be modified.
func (m *ExpressionMatrix) Genes() []string { return m.genes }

// Cells returns the cell identifiers in column order. The slice must not be modified.
func (m *ExpressionMatrix) Cells() []string { return m.cells }

// GeneIndex returns the row of gene id.
func (m *ExpressionMatrix) GeneIndex(id string) (int, bool) {
	i, ok := m.geneIndex[id]
	return i, ok
}

// At returns the expression of gene in cell.
func (m *ExpressionMatrix) At(gene, cell int) float64 {
	return m.values.At(gene, cell)
}

// CellColumn copies the expression column of cell into dst, allocating when
// dst is nil, and returns it.
func (m *ExpressionMatrix) CellColumn(dst []float64, cell int) []float64 {
	return mat.Col(dst, cell, m.values)
}
