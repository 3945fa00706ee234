package tsv

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TrevorS/aucell"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const expression = "gene\tc1\tc2\tc3\n" +
	"g1\t5\t0\t1.5\n" +
	"# comment lines are ignored\n" +
	"g2\t0\t2\t0\n"

func TestReadExpression(t *testing.T) {
	m, err := ReadExpression(strings.NewReader(expression))
	require.NoError(t, err)

	nGenes, nCells := m.Dims()
	assert.Equal(t, 2, nGenes)
	assert.Equal(t, 3, nCells)
	assert.Equal(t, []string{"g1", "g2"}, m.Genes())
	assert.Equal(t, []string{"c1", "c2", "c3"}, m.Cells())
	assert.Equal(t, 1.5, m.At(0, 2))
	assert.Equal(t, 2.0, m.At(1, 1))
}

func TestReadExpression_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no cells", "gene\n"},
		{"no genes", "gene\tc1\tc2\n"},
		{"bad value", "gene\tc1\ng1\tx\n"},
		{"ragged row", "gene\tc1\tc2\ng1\t1\n"},
		{"negative value", "gene\tc1\ng1\t-1\n"},
		{"duplicate gene", "gene\tc1\ng1\t1\ng1\t2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadExpression(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}

	_, err := ReadExpression(strings.NewReader("gene\tc1\ng1\t-1\n"))
	assert.True(t, errors.Is(err, aucell.ErrInvalidMatrix))
}

func TestReadGMT(t *testing.T) {
	input := "TF1_regulon\tTF1\tg1\tg2\tg3\n" +
		"pathway\thttp://example.org/p\tg4\t\tg5\n"
	sets, err := ReadGMT(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, sets, 2)

	assert.Equal(t, "TF1_regulon", sets[0].Name)
	assert.Equal(t, "TF1", sets[0].Regulator)
	assert.Equal(t, []string{"g1", "g2", "g3"}, sets[0].Genes)

	assert.Equal(t, "pathway", sets[1].Name)
	assert.Empty(t, sets[1].Regulator)
	assert.Equal(t, []string{"g4", "g5"}, sets[1].Genes)
}

func TestReadGMT_Errors(t *testing.T) {
	for name, input := range map[string]string{
		"missing description": "only_name\n",
		"duplicate":           "a\tna\tg1\na\tna\tg2\n",
		"empty name":          "\tna\tg1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadGMT(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestOpen_Compressed(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "expr.tsv")
	require.NoError(t, os.WriteFile(plain, []byte(expression), 0o644))

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write([]byte(expression))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	gzPath := filepath.Join(dir, "expr.tsv.gz")
	require.NoError(t, os.WriteFile(gzPath, gz.Bytes(), 0o644))

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zstPath := filepath.Join(dir, "expr.tsv.zst")
	require.NoError(t, os.WriteFile(zstPath, enc.EncodeAll([]byte(expression), nil), 0o644))
	require.NoError(t, enc.Close())

	for _, path := range []string{plain, gzPath, zstPath} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			rc, err := Open(path)
			require.NoError(t, err)
			defer rc.Close()

			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, expression, string(got))
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(filepath.Join(dir, "missing.tsv"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.tsv.gz")
	require.NoError(t, os.WriteFile(bad, []byte("not gzip"), 0o644))
	_, err = Open(bad)
	assert.Error(t, err)
}

func TestWriteMatrix(t *testing.T) {
	var buf bytes.Buffer
	m := mat.NewDense(2, 2, []float64{0.5, 1, 0, 0.125})
	require.NoError(t, WriteMatrix(&buf, "gene_set", []string{"a", "b"}, []string{"c1", "c2"}, m, 3))

	want := "gene_set\tc1\tc2\n" +
		"a\t0.500\t1.000\n" +
		"b\t0.000\t0.125\n"
	assert.Equal(t, want, buf.String())

	err := WriteMatrix(&buf, "x", []string{"a"}, []string{"c1", "c2"}, m, 3)
	assert.Error(t, err)
}

func TestWriteScoresAndBinary(t *testing.T) {
	scores, err := aucell.NewScoreMatrix([]string{"s1"}, []string{"c1", "c2"}, mat.NewDense(1, 2, []float64{0.2, 0.2}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteScores(&buf, scores))
	assert.Equal(t, "gene_set\tc1\tc2\ns1\t0.200000\t0.200000\n", buf.String())

	buf.Reset()
	ts := aucell.SelectThresholds(scores, aucell.DefaultThresholdConfig())
	require.NoError(t, WriteBinary(&buf, ts))
	assert.Equal(t, "gene_set\tc1\tc2\ns1\t0\t0\n", buf.String())

	buf.Reset()
	empty, err := aucell.NewScoreMatrix(nil, []string{"c1"}, nil)
	require.NoError(t, err)
	require.NoError(t, WriteScores(&buf, empty))
	assert.Equal(t, "gene_set\tc1\n", buf.String())
}

func TestWriteClusters(t *testing.T) {
	c := &aucell.SetClustering{
		Clustered: true,
		Sets:      []string{"a", "b", "c"},
		Order:     []int{2, 0, 1},
		Labels:    []int{0, 0, -1},
		Strength:  []float64{1, 0.5, 0},
		Constant:  []string{"flat"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteClusters(&buf, c))

	want := "gene_set\torder\tgroup\tstrength\n" +
		"c\t0\t-1\t0.0000\n" +
		"a\t1\t0\t1.0000\n" +
		"b\t2\t0\t0.5000\n" +
		"flat\t\t\t\n"
	assert.Equal(t, want, buf.String())
}
