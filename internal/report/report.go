// Package report renders the JSON summary of a scoring run.
package report

import (
	"errors"
	"io"
	"math"

	"github.com/TrevorS/aucell"
	"github.com/bytedance/sonic"
)

// Threshold is the JSON form of one gene set's activity threshold.
type Threshold struct {
	Set        string  `json:"set"`
	Threshold  float64 `json:"threshold"`
	Active     int     `json:"active_cells"`
	Confidence string  `json:"confidence"`
	Components int     `json:"components,omitempty"`
	Fallback   bool    `json:"fallback"`
	Comment    string  `json:"comment"`
}

// Skipped is a gene set that was not scored.
type Skipped struct {
	Set    string `json:"set"`
	Reason string `json:"reason"`
}

// Coverage reports the genes of a set missing from the matrix.
type Coverage struct {
	Set     string   `json:"set"`
	Found   int      `json:"found"`
	Missing []string `json:"missing,omitempty"`
}

// Summary is the content of thresholds.json.
type Summary struct {
	Seed       uint64      `json:"seed"`
	RankCutoff int         `json:"rank_cutoff"`
	Genes      int         `json:"genes"`
	Cells      int         `json:"cells"`
	Thresholds []Threshold `json:"thresholds"`
	Skipped    []Skipped   `json:"skipped,omitempty"`
	Coverage   []Coverage  `json:"coverage,omitempty"`
	Groups     int         `json:"groups,omitempty"`
	Clustering string      `json:"clustering,omitempty"`
}

// Summarize collects the reportable parts of res.
func Summarize(res *aucell.Result) Summary {
	genes, cells := res.Rankings.Dims()
	s := Summary{
		Seed:       res.Rankings.Seed(),
		RankCutoff: res.RankCutoff,
		Genes:      genes,
		Cells:      cells,
		Thresholds: make([]Threshold, 0, len(res.Thresholds.Thresholds)),
	}
	for _, t := range res.Thresholds.Thresholds {
		v := t.Value
		if math.IsInf(v, 0) || math.IsNaN(v) {
			v = 1
		}
		s.Thresholds = append(s.Thresholds, Threshold{
			Set:        t.Set,
			Threshold:  v,
			Active:     len(t.Assignment),
			Confidence: string(t.Confidence),
			Components: t.Components,
			Fallback:   t.Fallback,
			Comment:    t.Comment,
		})
	}
	for _, e := range res.Skipped {
		reason := "not scored"
		switch {
		case errors.Is(e, aucell.ErrGeneSetTooSmall):
			reason = "too few genes"
		case errors.Is(e, aucell.ErrEmptyGeneSet):
			reason = "no genes in the expression matrix"
		case errors.Is(e, aucell.ErrDuplicateGeneSet):
			reason = "duplicate gene set name"
		}
		s.Skipped = append(s.Skipped, Skipped{Set: e.Set, Reason: reason})
	}
	for _, c := range res.Scores.Coverage {
		if len(c.Missing) > 0 {
			s.Coverage = append(s.Coverage, Coverage{Set: c.Set, Found: c.Found, Missing: c.Missing})
		}
	}
	s.Groups, s.Clustering = clusterSummary(res.Clustering)
	return s
}

// clusterSummary returns the group count and, when no group was formed, the
// reason why.
func clusterSummary(c *aucell.SetClustering) (groups int, note string) {
	if c == nil {
		return 0, ""
	}
	if c.Clustered && c.Groups > 0 {
		return c.Groups, ""
	}
	if c.Reason == "" {
		return c.Groups, "no groups formed"
	}
	return c.Groups, c.Reason
}

// Write encodes s as indented JSON.
func Write(w io.Writer, s Summary) error {
	b, err := sonic.ConfigStd.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// Read decodes a summary written by Write.
func Read(r io.Reader) (Summary, error) {
	var s Summary
	b, err := io.ReadAll(r)
	if err != nil {
		return s, err
	}
	err = sonic.Unmarshal(b, &s)
	return s, err
}
