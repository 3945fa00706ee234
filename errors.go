package aucell

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMatrix is returned when an expression matrix has zero genes or
	// zero cells, mismatched identifiers, or values that are negative or not finite.
	ErrInvalidMatrix = errors.New("aucell: invalid expression matrix")

	// ErrEmptyGeneSet marks a gene set with no members present in the matrix.
	// Its score is undefined, so the set is dropped from the ScoreMatrix.
	ErrEmptyGeneSet = errors.New("aucell: empty effective gene set")

	// ErrDuplicateGeneSet marks a gene set whose name was already used by an
	// earlier set of the same catalog. Only the first one is scored.
	ErrDuplicateGeneSet = errors.New("aucell: duplicate gene set name")

	// ErrInvalidScores is returned by NewScoreMatrix for scores that are not
	// finite or fall outside [0, 1].
	ErrInvalidScores = errors.New("aucell: invalid score matrix")

	// ErrGeneSetTooSmall marks a gene set rejected by FilterGeneSets.
	ErrGeneSetTooSmall = errors.New("aucell: gene set below minimum size")

	// ErrInvalidCutoff is returned when the rank cutoff is not in [1, nGenes].
	ErrInvalidCutoff = errors.New("aucell: invalid rank cutoff")

	// ErrNotConverged is returned by FitMixture when EM hits its iteration cap.
	ErrNotConverged = errors.New("aucell: mixture fit did not converge")
)

// GeneSetError reports a failure isolated to a single gene set. It unwraps to
// one of the package sentinels so callers can use errors.Is.
type GeneSetError struct {
	Set string
	Err error
}

func (e *GeneSetError) Error() string {
	return fmt.Sprintf("gene set %q: %v", e.Set, e.Err)
}

func (e *GeneSetError) Unwrap() error { return e.Err }
