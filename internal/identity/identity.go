// Package identity resolves the authoritative book id from the candidate
// sources a navigation can supply. Candidates form an explicit priority
// table instead of ad hoc chained fallbacks.
package identity

import (
	"strconv"

	"github.com/bookshelf-app/bookshelf-service/internal/errs"
	"github.com/pkg/errors"
)

type Source string

const (
	// SourcePath is the primary path-style identifier ("id").
	SourcePath Source = "path"
	// SourcePathAlt is the alternate path-style identifier ("bookId").
	SourcePathAlt Source = "pathAlt"
	// SourceState is the value carried via inter-view navigation state.
	SourceState Source = "state"
)

// Candidate pairs a source with its raw value. A nil Raw means the source
// supplied nothing.
type Candidate struct {
	Source Source
	Raw    *string
}

func FromString(source Source, raw string) Candidate {
	if raw == "" {
		return Candidate{Source: source}
	}
	return Candidate{Source: source, Raw: &raw}
}

// Resolve walks candidates in order and selects the first with a non-nil raw
// value; later candidates are never consulted once one matches. The selected
// value is then coerced to a number: coercion failure is errs.ErrUnresolved,
// never a fallback to a later candidate or to zero.
func Resolve(candidates []Candidate) (int, error) {
	for _, c := range candidates {
		if c.Raw == nil {
			continue
		}
		id, err := strconv.Atoi(*c.Raw)
		if err != nil {
			return 0, errors.Wrapf(errs.ErrUnresolved, "source %s: %q is not a number", c.Source, *c.Raw)
		}
		return id, nil
	}
	return 0, errs.ErrUnresolved
}
