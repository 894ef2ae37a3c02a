package abstractcluster

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoDefinedScore is returned by the search when no dimension produced a
// clustering with a defined silhouette score.
var ErrNoDefinedScore = errors.New("no parameter combination produced a defined silhouette score")

// DataIntegrityError reports documents that are missing, duplicated or
// inconsistent with the corpus they are referenced from.
type DataIntegrityError struct {
	Reason string
	DocIDs []string
}

func (e *DataIntegrityError) Error() string {
	if len(e.DocIDs) == 0 {
		return "data integrity: " + e.Reason
	}
	return fmt.Sprintf("data integrity: %s: %s", e.Reason, strings.Join(e.DocIDs, ", "))
}

// ComputationError wraps a numerical failure for a single parameter
// combination or dimension.
type ComputationError struct {
	Combination ParameterCombination
	Err         error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failed for %s: %v", e.Combination, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// ConfigurationError is returned before any work is done when the pipeline
// configuration cannot be used with the given corpus.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}
