package kofilter

import (
	"errors"
	"fmt"
)

// ErrNilDependency is returned by New when a dictionary or analyzer is missing.
var ErrNilDependency = errors.New("kofilter: dictionary and analyzer are required")

// AnalysisError reports a morphological analysis failure for one token.
type AnalysisError struct {
	Text string
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis of %q failed: %v", e.Text, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }
