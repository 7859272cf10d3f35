package imagegen

import (
	"errors"
	"strings"
)

var (
	ErrNotLoaded     = errors.New("imagegen: pipeline not loaded")
	ErrEmptyResponse = errors.New("imagegen: backend returned no image")
)

// MissingDependenciesError lists the prerequisites a backend lacks.
type MissingDependenciesError struct {
	Provider string
	Missing  []string
}

func (e *MissingDependenciesError) Error() string {
	return "Missing dependencies for " + e.Provider + ": " + strings.Join(e.Missing, ", ")
}

// IsMissingDependencies reports whether err carries a MissingDependenciesError.
func IsMissingDependencies(err error) bool {
	var target *MissingDependenciesError
	return errors.As(err, &target)
}
