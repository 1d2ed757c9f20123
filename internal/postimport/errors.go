package postimport

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrSkipped is returned by a processor that has nothing to do for a
// resource. The stage is recorded as skipped.
var ErrSkipped = errors.New("post import processing skipped")

// NoDictionaryError reports that a resource has no data dictionary.
// It is a recognized outcome: the stage is recorded as done.
type NoDictionaryError struct {
	ResourceID string
	Version    string
}

func (e *NoDictionaryError) Error() string {
	return fmt.Sprintf("Resource %s does not have a data dictionary.", e.ResourceID)
}

// IsNoDictionary returns true if err is, or wraps, a NoDictionaryError.
func IsNoDictionary(err error) bool {
	var nd *NoDictionaryError
	return errors.As(err, &nd)
}
