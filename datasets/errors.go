package datasets

import (
	"errors"
	"fmt"

	"github.com/mdobak/go-xerrors"
)

// Error kinds returned by DataDir loads. Test with errors.Is.
var (
	// ErrNotFound means the record file does not exist in the directory.
	ErrNotFound = errors.New("record not found")
	// ErrDecode means the file exists but is not a valid record.
	ErrDecode = errors.New("record could not be decoded")
)

// LoadError describes a failed record load.
type LoadError struct {
	Kind error  // ErrNotFound or ErrDecode
	Path string // file that failed
	Err  error  // underlying cause, may be nil
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// loadError builds a stack-carrying LoadError.
func loadError(kind error, path string, cause error) error {
	return xerrors.New(&LoadError{Kind: kind, Path: path, Err: cause})
}
