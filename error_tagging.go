package dispatch

import (
	"errors"
	"fmt"
)

// CallbackError is a failure escaping the Worker callback for one index.
// It wraps either the error the callback returned or ErrCallbackPanicked.
type CallbackError struct {
	Index int
	Err   error
}

func newCallbackError(index int, err error) error {
	if err == nil {
		return nil
	}
	return &CallbackError{Index: index, Err: err}
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("%s: worker callback failed for index %d: %v", Namespace, e.Index, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

func (e *CallbackError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "callback(index=%d): %+v", e.Index, e.Err)
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// ExtractIndex returns the workload index a callback error was raised for.
func ExtractIndex(err error) (int, bool) {
	var ce *CallbackError
	if errors.As(err, &ce) {
		return ce.Index, true
	}
	return 0, false
}
