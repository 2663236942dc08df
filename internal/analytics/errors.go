package analytics

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks builder parameters the caller got wrong, such as an
// unknown metric type or a funnel without steps.
var ErrInvalidRequest = errors.New("invalid analytics request")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
