package impose

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks an invalid or unresolvable ImpositionSettings value
	ErrConfig = errors.New("imposition configuration error")
	// ErrDocumentTooLarge is returned by AutoPlan when no catalog sheet fits a single page
	ErrDocumentTooLarge = errors.New("document too large for any known sheet")
)

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
