package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ndewijer/portfolio-service/internal/apperrors"
)

// Error collects field-specific validation messages.
// It matches apperrors.ErrInvalidInput under errors.Is.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}

func (e *Error) Unwrap() error {
	return apperrors.ErrInvalidInput
}
