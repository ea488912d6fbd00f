package survey

import (
	"errors"
	"fmt"
)

var (
	ErrWrongState      = errors.New("действие недоступно в текущем состоянии")
	ErrNotAdmin        = errors.New("требуется режим администратора")
	ErrSessionNotFound = errors.New("сессия не найдена")
)

// ValidationError - некорректный ввод. Состояние сессии при этом не меняется.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func wrongState(s State) error {
	return fmt.Errorf("%w: %s", ErrWrongState, s)
}
