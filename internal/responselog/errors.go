package responselog

import "fmt"

// WriteError - лог не удалось дописать или пересоздать.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("ошибка записи лога (%s): %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError - лог существует, но прочитать его не получилось.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("ошибка чтения лога (%s): %v", e.Op, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
