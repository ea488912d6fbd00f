// Package responselog хранит ответы участников в CSV-файле, открытом на дозапись.
package responselog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Log - журнал ответов. Все операции одного процесса сериализуются
// через mu; несколько процессов на одном файле не координируются.
type Log struct {
	mu        sync.Mutex
	path      string
	preSurvey bool
}

func New(path string, withPreSurvey bool) *Log {
	return &Log{path: path, preSurvey: withPreSurvey}
}

func (l *Log) Path() string { return l.path }

// Header - заголовок, который этот лог пишет в новый файл.
func (l *Log) Header() []string { return Header(l.preSurvey) }

// EnsureHeader создаёт файл с заголовком, если его нет. Иначе ничего не делает.
func (l *Log) EnsureHeader() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensureHeaderLocked()
}

func (l *Log) ensureHeaderLocked() error {
	info, err := os.Stat(l.path)
	switch {
	case err == nil && info.Size() > 0:
		return nil
	case err == nil:
		// пустой файл: заголовок дописывается как обычная строка
		if err := l.appendLocked(l.Header()); err != nil {
			return &WriteError{Op: "header", Err: err}
		}
		return nil
	case errors.Is(err, fs.ErrNotExist):
		if err := l.replaceWithHeaderLocked(); err != nil {
			return &WriteError{Op: "header", Err: err}
		}
		return nil
	default:
		return &WriteError{Op: "header", Err: err}
	}
}

// Append дописывает одну строку. Строка кодируется целиком и уходит
// одним вызовом Write, так что сбой не портит предыдущие строки.
func (l *Log) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureHeaderLocked(); err != nil {
		return err
	}
	if err := l.appendLocked(rec.Fields(l.preSurvey)); err != nil {
		return &WriteError{Op: "append", Err: err}
	}
	return nil
}

func (l *Log) appendLocked(fields []string) error {
	line, err := encodeRow(fields)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadAll читает все строки данных. Отсутствующий файл - это "данных пока нет".
func (l *Log) ReadAll() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAllLocked()
}

func (l *Log) readAllLocked() ([]Record, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &ReadError{Op: "open", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, &ReadError{Op: "parse", Err: err}
	}
	if len(rows) > 0 && len(rows[0]) > 0 && rows[0][0] == coreHeader[0] {
		rows = rows[1:]
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec, err := parseRecord(row)
		if err != nil {
			return nil, &ReadError{Op: "parse", Err: fmt.Errorf("строка %d: %w", i+2, err)}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Count - число строк данных (без заголовка).
func (l *Log) Count() (int, error) {
	records, err := l.ReadAll()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Export пишет содержимое файла как есть. Если файла нет - только заголовок.
func (l *Log) Export(w io.Writer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			line, err := encodeRow(l.Header())
			if err != nil {
				return err
			}
			_, err = w.Write(line)
			return err
		}
		return &ReadError{Op: "open", Err: err}
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return &ReadError{Op: "copy", Err: err}
	}
	return nil
}

// ExportParticipant пишет заголовок и только строки одного участника.
func (l *Log) ExportParticipant(w io.Writer, participantID string) error {
	l.mu.Lock()
	records, err := l.readAllLocked()
	l.mu.Unlock()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(l.Header()); err != nil {
		return err
	}
	for _, rec := range records {
		if rec.ParticipantID != participantID {
			continue
		}
		if err := cw.Write(rec.Fields(l.preSurvey)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Reset оставляет в логе только заголовок. Новый файл готовится рядом
// и подменяет старый через rename, поэтому читатель видит либо старое
// содержимое, либо пустой лог.
func (l *Log) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.replaceWithHeaderLocked(); err != nil {
		return &WriteError{Op: "reset", Err: err}
	}
	return nil
}

func (l *Log) replaceWithHeaderLocked() error {
	line, err := encodeRow(l.Header())
	if err != nil {
		return err
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp_responses_*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(line); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, l.path)
}

func encodeRow(fields []string) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(fields); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
