// Package backup дублирует строки лога во внешнее хранилище.
// Локальный CSV остаётся источником истины: сбой здесь не останавливает анкету.
package backup

import (
	"context"

	"github.com/Bossnicks/tone-survey/internal/responselog"
)

type Sink interface {
	AppendRow(ctx context.Context, rec responselog.Record) error
}

// Nop используется, когда резервная копия не настроена.
type Nop struct{}

func (Nop) AppendRow(context.Context, responselog.Record) error { return nil }
