package backup

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Bossnicks/tone-survey/internal/responselog"
)

const createTableQuery = `CREATE TABLE IF NOT EXISTS survey_responses (
	id SERIAL PRIMARY KEY,
	participant_id TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL,
	tone_file TEXT NOT NULL,
	tone_index INTEGER NOT NULL,
	valence SMALLINT NOT NULL,
	arousal SMALLINT NOT NULL,
	diff SMALLINT NOT NULL,
	pitch_ability TEXT,
	instrument_experience TEXT
)`

const insertQuery = `INSERT INTO survey_responses (participant_id, recorded_at, tone_file, tone_index, valence, arousal, diff, pitch_ability, instrument_experience) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("ошибка создания таблицы survey_responses: %w", err)
	}
	return nil
}

func (s *PostgresSink) AppendRow(ctx context.Context, rec responselog.Record) error {
	_, err := s.db.ExecContext(ctx, insertQuery,
		rec.ParticipantID, rec.Timestamp, rec.ToneFile, rec.ToneIndex,
		rec.Valence, rec.Arousal, rec.Diff,
		nullString(rec.PitchAbility), nullString(rec.InstrumentExperience))
	if err != nil {
		return fmt.Errorf("ошибка записи в резервную БД: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
