package responselog

import (
	"fmt"
	"strconv"
	"time"
)

// TimestampLayout - формат колонки Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	coreHeader      = []string{"Participant_ID", "Timestamp", "Tone_File", "Tone_Index", "Valence", "Arousal", "Diff"}
	preSurveyHeader = []string{"Pitch_Ability", "Instrument_Experience"}
)

// Header возвращает строку заголовка для выбранного варианта лога.
func Header(withPreSurvey bool) []string {
	h := append([]string(nil), coreHeader...)
	if withPreSurvey {
		h = append(h, preSurveyHeader...)
	}
	return h
}

// Record - одна строка лога: три оценки одного стимула одним участником.
type Record struct {
	ParticipantID        string    `json:"participant_id"`
	Timestamp            time.Time `json:"timestamp"`
	ToneFile             string    `json:"tone_file"`
	ToneIndex            int       `json:"tone_index"`
	Valence              int       `json:"valence"`
	Arousal              int       `json:"arousal"`
	Diff                 int       `json:"diff"`
	PitchAbility         string    `json:"pitch_ability,omitempty"`
	InstrumentExperience string    `json:"instrument_experience,omitempty"`
}

// Fields раскладывает запись в колонки в порядке Header(withPreSurvey).
func (r Record) Fields(withPreSurvey bool) []string {
	f := []string{
		r.ParticipantID,
		r.Timestamp.Format(TimestampLayout),
		r.ToneFile,
		strconv.Itoa(r.ToneIndex),
		strconv.Itoa(r.Valence),
		strconv.Itoa(r.Arousal),
		strconv.Itoa(r.Diff),
	}
	if withPreSurvey {
		f = append(f, r.PitchAbility, r.InstrumentExperience)
	}
	return f
}

func parseRecord(fields []string) (Record, error) {
	if len(fields) < len(coreHeader) {
		return Record{}, fmt.Errorf("ожидалось минимум %d колонок, получено %d", len(coreHeader), len(fields))
	}
	ts, err := time.ParseInLocation(TimestampLayout, fields[1], time.Local)
	if err != nil {
		return Record{}, fmt.Errorf("Timestamp: %w", err)
	}
	ints := make([]int, 4)
	for i, col := range []int{3, 4, 5, 6} {
		v, err := strconv.Atoi(fields[col])
		if err != nil {
			return Record{}, fmt.Errorf("%s: %w", coreHeader[col], err)
		}
		ints[i] = v
	}
	r := Record{
		ParticipantID: fields[0],
		Timestamp:     ts,
		ToneFile:      fields[2],
		ToneIndex:     ints[0],
		Valence:       ints[1],
		Arousal:       ints[2],
		Diff:          ints[3],
	}
	if len(fields) >= len(coreHeader)+len(preSurveyHeader) {
		r.PitchAbility = fields[7]
		r.InstrumentExperience = fields[8]
	}
	return r, nil
}
