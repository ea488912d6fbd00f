package survey

import (
	"fmt"
	"sync"
	"time"

	"github.com/Bossnicks/tone-survey/internal/catalog"
)

type State int

const (
	StateAwaitingIdentity State = iota
	StateAwaitingPreSurvey
	StateInProgress
	StateCompleted
	StateAdmin
)

func (s State) String() string {
	switch s {
	case StateAwaitingIdentity:
		return "awaiting_identity"
	case StateAwaitingPreSurvey:
		return "awaiting_presurvey"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	case StateAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for st := StateAwaitingIdentity; st <= StateAdmin; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("неизвестное состояние %q", b)
}

var (
	PitchAbilityOptions         = []string{"absolute", "relative", "none", "unsure"}
	InstrumentExperienceOptions = []string{"none", "under_1_year", "1_to_5_years", "over_5_years"}
)

const (
	RatingMin = 1
	RatingMax = 5
)

type Participant struct {
	ID                   string `json:"id"`
	PitchAbility         string `json:"pitch_ability,omitempty"`
	InstrumentExperience string `json:"instrument_experience,omitempty"`
}

type PreSurveyInput struct {
	PitchAbility         string `json:"pitch_ability"`
	InstrumentExperience string `json:"instrument_experience"`
}

// RatingInput - три оценки текущего стимула. nil означает, что значение не выбрано.
// StimulusIndex, если задан, должен совпадать с индексом текущего стимула.
type RatingInput struct {
	Valence       *int `json:"valence"`
	Arousal       *int `json:"arousal"`
	Diff          *int `json:"diff"`
	StimulusIndex *int `json:"stimulus_index,omitempty"`
}

// Session - контекст одного прохождения анкеты. Создаётся в Service.StartSession,
// уничтожается в Service.EndSession; выход из режима администратора сбрасывает его.
type Session struct {
	mu sync.Mutex

	ID        string
	CreatedAt time.Time

	state       State
	participant Participant
	stimuli     []catalog.Stimulus
	order       []int
	cursor      int
	backupWarn  string
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now}
}

func (s *Session) resetLocked() {
	s.state = StateAwaitingIdentity
	s.participant = Participant{}
	s.stimuli = nil
	s.order = nil
	s.cursor = 0
	s.backupWarn = ""
}

func (s *Session) currentLocked() (catalog.Stimulus, bool) {
	if s.state != StateInProgress || s.cursor >= len(s.order) {
		return catalog.Stimulus{}, false
	}
	return s.stimuli[s.order[s.cursor]], true
}

// Snapshot - копия состояния сессии для отрисовки.
type Snapshot struct {
	SessionID     string
	State         State
	Participant   Participant
	Cursor        int
	Total         int
	Current       *catalog.Stimulus
	BackupWarning string
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:     s.ID,
		State:         s.state,
		Participant:   s.participant,
		Cursor:        s.cursor,
		Total:         len(s.order),
		BackupWarning: s.backupWarn,
	}
	if cur, ok := s.currentLocked(); ok {
		snap.Current = &cur
	}
	return snap
}

// Order возвращает копию порядка предъявления.
func (s *Session) Order() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.order...)
}
