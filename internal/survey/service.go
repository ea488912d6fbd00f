package survey

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Bossnicks/tone-survey/internal/backup"
	"github.com/Bossnicks/tone-survey/internal/catalog"
	"github.com/Bossnicks/tone-survey/internal/responselog"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ResponseLog - операции журнала ответов, которые нужны анкете.
type ResponseLog interface {
	EnsureHeader() error
	Append(rec responselog.Record) error
	Count() (int, error)
	Export(w io.Writer) error
	ExportParticipant(w io.Writer, participantID string) error
	Reset() error
}

// AdminVerifier проверяет, является ли ввод в поле идентификатора секретом администратора.
type AdminVerifier interface {
	Matches(input string) bool
}

type Deps struct {
	Catalog       catalog.Catalog
	Log           ResponseLog
	Backup        backup.Sink
	Admin         AdminVerifier
	Repo          *Repository
	Logger        *zap.Logger
	BackupTimeout time.Duration

	// для тестов
	Now  func() time.Time
	Perm func(n int) []int
}

type Service struct {
	catalog       catalog.Catalog
	log           ResponseLog
	backup        backup.Sink
	admin         AdminVerifier
	repo          *Repository
	logger        *zap.Logger
	backupTimeout time.Duration
	now           func() time.Time
	perm          func(n int) []int
}

func NewService(d Deps) *Service {
	s := &Service{
		catalog:       d.Catalog,
		log:           d.Log,
		backup:        d.Backup,
		admin:         d.Admin,
		repo:          d.Repo,
		logger:        d.Logger,
		backupTimeout: d.BackupTimeout,
		now:           d.Now,
		perm:          d.Perm,
	}
	if s.backup == nil {
		s.backup = backup.Nop{}
	}
	if s.repo == nil {
		s.repo = NewRepository(0)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.perm == nil {
		s.perm = rand.Perm
	}
	return s
}

func (s *Service) StartSession() *Session {
	now := s.now()
	sess := newSession(uuid.NewString(), now)
	s.repo.Save(sess, now)
	s.logger.Debug("сессия создана", zap.String("session_id", sess.ID))
	return sess
}

func (s *Service) Session(id string) (*Session, error) {
	return s.repo.Get(id)
}

func (s *Service) EndSession(id string) error {
	if !s.repo.Delete(id) {
		return ErrSessionNotFound
	}
	s.logger.Debug("сессия завершена", zap.String("session_id", id))
	return nil
}

// SubmitIdentity: AwaitingIdentity -> AwaitingPreSurvey, либо -> Admin для секрета.
// Повторная отправка того же идентификатора ничего не меняет.
func (s *Service) SubmitIdentity(_ context.Context, sess *Session, input string) (Snapshot, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	input = strings.TrimSpace(input)
	switch sess.state {
	case StateAwaitingIdentity:
	case StateAwaitingPreSurvey, StateInProgress, StateCompleted:
		if input == sess.participant.ID {
			return sess.snapshotLocked(), nil
		}
		return sess.snapshotLocked(), &ValidationError{Field: "identifier", Reason: "идентификатор участника уже задан"}
	default:
		return sess.snapshotLocked(), wrongState(sess.state)
	}

	if input == "" {
		return sess.snapshotLocked(), &ValidationError{Field: "identifier", Reason: "введите идентификатор"}
	}
	if s.admin != nil && s.admin.Matches(input) {
		sess.state = StateAdmin
		s.logger.Info("вход в режим администратора", zap.String("session_id", sess.ID))
		return sess.snapshotLocked(), nil
	}
	if !identifierPattern.MatchString(input) {
		return sess.snapshotLocked(), &ValidationError{Field: "identifier", Reason: "допустимы только латинские буквы, цифры и _"}
	}

	sess.participant.ID = input
	sess.state = StateAwaitingPreSurvey
	return sess.snapshotLocked(), nil
}

// SubmitPreSurvey: AwaitingPreSurvey -> InProgress. Здесь один раз строится
// порядок предъявления и создаётся заголовок лога.
func (s *Service) SubmitPreSurvey(ctx context.Context, sess *Session, in PreSurveyInput) (Snapshot, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateAwaitingPreSurvey {
		return sess.snapshotLocked(), wrongState(sess.state)
	}
	if err := validateOption("pitch_ability", in.PitchAbility, PitchAbilityOptions); err != nil {
		return sess.snapshotLocked(), err
	}
	if err := validateOption("instrument_experience", in.InstrumentExperience, InstrumentExperienceOptions); err != nil {
		return sess.snapshotLocked(), err
	}

	stimuli := sess.stimuli
	order := sess.order
	if order == nil {
		var err error
		stimuli, err = s.catalog.List(ctx)
		if err != nil {
			s.logger.Error("каталог стимулов недоступен", zap.String("session_id", sess.ID), zap.Error(err))
			return sess.snapshotLocked(), err
		}
		if len(stimuli) == 0 {
			return sess.snapshotLocked(), catalog.ErrCatalogEmpty
		}
		order = s.perm(len(stimuli))
	}

	if err := s.log.EnsureHeader(); err != nil {
		s.logger.Error("не удалось подготовить лог ответов", zap.Error(err))
		return sess.snapshotLocked(), err
	}

	sess.participant.PitchAbility = in.PitchAbility
	sess.participant.InstrumentExperience = in.InstrumentExperience
	sess.stimuli = stimuli
	sess.order = order
	sess.cursor = 0
	sess.state = StateInProgress
	s.logger.Info("анкета начата",
		zap.String("session_id", sess.ID),
		zap.String("participant_id", sess.participant.ID),
		zap.Int("stimuli", len(order)))
	return sess.snapshotLocked(), nil
}

// SubmitRatings записывает оценки текущего стимула. Курсор сдвигается
// только после успешной записи в лог.
func (s *Service) SubmitRatings(ctx context.Context, sess *Session, in RatingInput) (Snapshot, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateInProgress {
		return sess.snapshotLocked(), wrongState(sess.state)
	}
	scores, err := validateRatings(in)
	if err != nil {
		return sess.snapshotLocked(), err
	}
	current, _ := sess.currentLocked()
	if in.StimulusIndex != nil && *in.StimulusIndex != current.Index {
		return sess.snapshotLocked(), &ValidationError{
			Field:  "stimulus_index",
			Reason: fmt.Sprintf("оценка относится к стимулу %d, текущий стимул %d", *in.StimulusIndex, current.Index),
		}
	}

	rec := responselog.Record{
		ParticipantID:        sess.participant.ID,
		Timestamp:            s.now(),
		ToneFile:             current.File,
		ToneIndex:            current.Index,
		Valence:              scores[0],
		Arousal:              scores[1],
		Diff:                 scores[2],
		PitchAbility:         sess.participant.PitchAbility,
		InstrumentExperience: sess.participant.InstrumentExperience,
	}
	if err := s.log.Append(rec); err != nil {
		s.logger.Error("не удалось записать ответ",
			zap.String("session_id", sess.ID),
			zap.String("tone_file", current.File),
			zap.Error(err))
		return sess.snapshotLocked(), err
	}

	sess.backupWarn = ""
	if err := s.appendBackup(ctx, rec); err != nil {
		s.logger.Warn("резервная копия не записана",
			zap.String("session_id", sess.ID),
			zap.String("tone_file", current.File),
			zap.Error(err))
		sess.backupWarn = err.Error()
	}

	sess.cursor++
	if sess.cursor == len(sess.order) {
		sess.state = StateCompleted
		s.logger.Info("анкета завершена",
			zap.String("session_id", sess.ID),
			zap.String("participant_id", sess.participant.ID))
	}
	return sess.snapshotLocked(), nil
}

func (s *Service) appendBackup(ctx context.Context, rec responselog.Record) error {
	if s.backupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.backupTimeout)
		defer cancel()
	}
	return s.backup.AppendRow(ctx, rec)
}

// OpenStimulus открывает аудио текущего стимула.
func (s *Service) OpenStimulus(ctx context.Context, sess *Session) (io.ReadCloser, catalog.Stimulus, error) {
	sess.mu.Lock()
	current, ok := sess.currentLocked()
	state := sess.state
	sess.mu.Unlock()
	if !ok {
		return nil, catalog.Stimulus{}, wrongState(state)
	}

	rc, err := s.catalog.Open(ctx, current.File)
	if err != nil {
		return nil, current, err
	}
	return rc, current, nil
}

// DownloadOwnRows доступна только после завершения анкеты.
func (s *Service) DownloadOwnRows(sess *Session, w io.Writer) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateCompleted {
		return wrongState(sess.state)
	}
	return s.log.ExportParticipant(w, sess.participant.ID)
}

func (s *Service) AdminSummary(sess *Session) (int, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateAdmin {
		return 0, ErrNotAdmin
	}
	return s.log.Count()
}

func (s *Service) AdminExport(sess *Session, w io.Writer) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateAdmin {
		return ErrNotAdmin
	}
	return s.log.Export(w)
}

// AdminReset стирает все строки лога, оставляя заголовок.
func (s *Service) AdminReset(sess *Session, confirm bool) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateAdmin {
		return ErrNotAdmin
	}
	if !confirm {
		return &ValidationError{Field: "confirm", Reason: "сброс требует подтверждения"}
	}
	if err := s.log.Reset(); err != nil {
		s.logger.Error("не удалось сбросить лог", zap.Error(err))
		return err
	}
	s.logger.Warn("лог ответов сброшен администратором", zap.String("session_id", sess.ID))
	return nil
}

// AdminExit очищает состояние сессии и возвращает её к вводу идентификатора.
func (s *Service) AdminExit(sess *Session) (Snapshot, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateAdmin {
		return sess.snapshotLocked(), ErrNotAdmin
	}
	sess.resetLocked()
	return sess.snapshotLocked(), nil
}

func validateOption(field, value string, options []string) error {
	if value == "" {
		return &ValidationError{Field: field, Reason: "ответ не выбран"}
	}
	if !slices.Contains(options, value) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("недопустимое значение %q", value)}
	}
	return nil
}

func validateRatings(in RatingInput) ([3]int, error) {
	var out [3]int
	var errs []error
	for i, r := range []struct {
		field string
		v     *int
	}{{"valence", in.Valence}, {"arousal", in.Arousal}, {"diff", in.Diff}} {
		switch {
		case r.v == nil:
			errs = append(errs, &ValidationError{Field: r.field, Reason: "оценка не выбрана"})
		case *r.v < RatingMin || *r.v > RatingMax:
			errs = append(errs, &ValidationError{Field: r.field, Reason: fmt.Sprintf("оценка должна быть от %d до %d", RatingMin, RatingMax)})
		default:
			out[i] = *r.v
		}
	}
	return out, errors.Join(errs...)
}
