package survey

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Bossnicks/tone-survey/internal/catalog"
	"github.com/Bossnicks/tone-survey/internal/responselog"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAdminSecret = "open_sesame"

type fakeCatalog struct {
	stimuli []catalog.Stimulus
	err     error
	lists   int
}

func newFakeCatalog(files ...string) *fakeCatalog {
	c := &fakeCatalog{}
	for i, f := range files {
		c.stimuli = append(c.stimuli, catalog.Stimulus{Index: i, File: f})
	}
	return c
}

func (c *fakeCatalog) List(context.Context) ([]catalog.Stimulus, error) {
	c.lists++
	if c.err != nil {
		return nil, c.err
	}
	return append([]catalog.Stimulus(nil), c.stimuli...), nil
}

func (c *fakeCatalog) Open(_ context.Context, file string) (io.ReadCloser, error) {
	for _, s := range c.stimuli {
		if s.File == file {
			return io.NopCloser(strings.NewReader("audio:" + file)), nil
		}
	}
	return nil, catalog.ErrStimulusNotFound
}

type plainAdmin string

func (a plainAdmin) Matches(input string) bool { return input == string(a) }

// flakyLog - настоящий лог, у которого можно сломать Append.
type flakyLog struct {
	*responselog.Log
	appendErr error
	headerErr error
}

func (l *flakyLog) Append(rec responselog.Record) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	return l.Log.Append(rec)
}

func (l *flakyLog) EnsureHeader() error {
	if l.headerErr != nil {
		return l.headerErr
	}
	return l.Log.EnsureHeader()
}

type recordingSink struct {
	err  error
	rows []responselog.Record
}

func (s *recordingSink) AppendRow(_ context.Context, rec responselog.Record) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, rec)
	return nil
}

type fixture struct {
	svc     *Service
	catalog *fakeCatalog
	log     *flakyLog
	sink    *recordingSink
}

var errDiskFull = &responselog.WriteError{Op: "append", Err: errors.New("no space left on device")}

func identityPerm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func reversePerm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = n - 1 - i
	}
	return out
}

func newFixture(t *testing.T, perm func(int) []int, files ...string) *fixture {
	t.Helper()
	f := &fixture{
		catalog: newFakeCatalog(files...),
		log:     &flakyLog{Log: responselog.New(filepath.Join(t.TempDir(), "responses.csv"), true)},
		sink:    &recordingSink{},
	}
	f.svc = NewService(Deps{
		Catalog: f.catalog,
		Log:     f.log,
		Backup:  f.sink,
		Admin:   plainAdmin(testAdminSecret),
		Repo:    NewRepository(time.Hour),
		Logger:  zap.NewNop(),
		Now:     func() time.Time { return time.Date(2026, 10, 14, 9, 0, 0, 0, time.Local) },
		Perm:    perm,
	})
	return f
}

func intp(v int) *int { return &v }

func ratings(v, a, d int) RatingInput {
	return RatingInput{Valence: intp(v), Arousal: intp(a), Diff: intp(d)}
}

var defaultPreSurvey = PreSurveyInput{PitchAbility: "relative", InstrumentExperience: "1_to_5_years"}

// startedSession доводит новую сессию до InProgress.
func (f *fixture) startedSession(t *testing.T, pid string) *Session {
	t.Helper()
	ctx := context.Background()
	sess := f.svc.StartSession()
	_, err := f.svc.SubmitIdentity(ctx, sess, pid)
	require.NoError(t, err)
	_, err = f.svc.SubmitPreSurvey(ctx, sess, defaultPreSurvey)
	require.NoError(t, err)
	return sess
}

func (f *fixture) rows(t *testing.T) []responselog.Record {
	t.Helper()
	rows, err := f.log.ReadAll()
	require.NoError(t, err)
	return rows
}
