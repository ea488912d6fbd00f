package survey

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Bossnicks/tone-survey/pkg/auth"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type apiResponse struct {
	Token string `json:"token"`
	Rows  int    `json:"rows"`
	Error string `json:"error"`
	View  View   `json:"view"`
}

type server struct {
	e *echo.Echo
	f *fixture
}

func newServer(t *testing.T, files ...string) *server {
	t.Helper()
	f := newFixture(t, identityPerm, files...)
	e := echo.New()
	NewHandler(f.svc, auth.NewTokens("test-secret", time.Hour), zap.NewNop()).Register(e)
	return &server{e: e, f: f}
}

func (s *server) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func (s *server) start(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/survey/sessions", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode(t, rec)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, StateAwaitingIdentity, resp.View.State)
	return resp.Token
}

func TestHandler_ParticipantFlow(t *testing.T) {
	s := newServer(t, "a.wav", "b.wav")
	token := s.start(t)

	rec := s.do(t, http.MethodPost, "/survey/identity", token, `{"identifier":"bad id"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, StateAwaitingIdentity, decode(t, rec).View.State)

	rec = s.do(t, http.MethodPost, "/survey/identity", token, `{"identifier":"tester1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StateAwaitingPreSurvey, decode(t, rec).View.State)

	rec = s.do(t, http.MethodPost, "/survey/ratings", token, `{"valence":1,"arousal":1,"diff":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/survey/presurvey", token, `{"pitch_ability":"none","instrument_experience":"none"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode(t, rec).View
	assert.Equal(t, StateInProgress, view.State)
	require.NotNil(t, view.Stimulus)
	assert.Equal(t, "a.wav", view.Stimulus.File)

	rec = s.do(t, http.MethodGet, "/survey/stimulus", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio:a.wav", rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "audio")

	rec = s.do(t, http.MethodPost, "/survey/ratings", token, `{"valence":3,"arousal":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Error, "diff")

	rec = s.do(t, http.MethodPost, "/survey/ratings", token, `{"valence":3,"arousal":3,"diff":3,"stimulus_index":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode(t, rec).View.Progress.Done)

	rec = s.do(t, http.MethodGet, "/survey/download", token, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/survey/ratings", token, `{"valence":5,"arousal":4,"diff":2,"stimulus_index":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StateCompleted, decode(t, rec).View.State)

	rec = s.do(t, http.MethodGet, "/survey/download", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "tester1_responses.csv")
	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rec = s.do(t, http.MethodGet, "/admin/export", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, "/survey/sessions", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/survey/view", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_AdminFlow(t *testing.T) {
	s := newServer(t, "a.wav")
	participant := s.start(t)
	s.do(t, http.MethodPost, "/survey/identity", participant, `{"identifier":"p1"}`)
	s.do(t, http.MethodPost, "/survey/presurvey", participant, `{"pitch_ability":"absolute","instrument_experience":"over_5_years"}`)
	rec := s.do(t, http.MethodPost, "/survey/ratings", participant, `{"valence":2,"arousal":2,"diff":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	token := s.start(t)
	rec = s.do(t, http.MethodGet, "/admin/summary", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/survey/identity", token, `{"identifier":"`+testAdminSecret+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StateAdmin, decode(t, rec).View.State)

	rec = s.do(t, http.MethodGet, "/admin/summary", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode(t, rec).Rows)

	rec = s.do(t, http.MethodGet, "/admin/export", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Participant_ID,Timestamp,Tone_File"))

	rec = s.do(t, http.MethodPost, "/admin/reset", token, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/admin/reset", token, `{"confirm":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/admin/summary", token, "")
	assert.Equal(t, 0, decode(t, rec).Rows)

	rec = s.do(t, http.MethodPost, "/admin/exit", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StateAwaitingIdentity, decode(t, rec).View.State)
}

func TestHandler_RequiresToken(t *testing.T) {
	s := newServer(t, "a.wav")

	rec := s.do(t, http.MethodGet, "/survey/view", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/survey/view", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := auth.NewTokens("other-secret", time.Hour).Generate("whatever")
	require.NoError(t, err)
	rec = s.do(t, http.MethodGet, "/admin/summary", other, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_CatalogEmpty(t *testing.T) {
	s := newServer(t)
	token := s.start(t)
	s.do(t, http.MethodPost, "/survey/identity", token, `{"identifier":"p1"}`)

	rec := s.do(t, http.MethodPost, "/survey/presurvey", token, `{"pitch_ability":"none","instrument_experience":"none"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, StateAwaitingPreSurvey, decode(t, rec).View.State)
}

func TestHandler_WriteFailure(t *testing.T) {
	s := newServer(t, "a.wav", "b.wav")
	token := s.start(t)
	s.do(t, http.MethodPost, "/survey/identity", token, `{"identifier":"p1"}`)
	s.do(t, http.MethodPost, "/survey/presurvey", token, `{"pitch_ability":"none","instrument_experience":"none"}`)
	s.f.log.appendErr = errDiskFull

	rec := s.do(t, http.MethodPost, "/survey/ratings", token, `{"valence":1,"arousal":1,"diff":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, 0, resp.View.Progress.Done)
	assert.Equal(t, "a.wav", resp.View.Stimulus.File)
}
