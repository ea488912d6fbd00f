package survey

import (
	"bytes"
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/Bossnicks/tone-survey/internal/catalog"
	"github.com/Bossnicks/tone-survey/pkg/auth"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const sessionKey = "survey_session"

// таблица mime в стандартной библиотеке не знает аудиоформатов
var audioTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
}

type Handler struct {
	service *Service
	tokens  *auth.Tokens
	logger  *zap.Logger
}

func NewHandler(service *Service, tokens *auth.Tokens, logger *zap.Logger) *Handler {
	return &Handler{service: service, tokens: tokens, logger: logger}
}

func (h *Handler) Register(e *echo.Echo) {
	e.POST("/survey/sessions", h.StartSession)

	g := e.Group("/survey", h.requireSession)
	g.GET("/view", h.GetView)
	g.POST("/identity", h.SubmitIdentity)
	g.POST("/presurvey", h.SubmitPreSurvey)
	g.POST("/ratings", h.SubmitRatings)
	g.GET("/stimulus", h.GetStimulus)
	g.GET("/download", h.DownloadOwnRows)
	g.DELETE("/sessions", h.EndSession)

	a := e.Group("/admin", h.requireSession)
	a.GET("/summary", h.AdminSummary)
	a.GET("/export", h.AdminExport)
	a.POST("/reset", h.AdminReset)
	a.POST("/exit", h.AdminExit)
}

type identityRequest struct {
	Identifier string `json:"identifier"`
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *Handler) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Токен отсутствует"})
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := h.tokens.Parse(tokenString)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Неверный токен"})
		}
		sess, err := h.service.Session(claims.SessionID)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Сессия не найдена"})
		}
		c.Set(sessionKey, sess)
		return next(c)
	}
}

func session(c echo.Context) *Session {
	return c.Get(sessionKey).(*Session)
}

func (h *Handler) StartSession(c echo.Context) error {
	sess := h.service.StartSession()
	token, err := h.tokens.Generate(sess.ID)
	if err != nil {
		h.logger.Error("не удалось выпустить токен", zap.Error(err))
		_ = h.service.EndSession(sess.ID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Ошибка сервера"})
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"token": token,
		"view":  Render(sess.Snapshot()),
	})
}

func (h *Handler) GetView(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"view": Render(session(c).Snapshot())})
}

func (h *Handler) SubmitIdentity(c echo.Context) error {
	var req identityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Некорректные данные"})
	}
	snap, err := h.service.SubmitIdentity(c.Request().Context(), session(c), req.Identifier)
	return h.respond(c, snap, err)
}

func (h *Handler) SubmitPreSurvey(c echo.Context) error {
	var req PreSurveyInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Некорректные данные"})
	}
	snap, err := h.service.SubmitPreSurvey(c.Request().Context(), session(c), req)
	return h.respond(c, snap, err)
}

func (h *Handler) SubmitRatings(c echo.Context) error {
	var req RatingInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Некорректные данные"})
	}
	snap, err := h.service.SubmitRatings(c.Request().Context(), session(c), req)
	return h.respond(c, snap, err)
}

// GetStimulus отдаёт аудио текущего стимула
func (h *Handler) GetStimulus(c echo.Context) error {
	sess := session(c)
	rc, stim, err := h.service.OpenStimulus(c.Request().Context(), sess)
	if err != nil {
		return h.respond(c, sess.Snapshot(), err)
	}
	defer rc.Close()

	ext := strings.ToLower(path.Ext(stim.File))
	contentType, ok := audioTypes[ext]
	if !ok {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Stream(http.StatusOK, contentType, rc)
}

func (h *Handler) DownloadOwnRows(c echo.Context) error {
	sess := session(c)
	var buf bytes.Buffer
	if err := h.service.DownloadOwnRows(sess, &buf); err != nil {
		return h.respond(c, sess.Snapshot(), err)
	}
	return csvAttachment(c, sess.Snapshot().Participant.ID+"_responses.csv", buf.Bytes())
}

func (h *Handler) EndSession(c echo.Context) error {
	if err := h.service.EndSession(session(c).ID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Сессия не найдена"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AdminSummary(c echo.Context) error {
	sess := session(c)
	rows, err := h.service.AdminSummary(sess)
	if err != nil {
		return h.respond(c, sess.Snapshot(), err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"rows": rows,
		"view": Render(sess.Snapshot()),
	})
}

func (h *Handler) AdminExport(c echo.Context) error {
	sess := session(c)
	var buf bytes.Buffer
	if err := h.service.AdminExport(sess, &buf); err != nil {
		return h.respond(c, sess.Snapshot(), err)
	}
	return csvAttachment(c, "responses.csv", buf.Bytes())
}

func (h *Handler) AdminReset(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Некорректные данные"})
	}
	sess := session(c)
	err := h.service.AdminReset(sess, req.Confirm)
	return h.respond(c, sess.Snapshot(), err)
}

func (h *Handler) AdminExit(c echo.Context) error {
	snap, err := h.service.AdminExit(session(c))
	return h.respond(c, snap, err)
}

func csvAttachment(c echo.Context, filename string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", body)
}

// respond отрисовывает view и, если была ошибка, кладёт её рядом.
func (h *Handler) respond(c echo.Context, snap Snapshot, err error) error {
	view := Render(snap)
	if err == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"view": view})
	}
	return c.JSON(statusFor(err), map[string]interface{}{
		"error": err.Error(),
		"view":  view,
	})
}

func statusFor(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, catalog.ErrStimulusNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrWrongState):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrCatalogUnavailable), errors.Is(err, catalog.ErrCatalogEmpty):
		return http.StatusServiceUnavailable
	default:
		// в том числе responselog.WriteError и ReadError
		return http.StatusInternalServerError
	}
}
