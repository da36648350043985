// Package web serves the transcription page and the session API behind it.
package web

import (
	"html/template"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/server"
	"github.com/kbukum/transcribe/session"
	"github.com/kbukum/transcribe/sse"
	"github.com/kbukum/transcribe/util"
)

// StateResponse is the body of every endpoint that returns session state.
type StateResponse struct {
	session.Snapshot
	CanSummarize bool `json:"can_summarize"`
}

// SummaryResponse is returned by the summarize endpoint.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// Handler serves the page and the session API.
type Handler struct {
	svc       *session.Service
	hub       *sse.Hub
	issuer    *session.TokenIssuer
	page      *template.Template
	maxUpload int64
	tempDir   string
	keepAlive time.Duration
	limit     gin.HandlerFunc
	log       *logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithTempDir sets where uploads are spooled. Defaults to os.TempDir.
func WithTempDir(dir string) Option { return func(h *Handler) { h.tempDir = dir } }

// WithRateLimit guards the endpoints that call paid upstream APIs.
func WithRateLimit(mw gin.HandlerFunc) Option { return func(h *Handler) { h.limit = mw } }

// WithKeepAlive sets the event stream heartbeat interval.
func WithKeepAlive(d time.Duration) Option { return func(h *Handler) { h.keepAlive = d } }

func NewHandler(svc *session.Service, hub *sse.Hub, issuer *session.TokenIssuer, opts ...Option) *Handler {
	cfg := svc.Config()
	h := &Handler{
		svc:       svc,
		hub:       hub,
		issuer:    issuer,
		page:      pageTemplate,
		maxUpload: cfg.MaxUploadBytes(),
		log:       logger.WithComponent("web"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the page and API on r.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/", session.Middleware(h.issuer))
	g.GET("/", h.Index)

	guarded := []gin.HandlerFunc{}
	if h.limit != nil {
		guarded = append(guarded, h.limit)
	}

	api := g.Group("/api/session")
	api.GET("", h.State)
	api.DELETE("", h.Reset)
	api.GET("/events", h.Events)
	api.GET("/transcript", h.Transcript)
	api.GET("/download", h.Download)
	api.POST("/transcribe", append(guarded, h.Transcribe)...)
	api.POST("/summarize", append(guarded, h.Summarize)...)
}

type pageData struct {
	Title        string
	Accept       string
	MaxUpload    string
	CanSummarize bool
}

// Index renders the single page.
func (h *Handler) Index(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	err := h.page.Execute(c.Writer, pageData{
		Title:        "Transcribe.io",
		Accept:       "audio/*",
		MaxUpload:    util.FormatSize(h.maxUpload),
		CanSummarize: h.svc.CanSummarize(),
	})
	if err != nil {
		h.log.WithContext(c.Request.Context()).Error("render page", logger.Fields(logger.FieldError, err.Error()))
	}
}

// State returns the session's state and view.
func (h *Handler) State(c *gin.Context) {
	st, err := h.svc.Get(c.Request.Context(), session.ID(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, h.response(st))
}

// Transcribe accepts a multipart upload in the "file" field and starts a
// transcription in the background.
func (h *Handler) Transcribe(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		server.RespondWithError(c, formFileError(err, h.maxUpload))
		return
	}
	audio, contentType, err := spool(fh, h.tempDir, h.maxUpload)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	st, err := h.svc.Submit(c.Request.Context(), session.ID(c), session.Submission{
		SourceName:  fh.Filename,
		ContentType: contentType,
		Audio:       audio,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, h.response(st))
}

// Events streams the session's state changes.
func (h *Handler) Events(c *gin.Context) {
	id := session.ID(c)
	st, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	sse.ServeSSE(h.hub, c.Writer, c.Request, sse.Topic(id), sse.StreamOptions{
		KeepAlive: h.keepAlive,
		Initial:   []sse.Event{{Type: sse.EventTypeState, Data: session.NewSnapshot(st)}},
	})
}

// Transcript returns the rendered transcript for the clipboard.
func (h *Handler) Transcript(c *gin.Context) {
	text, err := h.svc.Text(c.Request.Context(), session.ID(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

// Download returns the transcript as an attachment. ?format=md selects
// Markdown.
func (h *Handler) Download(c *gin.Context) {
	doc, err := h.svc.Export(c.Request.Context(), session.ID(c), c.Query("format"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

// Summarize summarizes the session's transcript.
func (h *Handler) Summarize(c *gin.Context) {
	summary, err := h.svc.Summarize(c.Request.Context(), session.ID(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, SummaryResponse{Summary: summary})
}

// Reset clears the session.
func (h *Handler) Reset(c *gin.Context) {
	st, err := h.svc.Reset(c.Request.Context(), session.ID(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, h.response(st))
}

func (h *Handler) response(st session.State) StateResponse {
	return StateResponse{Snapshot: session.NewSnapshot(st), CanSummarize: h.svc.CanSummarize()}
}
