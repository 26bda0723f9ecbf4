package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"saphira/server/internal/config"
	"saphira/server/internal/domain"
	"saphira/server/internal/engine"
	"saphira/server/internal/model"
	"saphira/server/internal/orchestrator"
	"saphira/server/internal/realtime"
	"saphira/server/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const maxImportBytes = 4 << 20

type Server struct {
	config  *config.Config
	orch    *orchestrator.Orchestrator
	catalog *domain.Catalog

	// realtimeClient 只用于签发转写的短期凭证，浏览器直连 OpenAI 做语音识别，
	// 识别出的文本再通过 stream 发回来。
	realtimeClient *realtime.Client

	// streams 当前打开的 WebSocket 数量 (sessionID -> count)
	streams   map[string]int
	streamsMu sync.Mutex

	upgrader websocket.Upgrader
}

func NewServer(cfg *config.Config, orch *orchestrator.Orchestrator) *Server {
	s := &Server{
		config:  cfg,
		orch:    orch,
		catalog: orch.Engine().Catalog(),
		streams: make(map[string]int),
		realtimeClient: &realtime.Client{
			APIKey: cfg.LLM.OpenAI.APIKey,
		},
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.allowedOrigin(origin)
		},
	}
	return s
}

func (s *Server) Routes() http.Handler {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), s.corsMiddleware())
	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/api/use-cases", s.handleUseCases)
	engine.GET("/api/companies", s.handleCompanies)
	engine.GET("/api/stats", s.handleStats)

	sessions := engine.Group("/api/sessions")
	sessions.POST("", s.handleCreateSession)
	sessions.POST("/import", s.handleImport)
	sessions.GET("/:id", s.handleGetSession)
	sessions.POST("/:id/start", s.handleStart)
	sessions.POST("/:id/responses", s.handleRespond)
	sessions.POST("/:id/end", s.handleEnd)
	sessions.GET("/:id/summary", s.handleSummary)
	sessions.GET("/:id/export", s.handleExport)
	sessions.GET("/:id/timeline", s.handleTimeline)
	sessions.GET("/:id/stream", s.handleSessionStream)
	sessions.POST("/:id/transcription/token", s.handleTranscriptionToken)
	return engine
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleUseCases 返回所有场景及其默认面试小组。
func (s *Server) handleUseCases(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.UseCases())
}

// handleCompanies 列出带题库的公司，可用 ?country= 过滤。
func (s *Server) handleCompanies(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.Companies(model.Country(c.Query("country"))))
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.Stats(c.Request.Context()))
}

type createSessionRequest struct {
	UseCase      model.UseCase       `json:"use_case"`
	Description  string              `json:"description"`
	Topic        string              `json:"topic"`
	Company      string              `json:"company"`
	Country      model.Country       `json:"country"`
	MaxQuestions int                 `json:"max_questions"`
	CustomPanel  []model.PanelMember `json:"custom_panel"`
	Seed         int64               `json:"seed"`
}

// handleCreateSession 没给 use_case/country 时从 description 里识别。
func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UseCase == "" {
		if req.Description == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "use_case or description required"})
			return
		}
		req.UseCase = s.catalog.DetectUseCase(req.Description)
	}
	if req.Country == "" && req.Description != "" {
		req.Country = s.catalog.DetectCountry(req.Description)
	}

	res, err := s.orch.Create(c.Request.Context(), req.UseCase, engine.Options{
		Topic:        req.Topic,
		Company:      req.Company,
		Country:      req.Country,
		CustomPanel:  req.CustomPanel,
		MaxQuestions: req.MaxQuestions,
		Seed:         req.Seed,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.orch.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) handleStart(c *gin.Context) {
	res, err := s.orch.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type respondRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	Session    *model.Session          `json:"session"`
	Messages   []model.Message         `json:"messages"`
	Feedback   *model.QuestionFeedback `json:"feedback,omitempty"`
	Analysis   model.ResponseAnalysis  `json:"analysis"`
	IsComplete bool                    `json:"is_complete"`
	Pacing     engine.Pacing           `json:"pacing"`
	Source     string                  `json:"question_source"`
	Warnings   []orchestrator.Warning  `json:"warnings,omitempty"`
	Summary    *model.SessionSummary   `json:"summary,omitempty"`
}

func (s *Server) turnResponse(res *orchestrator.TurnResult) turnResponse {
	out := turnResponse{
		Session:    res.Session,
		Messages:   res.Messages,
		Feedback:   res.Feedback,
		Analysis:   res.Analysis,
		IsComplete: res.IsComplete,
		Pacing:     res.Pacing,
		Source:     string(res.QuestionOutcome.Source),
		Warnings:   res.Warnings,
	}
	if res.IsComplete {
		summary := s.orch.Engine().GenerateSessionSummary(res.Session)
		out.Summary = &summary
	}
	return out
}

func (s *Server) handleRespond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text required"})
		return
	}
	res, err := s.orch.Respond(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.turnResponse(res))
}

func (s *Server) handleEnd(c *gin.Context) {
	res, err := s.orch.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	summary := s.orch.Engine().GenerateSessionSummary(res.Session)
	c.JSON(http.StatusOK, gin.H{"session": res.Session, "summary": summary, "warnings": res.Warnings})
}

func (s *Server) handleSummary(c *gin.Context) {
	summary, err := s.orch.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleExport(c *gin.Context) {
	data, err := s.orch.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="session-`+c.Param("id")+`.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) handleImport(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}
	res, err := s.orch.Import(c.Request.Context(), data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) handleTimeline(c *gin.Context) {
	after, _ := strconv.ParseInt(c.DefaultQuery("after", "0"), 10, 64)
	events, err := s.orch.Timeline(c.Request.Context(), c.Param("id"), after)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

type transcriptionTokenResponse struct {
	Model        string `json:"model"`
	EphemeralKey string `json:"ephemeral_key"`
	ExpiresAt    int64  `json:"expires_at"`
	Prompt       string `json:"prompt"`
}

// handleTranscriptionToken 按会话国家生成转写提示，签发短期凭证。
func (s *Server) handleTranscriptionToken(c *gin.Context) {
	sess, err := s.orch.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	cp, _ := s.catalog.Country(sess.Country)
	prompt := fmt.Sprintf("A %s candidate answering a %s panel. Expect %s English and occasional local expressions.",
		cp.DisplayName, strings.ReplaceAll(string(sess.UseCase), "_", " "), cp.DisplayName)
	if len(cp.Fillers) > 0 {
		prompt += " Common phrases: " + strings.Join(cp.Fillers, ", ") + "."
	}
	sttModel := s.config.Voice.TranscriptionModel

	tok, err := s.realtimeClient.CreateTranscriptionToken(c.Request.Context(), realtime.NewTranscriptionRequest(sttModel, prompt))
	if err != nil {
		if errors.Is(err, realtime.ErrNoAPIKey) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "speech transcription is not configured"})
			return
		}
		// 详细错误只记服务端日志
		log.Printf("[API] ❌ create transcription token failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "create transcription token failed"})
		return
	}

	c.JSON(http.StatusOK, transcriptionTokenResponse{
		Model:        sttModel,
		EphemeralKey: tok.ClientSecret.Value,
		ExpiresAt:    tok.ClientSecret.ExpiresAt,
		Prompt:       prompt,
	})
}

// writeError 把领域错误映射为 HTTP 状态码；内部错误只记日志，不把细节返回给前端。
func writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[API] ❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, engine.ErrInvalidTransition), errors.Is(err, orchestrator.ErrSessionExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, engine.ErrUnknownUseCase), errors.Is(err, engine.ErrInvalidSession):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, orchestrator.ErrQueueFull):
		return http.StatusTooManyRequests, "too many pending requests for this session"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) allowedOrigin(origin string) bool {
	for _, o := range s.config.Server.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && s.allowedOrigin(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
