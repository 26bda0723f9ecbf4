package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"saphira/server/internal/model"
	"saphira/server/internal/orchestrator"
	"saphira/server/internal/voice"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamReadLimit    = 64 << 10
)

// 客户端 → 服务端
const (
	clientStart    = "start"
	clientResponse = "response"
	clientEnd      = "end"
	clientSkip     = "skip"
)

// 服务端 → 客户端
const (
	serverSession   = "session"
	serverPanel     = "panel_message"
	serverFeedback  = "feedback"
	serverTurnDone  = "turn_complete"
	serverCompleted = "session_completed"
	serverWarning   = "warning"
	serverError     = "error"
)

type clientMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type serverMessage struct {
	Type     string                  `json:"type"`
	Session  *model.Session          `json:"session,omitempty"`
	Step     *voice.Step             `json:"step,omitempty"`
	Feedback *model.QuestionFeedback `json:"feedback,omitempty"`
	Summary  *model.SessionSummary   `json:"summary,omitempty"`
	Code     string                  `json:"code,omitempty"`
	Error    string                  `json:"error,omitempty"`
	ServerTS time.Time               `json:"server_ts"`
}

// streamConn 串行化对同一个 WebSocket 的写入；gorilla 的连接不支持并发写。
type streamConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (sc *streamConn) send(msg serverMessage) error {
	msg.ServerTS = time.Now()
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	_ = sc.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return sc.conn.WriteJSON(msg)
}

// sendAudio 音频以二进制帧下发，紧跟在对应的 panel_message 之后。
func (sc *streamConn) sendAudio(_ context.Context, _ string, audio []byte) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	_ = sc.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return sc.conn.WriteMessage(websocket.BinaryMessage, audio)
}

// player 同一时刻只有一段播放；新的播放或结束都会先取消旧的。
type player struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *player) stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (p *player) play(parent context.Context, run func(ctx context.Context)) {
	p.stop()
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	p.mu.Lock()
	p.cancel, p.done = cancel, done
	p.mu.Unlock()
	go func() {
		defer close(done)
		run(ctx)
	}()
}

// handleSessionStream 一个会话的双向流：候选人文本进，按节奏播放的面试官消息出。
// 配置了 TTS 时每条台词额外下发一帧音频。
func (s *Server) handleSessionStream(c *gin.Context) {
	sessionID := c.Param("id")
	sess, err := s.orch.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[API] ❌ Failed to upgrade websocket: %v", err)
		return
	}
	conn.SetReadLimit(streamReadLimit)
	sc := &streamConn{conn: conn}

	speaker, err := voice.NewSpeaker(s.config.Voice, sc.sendAudio)
	if err != nil {
		log.Printf("[API] ⚠️  voice disabled for session %s: %v", sessionID, err)
	}

	active := s.trackStream(sessionID, 1)
	log.Printf("[API] ✅ stream opened for session %s (active on session: %d)", sessionID, active)

	ctx, cancel := context.WithCancel(context.Background())
	p := &player{}
	defer func() {
		cancel()
		p.stop()
		_ = conn.Close()
		s.trackStream(sessionID, -1)
		log.Printf("[API] 🔌 stream closed for session %s", sessionID)
	}()

	_ = sc.send(serverMessage{Type: serverSession, Session: sess})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[API] stream read for session %s ended: %v", sessionID, err)
			}
			return
		}
		s.handleStreamMessage(ctx, sessionID, sc, p, speaker, msg)
	}
}

func (s *Server) handleStreamMessage(ctx context.Context, id string, sc *streamConn, p *player, speaker voice.Speaker, msg clientMessage) {
	switch msg.Type {
	case clientStart:
		res, err := s.orch.Start(ctx, id)
		if err != nil {
			s.sendError(sc, err)
			return
		}
		s.sendWarnings(sc, res.Warnings)
		steps := voice.PlanMessages(res.Messages, res.Session.Panel)
		p.play(ctx, func(ctx context.Context) {
			if s.playSteps(ctx, sc, speaker, steps) {
				_ = sc.send(serverMessage{Type: serverTurnDone, Session: res.Session})
			}
		})

	case clientResponse:
		if msg.Text == "" {
			_ = sc.send(serverMessage{Type: serverError, Error: "text required"})
			return
		}
		// 候选人开口即打断当前播放。
		p.stop()
		res, err := s.orch.Respond(ctx, id, msg.Text)
		if err != nil {
			s.sendError(sc, err)
			return
		}
		s.sendWarnings(sc, res.Warnings)
		if res.Feedback != nil {
			_ = sc.send(serverMessage{Type: serverFeedback, Feedback: res.Feedback})
		}
		steps := voice.PlanTurn(res.TurnResult, res.Session.Panel)
		p.play(ctx, func(ctx context.Context) {
			if !s.playSteps(ctx, sc, speaker, steps) {
				return
			}
			if res.IsComplete {
				summary := s.orch.Engine().GenerateSessionSummary(res.Session)
				_ = sc.send(serverMessage{Type: serverCompleted, Session: res.Session, Summary: &summary})
				return
			}
			_ = sc.send(serverMessage{Type: serverTurnDone, Session: res.Session})
		})

	case clientSkip:
		p.stop()

	case clientEnd:
		p.stop()
		res, err := s.orch.End(ctx, id)
		if err != nil {
			s.sendError(sc, err)
			return
		}
		s.sendWarnings(sc, res.Warnings)
		summary := s.orch.Engine().GenerateSessionSummary(res.Session)
		_ = sc.send(serverMessage{Type: serverCompleted, Session: res.Session, Summary: &summary})

	default:
		_ = sc.send(serverMessage{Type: serverError, Error: "unknown message type: " + msg.Type})
	}
}

// playSteps 按节奏下发每一步；返回 false 表示被取消。
func (s *Server) playSteps(ctx context.Context, sc *streamConn, speaker voice.Speaker, steps []voice.Step) bool {
	_, err := voice.PlaySteps(ctx, steps, func(ctx context.Context, st voice.Step) error {
		if err := sc.send(serverMessage{Type: serverPanel, Step: &st}); err != nil {
			return err
		}
		if speaker == nil || st.VoiceID == "" {
			return nil
		}
		return speaker.Speak(ctx, st.Text, st.VoiceID)
	})
	return err == nil
}

func (s *Server) sendError(sc *streamConn, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[API] ❌ stream error: %v", err)
	}
	_ = sc.send(serverMessage{Type: serverError, Code: http.StatusText(status), Error: msg})
}

func (s *Server) sendWarnings(sc *streamConn, warnings []orchestrator.Warning) {
	for _, w := range warnings {
		_ = sc.send(serverMessage{Type: serverWarning, Code: w.Code, Error: w.Message})
	}
}

func (s *Server) trackStream(id string, delta int) int {
	s.streamsMu.Lock()
	defer s.streamsMu.Unlock()
	s.streams[id] += delta
	n := s.streams[id]
	if n <= 0 {
		delete(s.streams, id)
	}
	return n
}
