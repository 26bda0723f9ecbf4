package model

import "time"

// 时间线事件类型。
const (
	EventSessionCreated    = "session_created"
	EventSessionStarted    = "session_started"
	EventCandidateResponse = "candidate_response"
	EventPanelMessage      = "panel_message"
	EventSessionCompleted  = "session_completed"
)

// Event 表示时间线中的一个事件。
type Event struct {
	// Seq 由后端分配的单调序号，用于回放与幂等。
	Seq int64 `json:"seq,omitempty"`
	// SessionID 由编排器补齐。
	SessionID string `json:"session_id,omitempty"`
	// EventID 用于去重与重试幂等；会话消息直接复用 Message.ID。
	EventID string `json:"event_id,omitempty"`

	Type          string    `json:"type"`
	PanelMemberID string    `json:"panel_member_id,omitempty"`
	Text          string    `json:"text,omitempty"`
	Score         int       `json:"score,omitempty"`
	Source        string    `json:"source,omitempty"`
	ServerTS      time.Time `json:"server_ts,omitempty"`
}
