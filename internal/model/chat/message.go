package chat

import (
	"strings"

	"github.com/zhouzirui/heartline/backend/internal/analysis/emotion"
)

// DefaultUserID scopes conversation context when the client sends no user id.
const DefaultUserID = "default"

// Request is the body of POST /chat.
type Request struct {
	Message string `json:"message" validate:"required,min=1,max=4000"`
	UserID  string `json:"user_id,omitempty" validate:"omitempty,max=128"`
}

// Normalize trims the message and fills the default user id.
func (r *Request) Normalize() {
	r.Message = strings.TrimSpace(r.Message)
	r.UserID = strings.TrimSpace(r.UserID)
	if r.UserID == "" {
		r.UserID = DefaultUserID
	}
}

// Response is the unit returned to the frontend.
type Response struct {
	AIResponse          string         `json:"ai_response"`
	UserEmotionAnalysis emotion.Result `json:"user_emotion_analysis"`
	ResponseID          string         `json:"response_id"`
	ModelUsed           string         `json:"model_used"`
	FromCache           bool           `json:"from_cache"`
}
