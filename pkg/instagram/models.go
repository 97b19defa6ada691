package instagram

import (
	"strings"

	"osintgram/pkg/record"
)

// Session is the persisted login state of the caller's account
type Session struct {
	Username  string `json:"username"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	CSRFToken string `json:"csrf_token"`
	DeviceID  string `json:"device_id"`
}

// Valid reports whether the session can authenticate requests
func (s *Session) Valid() bool {
	return s != nil && s.SessionID != ""
}

// loginResponse is the answer of the web login endpoint
type loginResponse struct {
	Authenticated bool
	UserExists    bool
	UserID        string
}

func (r *loginResponse) fill(rec record.Record) {
	r.Authenticated, _ = rec.Bool("authenticated")
	r.UserExists, _ = rec.Bool("user")
	r.UserID, _ = rec.String("userId")
}

// apiStatus is the error envelope returned with non-2xx answers
type apiStatus struct {
	Status        string
	Message       string
	CheckpointURL string
	Spam          bool
	FeedbackTitle string
}

func (s *apiStatus) fill(rec record.Record) {
	s.Status, _ = rec.String("status")
	s.Message, _ = rec.String("message")
	s.CheckpointURL, _ = rec.String("checkpoint_url")
	if s.CheckpointURL == "" {
		s.CheckpointURL, _ = rec.String("challenge.url")
	}
	s.Spam, _ = rec.Bool("spam")
	s.FeedbackTitle, _ = rec.String("feedback_title")
}

func (s *apiStatus) isThrottle() bool {
	if s.Spam || s.Message == "feedback_required" || s.Message == "rate_limit_error" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Message), "wait a few minutes")
}
