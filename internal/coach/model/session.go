package model

import "time"

// Stage is where a session is in the linear flow:
// assessment -> chat -> action.
type Stage string

const (
	// StageAssessment waits for the questionnaire answers.
	StageAssessment Stage = "assessment"
	StageChat       Stage = "chat"
	// StageAction has a summary; action cards and outcomes are available.
	StageAction Stage = "action"
)

// SessionState is the caller-owned, transient state of one coaching session.
// The transcript itself lives next to it in the repository.
type SessionState struct {
	ID        string    `json:"id"`
	Stage     Stage     `json:"stage"`
	CreatedAt time.Time `json:"created_at"`

	Role             string `json:"role,omitempty"`
	NeuroticismTotal int    `json:"neuroticism_total,omitempty"`
	Band             Band   `json:"band,omitempty"`
	JobAnxietyTotal  int    `json:"job_anxiety_total,omitempty"`
	Intensity        int    `json:"intensity"`

	// LastError is the most recent advisory error from the completion client.
	LastError string `json:"last_error,omitempty"`

	Summary            *ChatSummary `json:"summary,omitempty"`
	Driver             Driver       `json:"driver,omitempty"`
	ConfirmedIntensity *int         `json:"confirmed_intensity,omitempty"`

	Outcome *Outcome `json:"outcome,omitempty"`
}

// BaselineIntensity is the confirmed intensity when present, else the scored one.
func (s *SessionState) BaselineIntensity() int {
	if s.ConfirmedIntensity != nil {
		return *s.ConfirmedIntensity
	}
	return s.Intensity
}

// Outcome records the before/after intensity of one completed action.
type Outcome struct {
	ActionTitle string `json:"action_title,omitempty"`
	Completed   bool   `json:"completed"`
	Before      int    `json:"before"`
	After       int    `json:"after"`
	Delta       int    `json:"delta"`
	// Improved is true when the intensity dropped by at least one point.
	Improved bool `json:"improved"`
}
