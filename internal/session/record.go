// Package session holds the per-user record and the finite-state machine
// that interprets inbound messages against it.
package session

import "time"

// State tags the session machine position for a user. It persists with the
// record so a restart resumes mid-flow conversations.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingCredential State = "awaiting_credential"
	StateAwaitingParamEdit  State = "awaiting_param_edit"
	StateAwaitingLanguage   State = "awaiting_language_choice"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one history entry.
type Turn struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// Record is the durable per-user state. All mutation happens inside the
// dispatcher's exclusive turn for the user, so the struct carries no lock.
type Record struct {
	UserID     string
	Credential string // opaque upstream secret, never logged
	Language   string
	Params     Params // user overrides only; defaults merged on read
	State      State
	Pending    string // param name awaiting a value in StateAwaitingParamEdit
	History    []Turn
}

// NewRecord returns a default record for a first-time user.
func NewRecord(userID string) *Record {
	return &Record{
		UserID:   userID,
		Language: "en",
		Params:   Params{},
		State:    StateIdle,
	}
}

// Append adds a turn to history. Append-only; eviction happens at prompt
// build time and at save time via Trim.
func (r *Record) Append(role, content string) {
	r.History = append(r.History, Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// ResetHistory clears the conversation but leaves credential, language and
// parameters untouched.
func (r *Record) ResetHistory() {
	r.History = nil
}

// Trim drops the oldest turns so at most maxTurns user+assistant pairs
// remain. A zero or negative bound means unbounded.
func (r *Record) Trim(maxTurns int) {
	if maxTurns <= 0 {
		return
	}
	max := maxTurns * 2
	if len(r.History) > max {
		r.History = append([]Turn(nil), r.History[len(r.History)-max:]...)
	}
}
