package model

// Role tags who authored a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry as the backend reports it.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Transcript is the ordered conversation for one session.
type Transcript []Message

// Clone returns a copy that does not share the backing array.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return Transcript{}
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// SessionStart is the result of initialising a placeholder conversation.
type SessionStart struct {
	SessionID  SessionID
	Transcript Transcript
	AllFilled  bool
}

// TurnRequest is one user turn addressed to an existing session.
type TurnRequest struct {
	DocumentID DocumentID
	SessionID  SessionID
	Message    string
}

// TurnResult is the backend's answer to a turn. Transcript is the canonical
// copy and already includes the user's message.
type TurnResult struct {
	Transcript Transcript
	AllFilled  bool
	Message    string
}

// SessionState is the lifecycle of a conversation controller.
type SessionState int

const (
	StateStarting SessionState = iota
	StateAwaitingInput
	StateSending
	StateCompleted
)

func (s SessionState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateAwaitingInput:
		return "awaiting_input"
	case StateSending:
		return "sending"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// MarshalText lets views carry the state as a readable string in JSON.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
