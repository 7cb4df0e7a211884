package conversation

// Mode is the dialogue sub-state of a session.
type Mode string

const (
	ModeNone               Mode = ""
	ModeAwaitingPostalCode Mode = "awaiting_postal_code"
)

// SessionState is the per-conversation bag the host persists between
// messages. The router never keeps it; it receives a copy and returns the
// updated value.
type SessionState struct {
	Mode Mode `json:"mode,omitempty" dynamodbav:"mode,omitempty"`
	// PendingResultLimit is captured when entering ModeAwaitingPostalCode and
	// cleared on exit.
	PendingResultLimit *int   `json:"pending_result_limit,omitempty" dynamodbav:"pendingResultLimit,omitempty"`
	Transcript         []Turn `json:"transcript,omitempty" dynamodbav:"transcript,omitempty"`
}

// Awaiting reports whether the session is waiting for a ZIP code.
func (s SessionState) Awaiting() bool {
	return s.Mode == ModeAwaitingPostalCode
}

// clone copies the state so callers' slices are never aliased.
func (s SessionState) clone() SessionState {
	out := SessionState{Mode: s.Mode}
	if s.PendingResultLimit != nil {
		limit := *s.PendingResultLimit
		out.PendingResultLimit = &limit
	}
	if len(s.Transcript) > 0 {
		out.Transcript = append([]Turn(nil), s.Transcript...)
	}
	return out
}

func (s *SessionState) awaitPostalCode(limit int) {
	s.Mode = ModeAwaitingPostalCode
	s.PendingResultLimit = &limit
}

func (s *SessionState) clearPending() {
	s.Mode = ModeNone
	s.PendingResultLimit = nil
}
