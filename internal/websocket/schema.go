package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSkip   Action = "skip"
	ActionSubmit Action = "submit"
	ActionState  Action = "state"
	ActionPing   Action = "ping"
)

// RequestEnvelope is every client message. QuestionID is required for answer
// and skip, OptionID for answer only.
type RequestEnvelope struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id,omitempty"`
	OptionID   string `json:"option_id,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot  Event = "snapshot"
	EventFinalized Event = "finalized"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// SnapshotResponse carries the session view after every accepted action.
type SnapshotResponse struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data"`
}

// FinalizedResponse is sent once the session is closed, by the student or by timeout.
type FinalizedResponse struct {
	Event            Event       `json:"event"`
	AlreadyFinalized bool        `json:"already_finalized"`
	Result           interface{} `json:"result"`
}

type ErrorResponse struct {
	Event   Event  `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
