// Package ipc speaks the workflow CLI's event socket: a WebSocket carrying
// JSON envelopes, with request/response pairs correlated by ID and
// unsolicited push events for every state change.
package ipc

import "encoding/json"

// Envelope wraps all messages with a type discriminator. Requests and
// responses carry an ID; push events do not.
type Envelope struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// EnvelopeRaw is used for receiving messages where the payload needs to be
// unmarshaled based on the message type.
type EnvelopeRaw struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// MarshalEnvelope creates an envelope with the given type, id, and payload
func MarshalEnvelope(msgType, id string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Type: msgType, ID: id, Payload: payload})
}

// Monitor -> CLI request types
const (
	TypeGetState    = "get_state"
	TypeGetPlan     = "get_plan"
	TypeGetQueue    = "get_queue"
	TypeGetReleases = "get_releases"
)

// CLI -> monitor message types
const (
	TypeResponse        = "response"
	TypeStateChanged    = "state_changed"
	TypePlanChanged     = "plan_changed"
	TypeQueueChanged    = "queue_changed"
	TypeReleaseChanged  = "release_changed"
	TypeProjectSwitched = "project_switched"
)

// GetPlanRequest asks for one issue's plan
type GetPlanRequest struct {
	Issue int `json:"issue"`
}

// ProjectSwitchedEvent announces a completed project switch
type ProjectSwitchedEvent struct {
	Path string `json:"path"`
}
