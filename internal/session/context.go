package session

import (
	"encoding/json"

	"github.com/marnhollow/arcadehost/internal/models"
)

// sessionIDPayload is the shape every session-bearing request's data
// carries: spec §4.1 "Any lobby action except register and login requires
// a sessionID inside data".
type sessionIDPayload struct {
	SessionID string `json:"sessionID"`
}

// IDFromRequestData extracts the sessionID field from a raw JSON request
// data payload.
func IDFromRequestData(data []byte) (string, error) {
	if len(data) == 0 {
		return "", models.ErrMissingSession
	}
	var p sessionIDPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", models.ErrMissingSession
	}
	if p.SessionID == "" {
		return "", models.ErrMissingSession
	}
	return p.SessionID, nil
}
