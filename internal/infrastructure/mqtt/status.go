package mqtt

import (
	"encoding/json"
	"time"
)

// Service status values published retained on Topics.SystemStatus.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"

	ReasonUnexpected = "unexpected_disconnect"
	ReasonShutdown   = "graceful_shutdown"
)

// Status is the retained service status. Adapters watch it to tell whether
// the admin core can answer sendTo replies.
type Status struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func newStatus(status, clientID, reason string, now time.Time) Status {
	return Status{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

// payload encodes s. Status holds only strings, so marshalling cannot fail.
func (s Status) payload() []byte {
	b, _ := json.Marshal(s) //nolint:errcheck // Only string fields
	return b
}
