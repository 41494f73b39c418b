// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/melange/internal/app/store/audit"
)

// listItem is one audit event with actor, target and organization names
// resolved.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	ActorName     string            `json:"actor_name,omitempty"`
	TargetName    string            `json:"target_name,omitempty"`
	OrgName       string            `json:"org_name,omitempty"`
	IP            string            `json:"ip,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Items      []listItem `json:"items"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	Total      int64      `json:"total"`
}

// validCategory reports whether c names a recorded category. Empty means
// all.
func validCategory(c string) bool {
	switch c {
	case "", audit.CategoryAuth, audit.CategoryAdmin, audit.CategoryConnection:
		return true
	}
	return false
}
