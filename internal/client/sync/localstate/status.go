package localstate

import "time"

// Status is the terminal (or in-flight) state of the most recent sync
// attempt for one path.
type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSynced     Status = "SYNCED"
	StatusError      Status = "ERROR"
	StatusRejected   Status = "REJECTED"
	StatusIgnored    Status = "IGNORED"
)

// Action names the operation that produced a Status.
type Action string

const (
	ActionCreateLocal  Action = "CREATE_LOCAL"
	ActionModifyLocal  Action = "MODIFY_LOCAL"
	ActionDeleteLocal  Action = "DELETE_LOCAL"
	ActionCreateRemote Action = "CREATE_REMOTE"
	ActionModifyRemote Action = "MODIFY_REMOTE"
	ActionDeleteRemote Action = "DELETE_REMOTE"
	ActionNoop         Action = "NOOP"
)

// StatusInfo is the last known sync outcome for one path.
type StatusInfo struct {
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Action    Action    `json:"action,omitempty"`
	Message   string    `json:"message,omitempty"`
}
