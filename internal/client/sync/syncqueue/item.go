package syncqueue

import "github.com/openmined/syftbox/internal/client/sync/datasitestate"

// Priority buckets mirror the spec's fixed priority classes: permission
// files go first so a write never observes a permission change it
// shouldn't, then everything else.
const (
	PriorityPermission = 0
	PriorityFile       = 1
)

// Item is one unit of work pulled by the consumer: a datasite change plus
// the priority it was enqueued with.
type Item struct {
	Change   datasitestate.Change
	Priority int
}
