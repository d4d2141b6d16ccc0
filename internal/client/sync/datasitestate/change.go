// Package datasitestate compares local and remote views of one datasite
// and classifies every path into a permission change, a data-file change,
// or an ignored path — the input to the priority queue each tick.
package datasitestate

import "time"

// Side names which end of a change is authoritative for the comparison
// that produced it — not which side wins the eventual sync decision.
type Side string

const (
	SideLocal  Side = "LOCAL"
	SideRemote Side = "REMOTE"
	SideBoth   Side = "BOTH" // both present, hashes differ
)

// Change is one out-of-sync path surfaced by Diff, carrying enough to
// prioritize and later enqueue it.
type Change struct {
	Path             string
	Side             Side
	Size             int64
	SideLastModified time.Time
	IsPermissionFile bool
}
