// Package rsync implements the classic rsync algorithm: a rolling weak
// checksum plus a strong per-block hash lets a receiver that only has an old
// copy of a file reconstruct a new copy from a compact delta, without the
// sender ever needing the old copy.
//
// Grounded on the signature/deltafy/patch split in
// mutagen-io/mutagen's pkg/rsync, adapted to SyftBox's own types and to
// SHA-256 (matching the content hash used everywhere else in this repo)
// instead of SHA-1.
package rsync
