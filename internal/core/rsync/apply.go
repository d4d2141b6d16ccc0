package rsync

import (
	"fmt"
)

// Apply reconstructs the target bytes by replaying ops against base (the
// same bytes ComputeSignature was run on to produce the Signature that Diff
// used). Applying the same ops twice against the same base yields the same
// result both times — Apply has no side effects on base.
func Apply(base []byte, blockSize uint64, ops []Op) ([]byte, error) {
	var out []byte

	for _, op := range ops {
		if op.Data != nil {
			out = append(out, op.Data...)
			continue
		}

		start := op.Start * blockSize
		end := start + op.Count*blockSize
		if end > uint64(len(base)) {
			end = uint64(len(base))
		}
		if start > uint64(len(base)) {
			return nil, fmt.Errorf("rsync: apply: block start %d beyond base length %d", start, len(base))
		}
		out = append(out, base[start:end]...)
	}

	return out, nil
}
