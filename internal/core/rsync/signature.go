package rsync

import (
	"crypto/sha256"
	"math"
)

const (
	// minBlockSize bounds optimalBlockSize from below.
	minBlockSize = 1 << 10 // 1 KiB
	// maxBlockSize bounds optimalBlockSize from above. Must stay within
	// uint32 range for the weak hash modulus to behave.
	maxBlockSize = 1 << 16 // 64 KiB
	// maxOpDataSize is the largest literal chunk emitted by Diff in one Op.
	maxOpDataSize = 1 << 16
	// weakMod is the modulus used by the rolling weak checksum (classic
	// rsync thesis value).
	weakMod = 1 << 16
)

// BlockHash pairs the weak (rolling) and strong (content) hash of one block
// of the base file.
type BlockHash struct {
	Weak   uint32
	Strong [sha256.Size]byte
}

// Signature is an rsync block signature: the block size used to cut the
// base into blocks, the (possibly short) size of the last block, and the
// per-block hashes. It is not cached anywhere: the server's store
// recomputes it from the current bytes on each request, and the client's
// push path computes the server's signature itself from bytes it downloads.
type Signature struct {
	BlockSize     uint64
	LastBlockSize uint64
	Hashes        []BlockHash
}

// optimalBlockSize picks a block size using the rsync-thesis heuristic:
// sqrt(24 * fileLength), clamped to a sane range.
func optimalBlockSize(length uint64) uint64 {
	size := uint64(math.Sqrt(24.0 * float64(length)))
	if size < minBlockSize {
		return minBlockSize
	}
	if size > maxBlockSize {
		return maxBlockSize
	}
	return size
}

// ComputeSignature builds the Signature of base, the data an rsync Diff
// will later be computed against.
func ComputeSignature(base []byte) Signature {
	if len(base) == 0 {
		return Signature{}
	}

	blockSize := optimalBlockSize(uint64(len(base)))
	blockCount := (uint64(len(base)) + blockSize - 1) / blockSize

	sig := Signature{
		BlockSize: blockSize,
		Hashes:    make([]BlockHash, 0, blockCount),
	}

	for offset := uint64(0); offset < uint64(len(base)); offset += blockSize {
		end := offset + blockSize
		if end > uint64(len(base)) {
			end = uint64(len(base))
		}
		block := base[offset:end]

		sig.Hashes = append(sig.Hashes, BlockHash{
			Weak:   weakHash(block, blockSize),
			Strong: sha256.Sum256(block),
		})
		sig.LastBlockSize = uint64(len(block))
	}

	return sig
}

// weakHash computes the rolling checksum for a full-size window (padding a
// short trailing block to blockSize conceptually — we weight by position
// within blockSize regardless of the slice's actual length, matching the
// weighting used when the window later rolls over target data).
func weakHash(data []byte, blockSize uint64) uint32 {
	var r1, r2 uint32
	for i, b := range data {
		r1 += uint32(b)
		r2 += (uint32(blockSize) - uint32(i)) * uint32(b)
	}
	r1 %= weakMod
	r2 %= weakMod
	return r1 + weakMod*r2
}

// rollWeakHash advances a full-blockSize rolling window by dropping byte
// `out` and admitting byte `in`, without rescanning the whole window.
func rollWeakHash(r1, r2, blockSize uint32, out, in byte) (uint32, uint32, uint32) {
	r1 = (r1 - uint32(out) + uint32(in)) % weakMod
	r2 = (r2 - blockSize*uint32(out) + r1) % weakMod
	return r1 + weakMod*r2, r1, r2
}
