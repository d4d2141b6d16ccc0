package sync

import (
	"encoding/hex"
	"time"

	"github.com/openmined/syftbox/internal/core/rsync"
)

// wireBlockHash/wireSignature/wireOp mirror syncclient's unexported wire
// types byte-for-byte: the client and server packages share no types, only
// the JSON shape on the wire between them.
type wireBlockHash struct {
	Weak   uint32 `json:"weak"`
	Strong string `json:"strong"`
}

type wireSignature struct {
	BlockSize     uint64          `json:"block_size"`
	LastBlockSize uint64          `json:"last_block_size"`
	Hashes        []wireBlockHash `json:"hashes"`
}

func (w wireSignature) toSignature() (rsync.Signature, error) {
	sig := rsync.Signature{
		BlockSize:     w.BlockSize,
		LastBlockSize: w.LastBlockSize,
		Hashes:        make([]rsync.BlockHash, len(w.Hashes)),
	}
	for i, h := range w.Hashes {
		strong, err := hex.DecodeString(h.Strong)
		if err != nil {
			return rsync.Signature{}, err
		}
		var arr [32]byte
		copy(arr[:], strong)
		sig.Hashes[i] = rsync.BlockHash{Weak: h.Weak, Strong: arr}
	}
	return sig, nil
}

type wireOp struct {
	Data  []byte `json:"data,omitempty"`
	Start uint64 `json:"start,omitempty"`
	Count uint64 `json:"count,omitempty"`
}

func toWireOps(ops []rsync.Op) []wireOp {
	out := make([]wireOp, len(ops))
	for i, op := range ops {
		out[i] = wireOp{Data: op.Data, Start: op.Start, Count: op.Count}
	}
	return out
}

func fromWireOps(ops []wireOp) []rsync.Op {
	out := make([]rsync.Op, len(ops))
	for i, op := range ops {
		out[i] = rsync.Op{Data: op.Data, Start: op.Start, Count: op.Count}
	}
	return out
}

// applyDiffRequest mirrors syncclient.ApplyDiffRequest.
type applyDiffRequest struct {
	Path         string   `json:"path"`
	Ops          []wireOp `json:"ops"`
	ExpectedHash string   `json:"expected_hash"`
}

// remoteEntry mirrors syncclient.RemoteEntry.
type remoteEntry struct {
	Path         string    `json:"path"`
	Hash         string    `json:"hash"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}
