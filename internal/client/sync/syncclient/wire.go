package syncclient

import (
	"encoding/hex"
	"encoding/json"

	"github.com/openmined/syftbox/internal/core/rsync"
)

// wireBlockHash is the JSON-friendly shape of a rsync.BlockHash; the strong
// hash travels as hex rather than an array of 32 small ints.
type wireBlockHash struct {
	Weak   uint32 `json:"weak"`
	Strong string `json:"strong"`
}

type wireSignature struct {
	BlockSize     uint64          `json:"block_size"`
	LastBlockSize uint64          `json:"last_block_size"`
	Hashes        []wireBlockHash `json:"hashes"`
}

func toWireSignature(sig rsync.Signature) wireSignature {
	w := wireSignature{
		BlockSize:     sig.BlockSize,
		LastBlockSize: sig.LastBlockSize,
		Hashes:        make([]wireBlockHash, len(sig.Hashes)),
	}
	for i, h := range sig.Hashes {
		w.Hashes[i] = wireBlockHash{Weak: h.Weak, Strong: hex.EncodeToString(h.Strong[:])}
	}
	return w
}

// wireOp is the JSON-friendly shape of an rsync.Op: exactly one of Data or
// (Start, Count) is populated, matching the union Op itself represents.
type wireOp struct {
	Data  []byte `json:"data,omitempty"`
	Start uint64 `json:"start,omitempty"`
	Count uint64 `json:"count,omitempty"`
}

func fromWireOps(raw []byte) ([]rsync.Op, error) {
	var wireOps []wireOp
	if err := json.Unmarshal(raw, &wireOps); err != nil {
		return nil, err
	}
	ops := make([]rsync.Op, len(wireOps))
	for i, w := range wireOps {
		ops[i] = rsync.Op{Data: w.Data, Start: w.Start, Count: w.Count}
	}
	return ops, nil
}
