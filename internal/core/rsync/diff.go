package rsync

import "crypto/sha256"

// Op is one delta instruction. A Copy op (Data == nil) reproduces Count
// blocks of the base starting at block index Start. A literal op carries
// bytes verbatim that don't match any base block.
type Op struct {
	Data  []byte
	Start uint64
	Count uint64
}

type blockRef struct {
	index  uint64
	strong [sha256.Size]byte
}

// Diff computes the delta that transforms the data described by sig into
// target. Applying the result to the bytes sig was computed from (via
// Apply) reproduces target exactly.
func Diff(sig Signature, target []byte) []Op {
	if len(sig.Hashes) == 0 {
		return literalOps(target)
	}

	index := make(map[uint32][]blockRef, len(sig.Hashes))
	for i, h := range sig.Hashes {
		index[h.Weak] = append(index[h.Weak], blockRef{index: uint64(i), strong: h.Strong})
	}

	blockSize := sig.BlockSize
	n := uint64(len(target))

	var ops []Op
	var pendingStart, pendingCount uint64
	var literal []byte

	flushCopy := func() {
		if pendingCount > 0 {
			ops = append(ops, Op{Start: pendingStart, Count: pendingCount})
			pendingCount = 0
		}
	}
	flushLiteral := func() {
		for len(literal) > 0 {
			chunk := len(literal)
			if chunk > maxOpDataSize {
				chunk = maxOpDataSize
			}
			ops = append(ops, Op{Data: append([]byte(nil), literal[:chunk]...)})
			literal = literal[chunk:]
		}
		literal = nil
	}
	appendCopy := func(idx uint64) {
		flushLiteral()
		if pendingCount > 0 && pendingStart+pendingCount == idx {
			pendingCount++
			return
		}
		flushCopy()
		pendingStart, pendingCount = idx, 1
	}

	if n == 0 {
		return nil
	}

	windowStart := uint64(0)
	windowLen := blockSize
	if windowLen > n {
		windowLen = n
	}
	r1, r2 := windowSums(target[windowStart:windowStart+windowLen], blockSize)

	for windowStart < n {
		matched := false

		if windowLen == blockSize {
			weak := r1 + weakMod*r2
			if refs, ok := index[weak]; ok {
				strong := sha256.Sum256(target[windowStart : windowStart+windowLen])
				for _, ref := range refs {
					if ref.strong == strong {
						appendCopy(ref.index)
						windowStart += windowLen
						matched = true
						break
					}
				}
			}
		}

		if !matched {
			// no match at this position: emit one literal byte and slide by one
			literal = append(literal, target[windowStart])
			windowStart++
		}

		if windowStart >= n {
			break
		}

		windowLen = blockSize
		if windowStart+windowLen > n {
			windowLen = n - windowStart
		}

		if matched || windowLen != blockSize {
			r1, r2 = windowSums(target[windowStart:windowStart+windowLen], blockSize)
		} else {
			// slide the previous full-size window forward by one byte
			out := target[windowStart-1]
			in := target[windowStart+windowLen-1]
			_, r1, r2 = rollWeakHash(r1, r2, uint32(blockSize), out, in)
		}
	}

	flushLiteral()
	flushCopy()
	return ops
}

// windowSums computes the two rolling-hash components for a window,
// weighting positions against the configured blockSize (not the window's
// own length) so short trailing windows hash consistently with how
// ComputeSignature hashes a short trailing block.
func windowSums(window []byte, blockSize uint64) (uint32, uint32) {
	var r1, r2 uint32
	for i, b := range window {
		r1 += uint32(b)
		r2 += (uint32(blockSize) - uint32(i)) * uint32(b)
	}
	return r1 % weakMod, r2 % weakMod
}

func literalOps(data []byte) []Op {
	var ops []Op
	for len(data) > 0 {
		n := len(data)
		if n > maxOpDataSize {
			n = maxOpDataSize
		}
		ops = append(ops, Op{Data: append([]byte(nil), data[:n]...)})
		data = data[n:]
	}
	return ops
}
