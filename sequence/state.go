package sequence

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"maps"
)

// State is a detached copy of a Decoder, used for checkpoints.
type State struct {
	Active     bool
	Info       Info
	Chunks     map[uint64][]byte
	Pending    map[uint8]map[uint64][]byte
	Duplicates uint64
	Conflicts  uint64
	Dropped    uint64
}

// State returns a deep copy of the decoder.
func (d *Decoder) State() State {
	st := State{
		Active:     d.active,
		Info:       d.info,
		Chunks:     cloneChunks(d.chunks),
		Pending:    make(map[uint8]map[uint64][]byte, len(d.pending)),
		Duplicates: d.duplicates,
		Conflicts:  d.conflicts,
		Dropped:    d.dropped,
	}
	for id, bucket := range d.pending {
		st.Pending[id] = cloneChunks(bucket)
	}
	return st
}

// Restore rebuilds a Decoder from a State.
func Restore(st State) (*Decoder, error) {
	d := NewDecoder()
	d.duplicates = st.Duplicates
	d.conflicts = st.Conflicts
	d.dropped = st.Dropped

	if st.Active {
		if len(st.Info.Hash) != 64 {
			return nil, fmt.Errorf("restore sequence %02x: hash has length %d", st.Info.SequenceID, len(st.Info.Hash))
		}
		if _, err := hex.Decode(d.hash[:], []byte(st.Info.Hash)); err != nil {
			return nil, fmt.Errorf("restore sequence %02x: %w", st.Info.SequenceID, err)
		}
		d.active = true
		d.info = st.Info
		d.chunks = cloneChunks(st.Chunks)
		if len(st.Pending) > 0 {
			return nil, fmt.Errorf("restore sequence %02x: active state carries pending chunks", st.Info.SequenceID)
		}
		return d, nil
	}

	if len(st.Chunks) > 0 {
		return nil, fmt.Errorf("restore: empty state carries %d stored chunks", len(st.Chunks))
	}
	for id, bucket := range st.Pending {
		d.pending[id] = cloneChunks(bucket)
	}
	return d, nil
}

func cloneChunks(in map[uint64][]byte) map[uint64][]byte {
	out := make(map[uint64][]byte, len(in))
	for k, v := range maps.All(in) {
		out[k] = bytes.Clone(v)
	}
	return out
}
