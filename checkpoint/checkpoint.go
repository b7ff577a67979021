package checkpoint

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/justapithecus/datablast/iox"
	"github.com/justapithecus/datablast/sequence"
)

// Save writes states as a checkpoint stream.
// Chunks are written in ascending index order so equal states produce
// equal bytes.
func Save(w io.Writer, states []sequence.State) error {
	bw := bufio.NewWriter(w)
	enc := NewFrameEncoder(bw)

	if err := enc.WriteFrame(&headerFrame{Type: HeaderType, Version: FormatVersion, Sequences: len(states)}); err != nil {
		return err
	}
	for _, st := range states {
		if err := saveState(enc, st); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func saveState(enc *FrameEncoder, st sequence.State) error {
	err := enc.WriteFrame(&sequenceFrame{
		Type:        SequenceType,
		Active:      st.Active,
		SequenceID:  st.Info.SequenceID,
		FileLength:  st.Info.FileLength,
		ChunkCount:  st.Info.ChunkCount,
		Hash:        st.Info.Hash,
		FileName:    st.Info.FileName,
		TotalFrames: st.Info.TotalFrames,
		Duplicates:  st.Duplicates,
		Conflicts:   st.Conflicts,
		Dropped:     st.Dropped,
	})
	if err != nil {
		return err
	}

	for _, idx := range slices.Sorted(maps.Keys(st.Chunks)) {
		if err := enc.WriteFrame(&chunkFrame{
			Type:       ChunkType,
			SequenceID: st.Info.SequenceID,
			Index:      idx,
			Data:       st.Chunks[idx],
		}); err != nil {
			return err
		}
	}
	for _, id := range slices.Sorted(maps.Keys(st.Pending)) {
		bucket := st.Pending[id]
		for _, idx := range slices.Sorted(maps.Keys(bucket)) {
			if err := enc.WriteFrame(&chunkFrame{
				Type:       ChunkType,
				Pending:    true,
				SequenceID: id,
				Index:      idx,
				Data:       bucket[idx],
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// maxSequences is the number of distinct one-byte sequence ids.
const maxSequences = 256

// Load reads a checkpoint stream written by Save.
func Load(r io.Reader) ([]sequence.State, error) {
	dec := NewFrameDecoder(bufio.NewReader(r))

	payload, err := dec.ReadFrame()
	if err == io.EOF {
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "checkpoint is empty"}
	}
	if err != nil {
		return nil, err
	}
	first, err := decodeFrame(payload)
	if err != nil {
		return nil, err
	}
	header, ok := first.(*headerFrame)
	if !ok {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "checkpoint does not start with a header frame"}
	}
	if header.Version != FormatVersion {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("unsupported checkpoint version %d", header.Version)}
	}

	if header.Sequences < 0 || header.Sequences > maxSequences {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("invalid sequence count %d", header.Sequences)}
	}

	states := make([]sequence.State, 0, header.Sequences)
	var cur *sequence.State
	for {
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		frame, err := decodeFrame(payload)
		if err != nil {
			return nil, err
		}

		switch f := frame.(type) {
		case *sequenceFrame:
			states = append(states, sequence.State{
				Active: f.Active,
				Info: sequence.Info{
					SequenceID:  f.SequenceID,
					FileLength:  f.FileLength,
					ChunkCount:  f.ChunkCount,
					Hash:        f.Hash,
					FileName:    f.FileName,
					TotalFrames: f.TotalFrames,
				},
				Chunks:     make(map[uint64][]byte),
				Pending:    make(map[uint8]map[uint64][]byte),
				Duplicates: f.Duplicates,
				Conflicts:  f.Conflicts,
				Dropped:    f.Dropped,
			})
			cur = &states[len(states)-1]
		case *chunkFrame:
			if cur == nil {
				return nil, &FrameError{Kind: FrameErrorDecode, Msg: "chunk frame before any sequence frame"}
			}
			if !f.Pending {
				cur.Chunks[f.Index] = f.Data
				continue
			}
			bucket := cur.Pending[f.SequenceID]
			if bucket == nil {
				bucket = make(map[uint64][]byte)
				cur.Pending[f.SequenceID] = bucket
			}
			bucket[f.Index] = f.Data
		case *headerFrame:
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: "unexpected second header frame"}
		}
	}

	if len(states) != header.Sequences {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  fmt.Sprintf("checkpoint declares %d sequences, found %d", header.Sequences, len(states)),
		}
	}
	return states, nil
}

// SaveFile writes a checkpoint to path atomically.
func SaveFile(path string, states []sequence.State) error {
	err := iox.WriteAtomic(path, func(w io.Writer) error {
		return Save(w, states)
	})
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a checkpoint from path. A missing file yields an error
// matching fs.ErrNotExist.
func LoadFile(path string) ([]sequence.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer iox.DiscardClose(f)

	states, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", path, err)
	}
	return states, nil
}
