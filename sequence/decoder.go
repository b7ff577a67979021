// Package sequence reassembles and produces datablast transfers.
//
// A Decoder accumulates symbols of one transfer and rebuilds the file once
// every chunk is present and the bytes match the announced SHA3-256 digest.
// An Encoder produces the periodic symbol stream for one file.
package sequence

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/justapithecus/datablast/symbol"
)

// Info is the transfer identity established by the first accepted Meta.
type Info struct {
	SequenceID  uint8
	FileLength  uint64
	ChunkCount  uint64
	Hash        string
	FileName    string
	TotalFrames uint64
}

// Progress is a point-in-time summary of a Decoder.
type Progress struct {
	Active     bool
	SequenceID uint8
	Received   uint64
	Total      uint64
	Pending    uint64
	Duplicates uint64
	Conflicts  uint64
	Dropped    uint64
}

// Decoder reassembles one transfer.
//
// Before a Meta symbol arrives the decoder is Empty and buffers Content
// symbols per sequence id. The first valid Meta activates it: buffered
// chunks of the same id are merged, others are dropped and counted.
//
// Decoder is not safe for concurrent use.
type Decoder struct {
	active bool
	info   Info
	hash   [32]byte
	chunks map[uint64][]byte

	pending map[uint8]map[uint64][]byte

	duplicates uint64
	conflicts  uint64
	dropped    uint64
}

// NewDecoder returns an Empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		chunks:  make(map[uint64][]byte),
		pending: make(map[uint8]map[uint64][]byte),
	}
}

// Active reports whether a Meta symbol has been accepted.
func (d *Decoder) Active() bool {
	return d.active
}

// Info returns the transfer identity, or false while the decoder is Empty.
func (d *Decoder) Info() (Info, bool) {
	return d.info, d.active
}

// InsertText parses text and inserts the resulting symbol.
func (d *Decoder) InsertText(text string) error {
	s, err := symbol.Parse(text)
	if err != nil {
		return err
	}
	return d.Insert(s)
}

// Insert merges one symbol.
//
// Duplicates are accepted as no-ops. A rejected symbol returns an
// *InsertError (or a *symbol.MetaError for an invalid Meta) and leaves the
// decoder untouched.
func (d *Decoder) Insert(s symbol.Symbol) error {
	switch v := s.(type) {
	case symbol.Meta:
		return d.insertMeta(v)
	case symbol.Content:
		return d.insertContent(v)
	default:
		return fmt.Errorf("unsupported symbol type %T", s)
	}
}

func (d *Decoder) insertMeta(m symbol.Meta) error {
	if err := m.Validate(); err != nil {
		return err
	}
	hash, err := m.Hash()
	if err != nil {
		return err
	}

	if !d.active {
		d.activate(m, hash)
		return nil
	}

	if m.ContentLength[0] != d.info.FileLength || m.ContentLength[1] != d.info.ChunkCount {
		return &InsertError{
			Kind:       FileLenMismatch,
			SequenceID: d.info.SequenceID,
			Detail:     fmt.Sprintf("have [%d %d], got %v", d.info.FileLength, d.info.ChunkCount, m.ContentLength),
		}
	}
	if m.SequenceID != d.info.SequenceID {
		return &InsertError{
			Kind:       WrongSequenceID,
			SequenceID: d.info.SequenceID,
			Detail:     fmt.Sprintf("got %02x", m.SequenceID),
		}
	}
	if hash != d.hash {
		return &InsertError{Kind: HashMismatch, SequenceID: d.info.SequenceID}
	}
	if m.FileName != d.info.FileName {
		return &InsertError{
			Kind:       FileNameMismatch,
			SequenceID: d.info.SequenceID,
			Detail:     fmt.Sprintf("have %q, got %q", d.info.FileName, m.FileName),
		}
	}
	return nil
}

func (d *Decoder) activate(m symbol.Meta, hash [32]byte) {
	d.active = true
	d.hash = hash
	d.info = Info{
		SequenceID:  m.SequenceID,
		FileLength:  m.ContentLength[0],
		ChunkCount:  m.ContentLength[1],
		Hash:        hex.EncodeToString(hash[:]),
		FileName:    m.FileName,
		TotalFrames: m.TotalFrames,
	}
	for id, bucket := range d.pending {
		if id == m.SequenceID {
			for idx, data := range bucket {
				d.chunks[idx] = data
			}
			continue
		}
		d.dropped += uint64(len(bucket))
	}
	d.pending = make(map[uint8]map[uint64][]byte)
}

func (d *Decoder) insertContent(c symbol.Content) error {
	target := d.chunks
	if !d.active {
		target = d.pending[c.SequenceID]
		if target == nil {
			target = make(map[uint64][]byte)
			d.pending[c.SequenceID] = target
		}
	} else if c.SequenceID != d.info.SequenceID {
		return &InsertError{
			Kind:       WrongSequenceID,
			SequenceID: d.info.SequenceID,
			ChunkIndex: c.ChunkIndex,
			Detail:     fmt.Sprintf("got %02x", c.SequenceID),
		}
	}

	existing, ok := target[c.ChunkIndex]
	if !ok {
		target[c.ChunkIndex] = bytes.Clone(c.Data)
		return nil
	}
	if !bytes.Equal(existing, c.Data) {
		d.conflicts++
		return &InsertError{
			Kind:       ChunkContentMismatch,
			SequenceID: c.SequenceID,
			ChunkIndex: c.ChunkIndex,
		}
	}
	d.duplicates++
	return nil
}

// Complete reports whether every announced chunk index is present.
// It does not hash; TryAssemble still decides success.
func (d *Decoder) Complete() bool {
	if !d.active || uint64(len(d.chunks)) < d.info.ChunkCount {
		return false
	}
	for i := range d.info.ChunkCount {
		if _, ok := d.chunks[i]; !ok {
			return false
		}
	}
	return true
}

// Missing lists absent chunk indices below the announced chunk count.
func (d *Decoder) Missing() []uint64 {
	if !d.active {
		return nil
	}
	var out []uint64
	for i := range d.info.ChunkCount {
		if _, ok := d.chunks[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

// TryAssemble concatenates the stored chunks in index order and verifies the
// digest. It never mutates the decoder, so it may be called after every
// insert.
//
// Errors are *CollectError: DiscontinuousContentIDs while chunks are missing
// (including the Empty state and a missing tail) or while chunks beyond the
// announced count are held, AssembledHashMismatch when the complete byte
// stream does not match.
func (d *Decoder) TryAssemble() ([]byte, error) {
	if !d.active {
		return nil, &CollectError{Kind: DiscontinuousContentIDs, Msg: "no meta symbol received"}
	}
	if missing := d.Missing(); len(missing) > 0 {
		return nil, &CollectError{Kind: DiscontinuousContentIDs, Missing: missing}
	}
	if extra := uint64(len(d.chunks)) - d.info.ChunkCount; extra > 0 {
		return nil, &CollectError{
			Kind: DiscontinuousContentIDs,
			Msg:  fmt.Sprintf("%d chunks beyond announced count %d", extra, d.info.ChunkCount),
		}
	}

	var size int
	for _, c := range d.chunks {
		size += len(c)
	}
	out := make([]byte, 0, size)
	for i := range d.info.ChunkCount {
		out = append(out, d.chunks[i]...)
	}
	if symbol.Sum(out) != d.hash {
		return nil, &CollectError{
			Kind: AssembledHashMismatch,
			Msg:  fmt.Sprintf("assembled %d bytes, want sha3 %s", len(out), d.info.Hash),
		}
	}
	return out, nil
}

// Progress summarises the decoder.
func (d *Decoder) Progress() Progress {
	p := Progress{
		Active:     d.active,
		SequenceID: d.info.SequenceID,
		Received:   uint64(len(d.chunks)),
		Total:      d.info.ChunkCount,
		Duplicates: d.duplicates,
		Conflicts:  d.conflicts,
		Dropped:    d.dropped,
	}
	for _, bucket := range d.pending {
		p.Pending += uint64(len(bucket))
	}
	return p
}
