package receiver

import (
	"maps"
	"slices"
)

// Sequence states reported by Report.
const (
	StatePending  = "pending"
	StateActive   = "active"
	StateComplete = "complete"
	StateFailed   = "failed"
)

// SequenceReport summarises one transfer seen by the receiver.
type SequenceReport struct {
	SequenceID uint8    `json:"seq_id" yaml:"seq_id"`
	State      string   `json:"state" yaml:"state"`
	FileName   string   `json:"name,omitempty" yaml:"name,omitempty"`
	FileLength uint64   `json:"file_length" yaml:"file_length"`
	Hash       string   `json:"sha3,omitempty" yaml:"sha3,omitempty"`
	Received   uint64   `json:"received" yaml:"received"`
	Total      uint64   `json:"total" yaml:"total"`
	Missing    []uint64 `json:"missing,omitempty" yaml:"missing,omitempty"`
	Duplicates uint64   `json:"duplicates" yaml:"duplicates"`
	Conflicts  uint64   `json:"conflicts" yaml:"conflicts"`
	Symbols    int64    `json:"symbols" yaml:"symbols"`
}

// Percent returns received/total as a percentage. A transfer with no
// chunks is 100% once active.
func (s SequenceReport) Percent() float64 {
	if s.Total == 0 {
		if s.State == StatePending {
			return 0
		}
		return 100
	}
	return float64(s.Received) * 100 / float64(s.Total)
}

func reportFor(id uint8, tr *tracked) SequenceReport {
	p := tr.dec.Progress()
	rep := SequenceReport{
		SequenceID: id,
		State:      StatePending,
		Received:   p.Received + p.Pending,
		Total:      p.Total,
		Duplicates: p.Duplicates,
		Conflicts:  p.Conflicts,
		Symbols:    tr.symbols,
	}
	if info, ok := tr.dec.Info(); ok {
		rep.State = StateActive
		rep.FileName = info.FileName
		rep.FileLength = info.FileLength
		rep.Hash = info.Hash
		rep.Missing = tr.dec.Missing()
	}
	return rep
}

// Report lists every transfer seen so far, ordered by sequence id with
// failed attempts last.
func (r *Receiver) Report() []SequenceReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID := make(map[uint8]SequenceReport, len(r.active)+len(r.completed))
	for id, rep := range r.completed {
		byID[id] = rep
	}
	for id, tr := range r.active {
		byID[id] = reportFor(id, tr)
	}

	out := make([]SequenceReport, 0, len(byID)+len(r.failed))
	for _, id := range slices.Sorted(maps.Keys(byID)) {
		out = append(out, byID[id])
	}
	return append(out, r.failed...)
}

// Completed returns the number of verified transfers.
func (r *Receiver) Completed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Failed returns the number of transfers discarded after an integrity failure.
func (r *Receiver) Failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failed)
}
