// Package receiver routes a captured symbol stream to per-transfer decoders.
//
// One capture stream may interleave several transfers. The Receiver keeps a
// sequence.Decoder per sequence id, assembles a transfer as soon as every
// chunk is present, and hands verified files to a completion callback.
//
// Bad symbols are never fatal: parse errors and rejected inserts are logged,
// counted and skipped. Only source failures and completion callback
// failures stop the receiver.
package receiver

import (
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/justapithecus/datablast/log"
	"github.com/justapithecus/datablast/metrics"
	"github.com/justapithecus/datablast/sequence"
	"github.com/justapithecus/datablast/source"
	"github.com/justapithecus/datablast/symbol"
)

// DefaultQueueSize is the capacity of the buffer between source and decoder.
const DefaultQueueSize = 256

// Transfer is a verified, reassembled file.
type Transfer struct {
	SequenceID      uint8
	FileName        string
	Hash            string
	ChunkCount      uint64
	Data            []byte
	SymbolsReceived int64
	StartedAt       time.Time
	CompletedAt     time.Time
}

// Duration returns the time between the first symbol and completion.
func (t *Transfer) Duration() time.Duration {
	return t.CompletedAt.Sub(t.StartedAt)
}

// CompleteFunc receives each verified transfer. A returned error stops Run.
type CompleteFunc func(ctx context.Context, t *Transfer) error

// Options configures a Receiver.
type Options struct {
	// OnComplete is called once per verified transfer. Optional.
	OnComplete CompleteFunc
	// StopAfterFirst ends Run after the first verified transfer.
	StopAfterFirst bool
	// QueueSize is the source buffer capacity (default 256).
	QueueSize int
	// Now overrides the clock (tests).
	Now func() time.Time
}

// ErrorKind classifies fatal receiver errors.
type ErrorKind int

const (
	// ErrorSource indicates the symbol source failed.
	ErrorSource ErrorKind = iota
	// ErrorComplete indicates the completion callback failed.
	ErrorComplete
)

// Error is returned by Run for fatal failures.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrorSource:
		return "symbol source failed: " + e.Err.Error()
	default:
		return "transfer completion failed: " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCompleteError reports whether err came from the completion callback.
func IsCompleteError(err error) bool {
	var rErr *Error
	return errors.As(err, &rErr) && rErr.Kind == ErrorComplete
}

type tracked struct {
	dec       *sequence.Decoder
	symbols   int64
	startedAt time.Time
}

// Receiver routes symbols to decoders. Ingest and Run must be driven from a
// single goroutine; Report, States and Completed may be called concurrently.
type Receiver struct {
	opts      Options
	logger    *log.Logger
	collector *metrics.Collector

	mu        sync.Mutex
	active    map[uint8]*tracked
	completed map[uint8]SequenceReport
	failed    []SequenceReport
	done      int
}

// New creates a Receiver. logger and collector may be nil.
func New(opts Options, logger *log.Logger, collector *metrics.Collector) *Receiver {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Receiver{
		opts:      opts,
		logger:    logger,
		collector: collector,
		active:    make(map[uint8]*tracked),
		completed: make(map[uint8]SequenceReport),
	}
}

// Run consumes src until it is exhausted, ctx is done, or (with
// StopAfterFirst) a transfer completes.
//
// Returns:
//   - nil: source exhausted, or first transfer done with StopAfterFirst
//   - ctx.Err(): context canceled
//   - *Error with Kind=ErrorSource: source failure
//   - *Error with Kind=ErrorComplete: completion callback failure
func (r *Receiver) Run(ctx context.Context, src source.Source) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan string, r.opts.QueueSize)
	errc := make(chan error, 1)
	go func() {
		defer close(queue)
		for {
			text, err := src.Next(runCtx)
			if err != nil {
				if !errors.Is(err, io.EOF) && runCtx.Err() == nil {
					errc <- err
				}
				return
			}
			select {
			case queue <- text:
			case <-runCtx.Done():
				return
			}
		}
	}()

	for text := range queue {
		done, err := r.Ingest(ctx, text)
		if err != nil {
			return err
		}
		if done && r.opts.StopAfterFirst {
			return nil
		}
	}

	select {
	case err := <-errc:
		r.logger.Error("symbol source failed", map[string]any{"error": err.Error()})
		return &Error{Kind: ErrorSource, Err: err}
	default:
	}
	return ctx.Err()
}

// Ingest processes one captured string and reports whether it completed a
// transfer. The only error it returns comes from the completion callback.
func (r *Receiver) Ingest(ctx context.Context, text string) (bool, error) {
	r.collector.IncSymbolReceived()

	s, err := symbol.Parse(text)
	if err != nil {
		kind := symbol.ErrorKind(err)
		r.collector.IncParseError(kind)
		r.logger.Debug("symbol discarded", map[string]any{
			"kind":  kind,
			"error": err.Error(),
		})
		return false, nil
	}

	t := r.insert(s)
	if t == nil {
		return false, nil
	}

	r.logger.Info("transfer complete", map[string]any{
		"seq_id":      t.SequenceID,
		"name":        t.FileName,
		"bytes":       len(t.Data),
		"chunks":      t.ChunkCount,
		"symbols":     t.SymbolsReceived,
		"duration_ms": t.Duration().Milliseconds(),
	})
	if r.opts.OnComplete != nil {
		if err := r.opts.OnComplete(ctx, t); err != nil {
			r.logger.Error("transfer completion failed", map[string]any{
				"seq_id": t.SequenceID,
				"name":   t.FileName,
				"error":  err.Error(),
			})
			return true, &Error{Kind: ErrorComplete, Err: err}
		}
	}
	return true, nil
}

// insert routes s to its decoder and returns a transfer when s completed one.
func (r *Receiver) insert(s symbol.Symbol) *Transfer {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := s.ID()
	if done, ok := r.completed[id]; ok {
		m, isMeta := s.(symbol.Meta)
		if !isMeta || strings.EqualFold(m.ContentHash, done.Hash) {
			r.collector.AddDuplicates(1)
			return nil
		}
		// A different file reuses the id: start over.
		r.logger.Warn("sequence id reused by a new transfer", map[string]any{
			"seq_id":   id,
			"previous": done.FileName,
			"name":     m.FileName,
		})
		delete(r.completed, id)
	}

	tr := r.active[id]
	if tr == nil {
		tr = &tracked{dec: sequence.NewDecoder(), startedAt: r.opts.Now()}
		r.active[id] = tr
	}
	tr.symbols++

	before := tr.dec.Progress()
	if err := tr.dec.Insert(s); err != nil {
		r.reject(id, err)
		return nil
	}
	after := tr.dec.Progress()
	switch s.(type) {
	case symbol.Meta:
		r.collector.IncMetaAccepted()
	case symbol.Content:
		r.collector.IncContentAccepted()
	}
	r.collector.AddDuplicates(int64(after.Duplicates - before.Duplicates))
	if dropped := after.Dropped - before.Dropped; dropped > 0 {
		r.collector.AddBufferedDropped(int64(dropped))
		r.logger.Warn("buffered chunks dropped", map[string]any{"seq_id": id, "count": dropped})
	}

	if !tr.dec.Complete() {
		return nil
	}
	return r.assemble(id, tr)
}

func (r *Receiver) reject(id uint8, err error) {
	kind := "other"
	var ie *sequence.InsertError
	var me *symbol.MetaError
	switch {
	case errors.As(err, &ie):
		kind = ie.Kind.String()
	case errors.As(err, &me):
		kind = symbol.ErrorKind(me)
	}
	r.collector.IncInsertRejected(kind)
	r.logger.Warn("symbol rejected", map[string]any{
		"seq_id": id,
		"kind":   kind,
		"error":  err.Error(),
	})
}

func (r *Receiver) assemble(id uint8, tr *tracked) *Transfer {
	r.collector.IncAssembleAttempt()
	data, err := tr.dec.TryAssemble()
	info, _ := tr.dec.Info()
	if err != nil {
		// Every announced chunk is present here, so a discontinuity can only
		// come from chunks past the announced count. More symbols cannot
		// remove them.
		var ce *sequence.CollectError
		if errors.As(err, &ce) && ce.Retryable() && !tr.dec.Complete() {
			r.collector.IncAssembleIncomplete()
			return nil
		}
		r.collector.IncIntegrityFailure()
		r.logger.Error("transfer failed integrity check, discarding", map[string]any{
			"seq_id": id,
			"name":   info.FileName,
			"error":  err.Error(),
		})
		rep := reportFor(id, tr)
		rep.State = StateFailed
		r.failed = append(r.failed, rep)
		delete(r.active, id)
		return nil
	}

	rep := reportFor(id, tr)
	rep.State = StateComplete
	r.completed[id] = rep
	r.done++
	delete(r.active, id)
	r.collector.IncTransferCompleted(int64(len(data)))

	return &Transfer{
		SequenceID:      id,
		FileName:        info.FileName,
		Hash:            info.Hash,
		ChunkCount:      info.ChunkCount,
		Data:            data,
		SymbolsReceived: tr.symbols,
		StartedAt:       tr.startedAt,
		CompletedAt:     r.opts.Now(),
	}
}

// States returns decoder states of in-progress transfers, ordered by id.
func (r *Receiver) States() []sequence.State {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]sequence.State, 0, len(r.active))
	for _, id := range slices.Sorted(maps.Keys(r.active)) {
		out = append(out, r.active[id].dec.State())
	}
	return out
}

// Restore installs decoders from checkpointed states. An Empty state is
// keyed by its single buffered sequence id; Empty states buffering several
// ids are split per id.
func (r *Receiver) Restore(states []sequence.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, st := range states {
		if st.Active {
			dec, err := sequence.Restore(st)
			if err != nil {
				return err
			}
			r.active[st.Info.SequenceID] = &tracked{dec: dec, startedAt: r.opts.Now()}
			continue
		}
		for id, bucket := range st.Pending {
			dec, err := sequence.Restore(sequence.State{
				Pending: map[uint8]map[uint64][]byte{id: bucket},
			})
			if err != nil {
				return err
			}
			r.active[id] = &tracked{dec: dec, startedAt: r.opts.Now()}
		}
	}
	return nil
}
