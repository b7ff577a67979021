package sequence

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/justapithecus/datablast/symbol"
)

// Config controls symbol sizing and emission cadence.
type Config struct {
	// PersistEachSymbolForFrames is how many consecutive frames show the
	// same symbol.
	PersistEachSymbolForFrames int `yaml:"persist_each_symbol_for_frames" json:"persist_each_symbol_for_frames"`
	// MaxBytesPerDataSymbol caps the raw chunk size before base64.
	MaxBytesPerDataSymbol int `yaml:"max_bytes_per_data_symbol" json:"max_bytes_per_data_symbol"`
	// DataSymbolsBetweenMetaSymbols is how many Content symbols follow each
	// Meta symbol.
	DataSymbolsBetweenMetaSymbols int `yaml:"data_symbols_between_meta_symbols" json:"data_symbols_between_meta_symbols"`
}

// DefaultConfig returns settings that fit a version 25 QR code at medium
// error correction.
func DefaultConfig() Config {
	return Config{
		PersistEachSymbolForFrames:    3,
		MaxBytesPerDataSymbol:         512,
		DataSymbolsBetweenMetaSymbols: 10,
	}
}

// Validate checks that every option is at least 1.
func (c Config) Validate() error {
	var errs []error
	if c.PersistEachSymbolForFrames < 1 {
		errs = append(errs, fmt.Errorf("persist_each_symbol_for_frames must be >= 1, got %d", c.PersistEachSymbolForFrames))
	}
	if c.MaxBytesPerDataSymbol < 1 {
		errs = append(errs, fmt.Errorf("max_bytes_per_data_symbol must be >= 1, got %d", c.MaxBytesPerDataSymbol))
	}
	if c.DataSymbolsBetweenMetaSymbols < 1 {
		errs = append(errs, fmt.Errorf("data_symbols_between_meta_symbols must be >= 1, got %d", c.DataSymbolsBetweenMetaSymbols))
	}
	return errors.Join(errs...)
}

// Option configures an Encoder.
type Option func(*encoderOptions)

type encoderOptions struct {
	sequenceID *uint8
	random     io.Reader
}

// WithSequenceID fixes the sequence id instead of drawing a random one.
func WithSequenceID(id uint8) Option {
	return func(o *encoderOptions) { o.sequenceID = &id }
}

// WithRandom sets the entropy source for the sequence id.
func WithRandom(r io.Reader) Option {
	return func(o *encoderOptions) { o.random = r }
}

// Encoder produces the symbol stream for one file.
//
// One pass is a run of groups, each a Meta symbol followed by up to
// DataSymbolsBetweenMetaSymbols Content symbols in ascending chunk order.
// After the last chunk the pass starts over at chunk 0. Every symbol is
// shown for PersistEachSymbolForFrames consecutive frames.
//
// An Encoder is immutable after construction and safe for concurrent use.
type Encoder struct {
	cfg        Config
	name       string
	data       []byte
	id         uint8
	chunkCount uint64
	groups     uint64

	hashOnce sync.Once
	hash     string
}

// NewEncoder validates cfg and prepares an encoder for data.
func NewEncoder(name string, data []byte, cfg Config, opts ...Option) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoder config: %w", err)
	}
	o := encoderOptions{random: rand.Reader}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Encoder{
		cfg:  cfg,
		name: name,
		data: bytes.Clone(data),
	}
	if o.sequenceID != nil {
		e.id = *o.sequenceID
	} else {
		var b [1]byte
		if _, err := io.ReadFull(o.random, b[:]); err != nil {
			return nil, fmt.Errorf("draw sequence id: %w", err)
		}
		e.id = b[0]
	}

	k := uint64(cfg.MaxBytesPerDataSymbol)
	e.chunkCount = (uint64(len(e.data)) + k - 1) / k
	d := uint64(cfg.DataSymbolsBetweenMetaSymbols)
	e.groups = max(1, (e.chunkCount+d-1)/d)
	return e, nil
}

// SequenceID returns the transfer's sequence id.
func (e *Encoder) SequenceID() uint8 { return e.id }

// Name returns the announced file name.
func (e *Encoder) Name() string { return e.name }

// Config returns the encoder settings.
func (e *Encoder) Config() Config { return e.cfg }

// FileLength returns the file size in bytes.
func (e *Encoder) FileLength() uint64 { return uint64(len(e.data)) }

// ChunkCount returns ceil(file length / MaxBytesPerDataSymbol).
func (e *Encoder) ChunkCount() uint64 { return e.chunkCount }

// SymbolsPerPass returns the number of distinct symbol slots in one pass.
func (e *Encoder) SymbolsPerPass() uint64 { return e.chunkCount + e.groups }

// FramesPerPass returns SymbolsPerPass times the persistence.
func (e *Encoder) FramesPerPass() uint64 {
	return e.SymbolsPerPass() * uint64(e.cfg.PersistEachSymbolForFrames)
}

// Hash returns the lowercase hex SHA3-256 of the file, computed once.
func (e *Encoder) Hash() string {
	e.hashOnce.Do(func() {
		e.hash = symbol.HashHex(e.data)
	})
	return e.hash
}

// Chunk returns Content symbol i, or false when i is out of range.
func (e *Encoder) Chunk(i uint64) (symbol.Content, bool) {
	if i >= e.chunkCount {
		return symbol.Content{}, false
	}
	k := uint64(e.cfg.MaxBytesPerDataSymbol)
	start := i * k
	end := min(start+k, uint64(len(e.data)))
	return symbol.Content{
		SequenceID: e.id,
		ChunkIndex: i,
		Data:       e.data[start:end],
	}, true
}

// Meta returns the Meta symbol placed at pass position pos.
func (e *Encoder) Meta(pos uint64) symbol.Meta {
	persist := uint64(e.cfg.PersistEachSymbolForFrames)
	return symbol.Meta{
		Version:       symbol.Version,
		SequenceID:    e.id,
		TotalFrames:   e.FramesPerPass(),
		CurrentFrame:  pos * persist,
		ContentLength: []uint64{e.FileLength(), e.chunkCount},
		ContentHash:   e.Hash(),
		FileName:      e.name,
	}
}

// at returns the symbol at pass position pos (pos < SymbolsPerPass).
func (e *Encoder) at(pos uint64) symbol.Symbol {
	d := uint64(e.cfg.DataSymbolsBetweenMetaSymbols)
	group, off := pos/(d+1), pos%(d+1)
	if off == 0 {
		return e.Meta(pos)
	}
	c, _ := e.Chunk(group*d + off - 1)
	return c
}

// SymbolAt returns the symbol displayed at absolute frame number frame.
// The stream is periodic with period FramesPerPass.
func (e *Encoder) SymbolAt(frame uint64) symbol.Symbol {
	pos := (frame / uint64(e.cfg.PersistEachSymbolForFrames)) % e.SymbolsPerPass()
	return e.at(pos)
}

// Pass yields each symbol slot of one pass once, without persistence.
func (e *Encoder) Pass() iter.Seq[symbol.Symbol] {
	return func(yield func(symbol.Symbol) bool) {
		for pos := range e.SymbolsPerPass() {
			if !yield(e.at(pos)) {
				return
			}
		}
	}
}

// Frames yields (frame number, symbol) forever, persistence included.
func (e *Encoder) Frames() iter.Seq2[uint64, symbol.Symbol] {
	return func(yield func(uint64, symbol.Symbol) bool) {
		for f := uint64(0); ; f++ {
			if !yield(f, e.SymbolAt(f)) {
				return
			}
		}
	}
}

// Cursor returns a new cursor positioned at frame 0.
func (e *Encoder) Cursor() *Cursor {
	return &Cursor{enc: e}
}

// Cursor walks the frame stream of an Encoder. Each consumer owns its
// cursor; cursors are not safe for concurrent use.
type Cursor struct {
	enc   *Encoder
	frame uint64
}

// Next returns the symbol for the current frame and advances by one.
func (c *Cursor) Next() symbol.Symbol {
	s := c.enc.SymbolAt(c.frame)
	c.frame++
	return s
}

// Position returns the next frame number Next will produce.
func (c *Cursor) Position() uint64 { return c.frame }

// Seek moves the cursor to frame.
func (c *Cursor) Seek(frame uint64) { c.frame = frame }

// Reset moves the cursor back to frame 0.
func (c *Cursor) Reset() { c.frame = 0 }
