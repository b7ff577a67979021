// Package metrics provides per-session receive metrics.
//
// The Collector accumulates counters while a receiver consumes a symbol
// stream. It is a leaf package with no internal dependencies; error kinds
// arrive as plain strings so callers keep their own classification.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Symbol intake
	SymbolsReceived   int64
	ParseErrors       int64
	ParseErrorsByKind map[string]int64
	MetaAccepted      int64
	ContentAccepted   int64
	Duplicates        int64
	InsertRejected    int64
	RejectedByKind    map[string]int64
	BufferedDropped   int64

	// Assembly
	AssembleAttempts   int64
	AssembleIncomplete int64
	IntegrityFailures  int64
	TransfersCompleted int64
	BytesAssembled     int64

	// Storage / publishing
	StorageWriteSuccess int64
	StorageWriteFailure int64
	PublishSuccess      int64
	PublishFailure      int64
	CheckpointSaves     int64

	// Dimensions (informational, set at construction)
	Source         string
	StorageBackend string
	Adapter        string
	SessionID      string
}

// Collector accumulates metrics during a single receive session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	symbolsReceived   int64
	parseErrors       int64
	parseErrorsByKind map[string]int64
	metaAccepted      int64
	contentAccepted   int64
	duplicates        int64
	insertRejected    int64
	rejectedByKind    map[string]int64
	bufferedDropped   int64

	assembleAttempts   int64
	assembleIncomplete int64
	integrityFailures  int64
	transfersCompleted int64
	bytesAssembled     int64

	storageWriteSuccess int64
	storageWriteFailure int64
	publishSuccess      int64
	publishFailure      int64
	checkpointSaves     int64

	source         string
	storageBackend string
	adapter        string
	sessionID      string
}

// NewCollector creates a Collector with dimension labels.
// Empty strings are allowed for dimensions that do not apply.
func NewCollector(source, storageBackend, adapter, sessionID string) *Collector {
	return &Collector{
		parseErrorsByKind: make(map[string]int64),
		rejectedByKind:    make(map[string]int64),
		source:            source,
		storageBackend:    storageBackend,
		adapter:           adapter,
		sessionID:         sessionID,
	}
}

// add must only be called on a non-nil collector.
func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Symbol intake ---

// IncSymbolReceived records one raw symbol string taken from the source.
func (c *Collector) IncSymbolReceived() {
	if c == nil {
		return
	}
	c.add(&c.symbolsReceived, 1)
}

// IncParseError records a symbol that failed to parse.
func (c *Collector) IncParseError(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.parseErrors++
	c.parseErrorsByKind[kind]++
	c.mu.Unlock()
}

// IncMetaAccepted records an accepted Meta symbol (including repeats).
func (c *Collector) IncMetaAccepted() {
	if c == nil {
		return
	}
	c.add(&c.metaAccepted, 1)
}

// IncContentAccepted records an accepted Content symbol (including repeats).
func (c *Collector) IncContentAccepted() {
	if c == nil {
		return
	}
	c.add(&c.contentAccepted, 1)
}

// AddDuplicates records Content symbols that repeated a stored chunk.
func (c *Collector) AddDuplicates(n int64) {
	if c == nil {
		return
	}
	c.add(&c.duplicates, n)
}

// IncInsertRejected records a symbol refused by a decoder.
func (c *Collector) IncInsertRejected(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.insertRejected++
	c.rejectedByKind[kind]++
	c.mu.Unlock()
}

// AddBufferedDropped records buffered chunks discarded on activation
// because they belonged to another sequence id.
func (c *Collector) AddBufferedDropped(n int64) {
	if c == nil {
		return
	}
	c.add(&c.bufferedDropped, n)
}

// --- Assembly ---

// IncAssembleAttempt records a TryAssemble call.
func (c *Collector) IncAssembleAttempt() {
	if c == nil {
		return
	}
	c.add(&c.assembleAttempts, 1)
}

// IncAssembleIncomplete records an assembly that found missing chunks.
func (c *Collector) IncAssembleIncomplete() {
	if c == nil {
		return
	}
	c.add(&c.assembleIncomplete, 1)
}

// IncIntegrityFailure records an assembly whose bytes failed the hash check.
func (c *Collector) IncIntegrityFailure() {
	if c == nil {
		return
	}
	c.add(&c.integrityFailures, 1)
}

// IncTransferCompleted records a verified file of size bytes.
func (c *Collector) IncTransferCompleted(size int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.transfersCompleted++
	c.bytesAssembled += size
	c.mu.Unlock()
}

// --- Storage / publishing ---
// Storage counters are per-call: one file write or one record batch each.

// IncStorageWriteSuccess records a successful storage write.
func (c *Collector) IncStorageWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.storageWriteSuccess, 1)
}

// IncStorageWriteFailure records a failed storage write.
func (c *Collector) IncStorageWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.storageWriteFailure, 1)
}

// IncPublishSuccess records a delivered adapter event.
func (c *Collector) IncPublishSuccess() {
	if c == nil {
		return
	}
	c.add(&c.publishSuccess, 1)
}

// IncPublishFailure records an adapter event that could not be delivered.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.add(&c.publishFailure, 1)
}

// IncCheckpointSave records a checkpoint written to disk.
func (c *Collector) IncCheckpointSave() {
	if c == nil {
		return
	}
	c.add(&c.checkpointSaves, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		SymbolsReceived:   c.symbolsReceived,
		ParseErrors:       c.parseErrors,
		ParseErrorsByKind: copyCounts(c.parseErrorsByKind),
		MetaAccepted:      c.metaAccepted,
		ContentAccepted:   c.contentAccepted,
		Duplicates:        c.duplicates,
		InsertRejected:    c.insertRejected,
		RejectedByKind:    copyCounts(c.rejectedByKind),
		BufferedDropped:   c.bufferedDropped,

		AssembleAttempts:   c.assembleAttempts,
		AssembleIncomplete: c.assembleIncomplete,
		IntegrityFailures:  c.integrityFailures,
		TransfersCompleted: c.transfersCompleted,
		BytesAssembled:     c.bytesAssembled,

		StorageWriteSuccess: c.storageWriteSuccess,
		StorageWriteFailure: c.storageWriteFailure,
		PublishSuccess:      c.publishSuccess,
		PublishFailure:      c.publishFailure,
		CheckpointSaves:     c.checkpointSaves,

		Source:         c.source,
		StorageBackend: c.storageBackend,
		Adapter:        c.adapter,
		SessionID:      c.sessionID,
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
