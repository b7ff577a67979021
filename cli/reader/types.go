// Package reader provides the read-side data access layer for the datablast CLI.
//
// Read-only commands (inspect, parse, stats) build their payloads here so
// that table, JSON, YAML and TUI rendering all share one shape.
package reader

import "github.com/justapithecus/datablast/receiver"

// Symbol type names reported by ParseSymbol.
const (
	SymbolMeta    = "meta"
	SymbolContent = "content"
	SymbolInvalid = "invalid"
)

// InspectCaptureResponse summarises a capture file.
type InspectCaptureResponse struct {
	Path              string                    `json:"path" yaml:"path"`
	Lines             int64                     `json:"lines" yaml:"lines"`
	MetaSymbols       int64                     `json:"meta_symbols" yaml:"meta_symbols"`
	ContentSymbols    int64                     `json:"content_symbols" yaml:"content_symbols"`
	ParseErrors       int64                     `json:"parse_errors" yaml:"parse_errors"`
	ParseErrorsByKind map[string]int64          `json:"parse_errors_by_kind,omitempty" yaml:"parse_errors_by_kind,omitempty"`
	Rejected          int64                     `json:"rejected" yaml:"rejected"`
	RejectedByKind    map[string]int64          `json:"rejected_by_kind,omitempty" yaml:"rejected_by_kind,omitempty"`
	Dropped           int64                     `json:"dropped" yaml:"dropped"`
	Complete          int                       `json:"complete" yaml:"complete"`
	Failed            int                       `json:"failed" yaml:"failed"`
	Sequences         []receiver.SequenceReport `json:"sequences" yaml:"sequences"`
}

// ParseSymbolResponse describes a single symbol string.
type ParseSymbolResponse struct {
	Type         string  `json:"type" yaml:"type"`
	SequenceID   *uint8  `json:"seq_id,omitempty" yaml:"seq_id,omitempty"`
	ChunkIndex   *uint64 `json:"chunk_index,omitempty" yaml:"chunk_index,omitempty"`
	DataLength   *int    `json:"data_length,omitempty" yaml:"data_length,omitempty"`
	Version      *uint32 `json:"ver,omitempty" yaml:"ver,omitempty"`
	FileName     string  `json:"name,omitempty" yaml:"name,omitempty"`
	FileLength   *uint64 `json:"file_length,omitempty" yaml:"file_length,omitempty"`
	ChunkCount   *uint64 `json:"chunk_count,omitempty" yaml:"chunk_count,omitempty"`
	Hash         string  `json:"sha3,omitempty" yaml:"sha3,omitempty"`
	TotalFrames  *uint64 `json:"frames,omitempty" yaml:"frames,omitempty"`
	CurrentFrame *uint64 `json:"cur_frame,omitempty" yaml:"cur_frame,omitempty"`
	ErrorKind    string  `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error        string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// Valid reports whether the symbol parsed and validated.
func (r *ParseSymbolResponse) Valid() bool {
	return r.Error == ""
}

// MetricsSnapshot is a decoded metrics record.
type MetricsSnapshot struct {
	Ts        string `json:"ts" yaml:"ts"`
	SessionID string `json:"session_id" yaml:"session_id"`

	// Ingestion
	SymbolsReceived   int64            `json:"symbols_received" yaml:"symbols_received"`
	ParseErrors       int64            `json:"parse_errors" yaml:"parse_errors"`
	ParseErrorsByKind map[string]int64 `json:"parse_errors_by_kind,omitempty" yaml:"parse_errors_by_kind,omitempty"`
	MetaAccepted      int64            `json:"meta_accepted" yaml:"meta_accepted"`
	ContentAccepted   int64            `json:"content_accepted" yaml:"content_accepted"`
	Duplicates        int64            `json:"duplicates" yaml:"duplicates"`
	InsertRejected    int64            `json:"insert_rejected" yaml:"insert_rejected"`
	RejectedByKind    map[string]int64 `json:"rejected_by_kind,omitempty" yaml:"rejected_by_kind,omitempty"`
	BufferedDropped   int64            `json:"buffered_dropped" yaml:"buffered_dropped"`

	// Assembly
	AssembleAttempts   int64 `json:"assemble_attempts" yaml:"assemble_attempts"`
	AssembleIncomplete int64 `json:"assemble_incomplete" yaml:"assemble_incomplete"`
	IntegrityFailures  int64 `json:"integrity_failures" yaml:"integrity_failures"`
	TransfersCompleted int64 `json:"transfers_completed" yaml:"transfers_completed"`
	BytesAssembled     int64 `json:"bytes_assembled" yaml:"bytes_assembled"`

	// Output
	StorageWriteSuccess int64 `json:"storage_write_success" yaml:"storage_write_success"`
	StorageWriteFailure int64 `json:"storage_write_failure" yaml:"storage_write_failure"`
	PublishSuccess      int64 `json:"publish_success" yaml:"publish_success"`
	PublishFailure      int64 `json:"publish_failure" yaml:"publish_failure"`
	CheckpointSaves     int64 `json:"checkpoint_saves" yaml:"checkpoint_saves"`

	// Dimensions
	Source         string `json:"source" yaml:"source"`
	StorageBackend string `json:"storage_backend" yaml:"storage_backend"`
	Adapter        string `json:"adapter,omitempty" yaml:"adapter,omitempty"`
}
