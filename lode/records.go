package lode

import (
	"encoding/json"
	"time"

	"github.com/justapithecus/datablast/metrics"
	"github.com/justapithecus/datablast/receiver"
)

// RecordKind discriminator values. record_kind is also a partition key.
const (
	RecordKindTransfer = "transfer"
	RecordKindMetrics  = "metrics"
)

// TransferRecord is the stored form of a completed transfer.
type TransferRecord struct {
	RecordKind      string `json:"record_kind" yaml:"record_kind"`
	SessionID       string `json:"session_id" yaml:"session_id"`
	Day             string `json:"day" yaml:"day"`
	Source          string `json:"source" yaml:"source"`
	SequenceID      uint8  `json:"sequence_id" yaml:"sequence_id"`
	FileName        string `json:"file_name" yaml:"file_name"`
	FileLength      int64  `json:"file_length" yaml:"file_length"`
	ChunkCount      int64  `json:"chunk_count" yaml:"chunk_count"`
	SHA3            string `json:"sha3" yaml:"sha3"`
	StoragePath     string `json:"storage_path" yaml:"storage_path"`
	SymbolsReceived int64  `json:"symbols_received" yaml:"symbols_received"`
	StartedAt       string `json:"started_at" yaml:"started_at"`
	CompletedAt     string `json:"completed_at" yaml:"completed_at"`
	DurationMS      int64  `json:"duration_ms" yaml:"duration_ms"`
}

// toTransferRecordMap converts a Transfer to a map for Lode storage.
// Lode HiveLayout requires records as map[string]any.
func toTransferRecordMap(t *receiver.Transfer, storagePath string, cfg Config) map[string]any {
	return map[string]any{
		"record_kind":      RecordKindTransfer,
		"session_id":       cfg.SessionID,
		"day":              cfg.Day,
		"source":           cfg.Source,
		"sequence_id":      int64(t.SequenceID),
		"file_name":        t.FileName,
		"file_length":      int64(len(t.Data)),
		"chunk_count":      int64(t.ChunkCount),
		"sha3":             t.Hash,
		"storage_path":     storagePath,
		"symbols_received": t.SymbolsReceived,
		"started_at":       t.StartedAt.UTC().Format(time.RFC3339Nano),
		"completed_at":     t.CompletedAt.UTC().Format(time.RFC3339Nano),
		"duration_ms":      t.Duration().Milliseconds(),
	}
}

// transferRecordFromMap decodes a stored transfer record.
// Returns false for records of any other kind.
func transferRecordFromMap(m map[string]any) (TransferRecord, bool) {
	if toString(m["record_kind"]) != RecordKindTransfer {
		return TransferRecord{}, false
	}
	return TransferRecord{
		RecordKind:      RecordKindTransfer,
		SessionID:       toString(m["session_id"]),
		Day:             toString(m["day"]),
		Source:          toString(m["source"]),
		SequenceID:      uint8(toInt64(m["sequence_id"])),
		FileName:        toString(m["file_name"]),
		FileLength:      toInt64(m["file_length"]),
		ChunkCount:      toInt64(m["chunk_count"]),
		SHA3:            toString(m["sha3"]),
		StoragePath:     toString(m["storage_path"]),
		SymbolsReceived: toInt64(m["symbols_received"]),
		StartedAt:       toString(m["started_at"]),
		CompletedAt:     toString(m["completed_at"]),
		DurationMS:      toInt64(m["duration_ms"]),
	}, true
}

// toMetricsRecordMap converts a metrics snapshot to a map for Lode storage.
func toMetricsRecordMap(s metrics.Snapshot, cfg Config, at time.Time) map[string]any {
	return map[string]any{
		"record_kind": RecordKindMetrics,
		"session_id":  cfg.SessionID,
		"day":         cfg.Day,
		"ts":          at.UTC().Format(time.RFC3339Nano),

		"symbols_received_total":      s.SymbolsReceived,
		"parse_errors_total":          s.ParseErrors,
		"parse_errors_by_kind":        s.ParseErrorsByKind,
		"meta_accepted_total":         s.MetaAccepted,
		"content_accepted_total":      s.ContentAccepted,
		"duplicates_total":            s.Duplicates,
		"insert_rejected_total":       s.InsertRejected,
		"rejected_by_kind":            s.RejectedByKind,
		"buffered_dropped_total":      s.BufferedDropped,
		"assemble_attempts_total":     s.AssembleAttempts,
		"assemble_incomplete_total":   s.AssembleIncomplete,
		"integrity_failures_total":    s.IntegrityFailures,
		"transfers_completed_total":   s.TransfersCompleted,
		"bytes_assembled_total":       s.BytesAssembled,
		"storage_write_success_total": s.StorageWriteSuccess,
		"storage_write_failure_total": s.StorageWriteFailure,
		"publish_success_total":       s.PublishSuccess,
		"publish_failure_total":       s.PublishFailure,
		"checkpoint_saves_total":      s.CheckpointSaves,

		"source":          s.Source,
		"storage_backend": s.StorageBackend,
		"adapter":         s.Adapter,
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toInt64 converts a decoded JSON number to int64.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
