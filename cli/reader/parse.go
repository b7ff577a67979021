package reader

import (
	"errors"

	"github.com/justapithecus/datablast/symbol"
)

// ParseSymbol decodes one symbol string for display. Parse and validation
// failures are reported in the response, never returned.
func ParseSymbol(text string) *ParseSymbolResponse {
	s, err := symbol.Parse(text)
	if err != nil {
		return &ParseSymbolResponse{
			Type:      SymbolInvalid,
			ErrorKind: symbol.ErrorKind(err),
			Error:     err.Error(),
		}
	}

	switch s := s.(type) {
	case symbol.Meta:
		resp := &ParseSymbolResponse{
			Type:         SymbolMeta,
			SequenceID:   &s.SequenceID,
			Version:      &s.Version,
			FileName:     s.FileName,
			Hash:         s.ContentHash,
			TotalFrames:  &s.TotalFrames,
			CurrentFrame: &s.CurrentFrame,
		}
		if err := s.Validate(); err != nil {
			resp.ErrorKind = symbol.ErrorKind(err)
			resp.Error = err.Error()
			return resp
		}
		fileLength, chunkCount := s.FileLength(), s.ChunkCount()
		resp.FileLength = &fileLength
		resp.ChunkCount = &chunkCount
		return resp
	case symbol.Content:
		n := len(s.Data)
		return &ParseSymbolResponse{
			Type:       SymbolContent,
			SequenceID: &s.SequenceID,
			ChunkIndex: &s.ChunkIndex,
			DataLength: &n,
		}
	default:
		return &ParseSymbolResponse{Type: SymbolInvalid, ErrorKind: "other", Error: "unknown symbol type"}
	}
}

// ParseMetricsRecord converts a Lode record (map[string]any) to a MetricsSnapshot.
// Handles both int64 (direct writes) and float64 (JSON round-trips) for numeric fields.
func ParseMetricsRecord(record map[string]any) (*MetricsSnapshot, error) {
	if record == nil {
		return nil, errors.New("nil record")
	}

	snap := &MetricsSnapshot{
		Ts:        toString(record["ts"]),
		SessionID: toString(record["session_id"]),

		SymbolsReceived:   toInt64(record["symbols_received_total"]),
		ParseErrors:       toInt64(record["parse_errors_total"]),
		ParseErrorsByKind: parseCounts(record["parse_errors_by_kind"]),
		MetaAccepted:      toInt64(record["meta_accepted_total"]),
		ContentAccepted:   toInt64(record["content_accepted_total"]),
		Duplicates:        toInt64(record["duplicates_total"]),
		InsertRejected:    toInt64(record["insert_rejected_total"]),
		RejectedByKind:    parseCounts(record["rejected_by_kind"]),
		BufferedDropped:   toInt64(record["buffered_dropped_total"]),

		AssembleAttempts:   toInt64(record["assemble_attempts_total"]),
		AssembleIncomplete: toInt64(record["assemble_incomplete_total"]),
		IntegrityFailures:  toInt64(record["integrity_failures_total"]),
		TransfersCompleted: toInt64(record["transfers_completed_total"]),
		BytesAssembled:     toInt64(record["bytes_assembled_total"]),

		StorageWriteSuccess: toInt64(record["storage_write_success_total"]),
		StorageWriteFailure: toInt64(record["storage_write_failure_total"]),
		PublishSuccess:      toInt64(record["publish_success_total"]),
		PublishFailure:      toInt64(record["publish_failure_total"]),
		CheckpointSaves:     toInt64(record["checkpoint_saves_total"]),

		Source:         toString(record["source"]),
		StorageBackend: toString(record["storage_backend"]),
		Adapter:        toString(record["adapter"]),
	}

	// The write path always populates these; missing values indicate
	// a malformed record.
	if snap.Ts == "" {
		return nil, errors.New("metrics record missing required field: ts")
	}
	if snap.SessionID == "" {
		return nil, errors.New("metrics record missing required field: session_id")
	}
	return snap, nil
}

// toInt64 converts a value to int64, handling float64 from JSON and int64 from direct writes.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// parseCounts converts a per-kind count map from Lode record format.
// Handles both map[string]int64 (direct) and map[string]any (JSON round-trip).
func parseCounts(v any) map[string]int64 {
	switch m := v.(type) {
	case map[string]int64:
		if len(m) == 0 {
			return nil
		}
		return m
	case map[string]any:
		if len(m) == 0 {
			return nil
		}
		result := make(map[string]int64, len(m))
		for k, val := range m {
			result[k] = toInt64(val)
		}
		return result
	default:
		return nil
	}
}
