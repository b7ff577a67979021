package reader

import (
	"context"
	"fmt"
	"io"

	"github.com/justapithecus/datablast/log"
	"github.com/justapithecus/datablast/metrics"
	"github.com/justapithecus/datablast/receiver"
	"github.com/justapithecus/datablast/source"
)

// InspectCapture replays every line of r through a receiver and reports
// per-transfer progress. Completed transfers are verified but not stored.
func InspectCapture(ctx context.Context, r io.Reader, path string, logger *log.Logger) (*InspectCaptureResponse, error) {
	collector := metrics.NewCollector("file", "", "", "")
	recv := receiver.New(receiver.Options{}, logger, collector)

	if err := recv.Run(ctx, source.NewLineSource(r)); err != nil {
		return nil, fmt.Errorf("read capture %s: %w", path, err)
	}

	snap := collector.Snapshot()
	return &InspectCaptureResponse{
		Path:              path,
		Lines:             snap.SymbolsReceived,
		MetaSymbols:       snap.MetaAccepted,
		ContentSymbols:    snap.ContentAccepted,
		ParseErrors:       snap.ParseErrors,
		ParseErrorsByKind: nonEmpty(snap.ParseErrorsByKind),
		Rejected:          snap.InsertRejected,
		RejectedByKind:    nonEmpty(snap.RejectedByKind),
		Dropped:           snap.BufferedDropped,
		Complete:          recv.Completed(),
		Failed:            recv.Failed(),
		Sequences:         recv.Report(),
	}, nil
}

func nonEmpty(m map[string]int64) map[string]int64 {
	if len(m) == 0 {
		return nil
	}
	return m
}
