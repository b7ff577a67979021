package lode

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoMetricsFound is returned when no metrics records exist in the dataset.
var ErrNoMetricsFound = errors.New("no metrics records found")

// NewReadDataset creates a Lode Dataset for reading.
// Uses the same codec and layout as the write path to ensure compatibility.
func NewReadDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// NewReadDatasetFS creates a read Dataset with filesystem storage.
func NewReadDatasetFS(dataset, rootPath string) (lode.Dataset, error) {
	return NewReadDataset(dataset, lode.NewFSFactory(rootPath))
}

// NewReadDatasetS3 creates a read Dataset with S3 storage.
func NewReadDatasetS3(ctx context.Context, dataset string, s3cfg S3Config) (lode.Dataset, error) {
	factory, err := newS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewReadDataset(dataset, factory)
}

// TransferFilter narrows QueryTransfers. Empty fields match everything.
type TransferFilter struct {
	SessionID string
	Day       string
}

// QueryTransfers reads every transfer record matching filter, oldest
// snapshot first.
func QueryTransfers(ctx context.Context, ds lode.Dataset, filter TransferFilter) ([]TransferRecord, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, fmt.Sprintf("%s/snapshots", ds.ID()))
	}

	var out []TransferRecord
	for _, snap := range snapshots {
		if !snapshotMatchesFilter(snap, "record_kind", RecordKindTransfer) ||
			!snapshotMatchesFilter(snap, "session_id", filter.SessionID) ||
			!snapshotMatchesFilter(snap, "day", filter.Day) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		// Manifest paths are a coarse pre-filter; record fields are authoritative.
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			rec, ok := transferRecordFromMap(m)
			if !ok {
				continue
			}
			if filter.SessionID != "" && rec.SessionID != filter.SessionID {
				continue
			}
			if filter.Day != "" && rec.Day != filter.Day {
				continue
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// QueryLatestMetrics finds the most recent metrics record, optionally
// restricted to one session. Returns the raw record map or
// ErrNoMetricsFound if none exist.
func QueryLatestMetrics(ctx context.Context, ds lode.Dataset, sessionID string) (map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, fmt.Sprintf("%s/snapshots", ds.ID()))
	}

	for _, snap := range slices.Backward(snapshots) {
		if !snapshotMatchesFilter(snap, "record_kind", RecordKindMetrics) ||
			!snapshotMatchesFilter(snap, "session_id", sessionID) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindMetrics {
				continue
			}
			if sessionID != "" && toString(record["session_id"]) != sessionID {
				continue
			}
			return record, nil
		}
	}
	return nil, ErrNoMetricsFound
}

// snapshotMatchesFilter checks if a snapshot's file paths match
// the given partition key=value filter.
func snapshotMatchesFilter(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks if a Hive-partitioned path contains an exact
// key=value segment, so session_id=s-1 never matches session_id=s-10.
func matchesPartitionValue(path, key, value string) bool {
	return slices.Contains(strings.Split(path, "/"), key+"="+value)
}
