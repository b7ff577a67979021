package lode

import (
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/datablast/metrics"
)

func TestQueryTransfers_FilterBySession(t *testing.T) {
	store := lode.NewMemory()
	factory := sharedFactory(store)

	for i, sid := range []string{"s-1", "s-10", "s-1"} {
		client, err := NewClient(testConfig(sid), factory, "", nil)
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		tr := testTransfer(uint8(i), "f.txt", []byte{byte(i)})
		if _, err := client.StoreTransfer(t.Context(), tr); err != nil {
			t.Fatalf("StoreTransfer(%s) failed: %v", sid, err)
		}
	}

	ds, err := NewReadDataset("datablast", factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}

	tests := []struct {
		filter TransferFilter
		want   []uint8
	}{
		{TransferFilter{}, []uint8{0, 1, 2}},
		{TransferFilter{SessionID: "s-1"}, []uint8{0, 2}},
		{TransferFilter{SessionID: "s-10"}, []uint8{1}},
		{TransferFilter{SessionID: "nope"}, nil},
		{TransferFilter{Day: "2026-03-01"}, []uint8{0, 1, 2}},
		{TransferFilter{Day: "1999-01-01"}, nil},
	}
	for _, tt := range tests {
		records, err := QueryTransfers(t.Context(), ds, tt.filter)
		if err != nil {
			t.Fatalf("QueryTransfers(%+v) failed: %v", tt.filter, err)
		}
		var got []uint8
		for _, r := range records {
			got = append(got, r.SequenceID)
		}
		if len(got) != len(tt.want) {
			t.Errorf("QueryTransfers(%+v) = %v, want %v", tt.filter, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("QueryTransfers(%+v) = %v, want %v", tt.filter, got, tt.want)
				break
			}
		}
	}
}

func TestQueryTransfers_IgnoresMetrics(t *testing.T) {
	store := lode.NewMemory()
	factory := sharedFactory(store)

	client, err := NewClient(testConfig("s-1"), factory, "", nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	snap := metrics.NewCollector("file", "memory", "", "s-1").Snapshot()
	if err := client.WriteMetrics(t.Context(), snap, time.Now()); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}

	ds, err := NewReadDataset("datablast", factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	records, err := QueryTransfers(t.Context(), ds, TransferFilter{})
	if err != nil {
		t.Fatalf("QueryTransfers failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d transfer records, want 0", len(records))
	}
}

func TestQueryLatestMetrics_WriteAndRead(t *testing.T) {
	store := lode.NewMemory()
	factory := sharedFactory(store)

	client, err := NewClient(testConfig("s-1"), factory, "", nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	c := metrics.NewCollector("redis", "fs", "webhook", "s-1")
	c.IncSymbolReceived()
	c.IncSymbolReceived()
	c.IncParseError("content: no data part")
	c.IncTransferCompleted(42)

	completedAt := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	if err := client.WriteMetrics(t.Context(), c.Snapshot(), completedAt); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}

	ds, err := NewReadDataset("datablast", factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	record, err := QueryLatestMetrics(t.Context(), ds, "")
	if err != nil {
		t.Fatalf("QueryLatestMetrics failed: %v", err)
	}

	if v := toInt64(record["symbols_received_total"]); v != 2 {
		t.Errorf("symbols_received_total = %d, want 2", v)
	}
	if v := toInt64(record["parse_errors_total"]); v != 1 {
		t.Errorf("parse_errors_total = %d, want 1", v)
	}
	if v := toInt64(record["transfers_completed_total"]); v != 1 {
		t.Errorf("transfers_completed_total = %d, want 1", v)
	}
	if v := toInt64(record["bytes_assembled_total"]); v != 42 {
		t.Errorf("bytes_assembled_total = %d, want 42", v)
	}
	if v := toString(record["source"]); v != "redis" {
		t.Errorf("source = %q, want redis", v)
	}
	if v := toString(record["adapter"]); v != "webhook" {
		t.Errorf("adapter = %q, want webhook", v)
	}
	if record["parse_errors_by_kind"] == nil {
		t.Error("parse_errors_by_kind should not be nil")
	}
}

func TestQueryLatestMetrics_LatestWins(t *testing.T) {
	store := lode.NewMemory()
	factory := sharedFactory(store)

	client, err := NewClient(testConfig("s-1"), factory, "", nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	for i := range 3 {
		c := metrics.NewCollector("file", "memory", "", "s-1")
		for range i + 1 {
			c.IncSymbolReceived()
		}
		if err := client.WriteMetrics(t.Context(), c.Snapshot(), time.Now()); err != nil {
			t.Fatalf("WriteMetrics failed: %v", err)
		}
	}

	ds, err := NewReadDataset("datablast", factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	record, err := QueryLatestMetrics(t.Context(), ds, "s-1")
	if err != nil {
		t.Fatalf("QueryLatestMetrics failed: %v", err)
	}
	if v := toInt64(record["symbols_received_total"]); v != 3 {
		t.Errorf("symbols_received_total = %d, want 3", v)
	}
}

func TestQueryLatestMetrics_NoMetrics(t *testing.T) {
	ds, err := NewReadDataset("datablast", sharedFactory(lode.NewMemory()))
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}

	_, err = QueryLatestMetrics(t.Context(), ds, "")
	if !errors.Is(err, ErrNoMetricsFound) {
		t.Errorf("expected ErrNoMetricsFound, got: %v", err)
	}
}

func TestMatchesPartitionValue(t *testing.T) {
	tests := []struct {
		path  string
		value string
		want  bool
	}{
		{"datasets/d/partitions/day=2026-03-01/session_id=s-1/record_kind=transfer/x.jsonl", "s-1", true},
		{"datasets/d/partitions/day=2026-03-01/session_id=s-10/record_kind=transfer/x.jsonl", "s-1", false},
		{"datasets/d/partitions/day=2026-03-01/session_id=s-1x/x.jsonl", "s-1", false},
	}
	for _, tt := range tests {
		if got := matchesPartitionValue(tt.path, "session_id", tt.value); got != tt.want {
			t.Errorf("matchesPartitionValue(%q, %q) = %v, want %v", tt.path, tt.value, got, tt.want)
		}
	}
}
