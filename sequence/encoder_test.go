package sequence

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/justapithecus/datablast/symbol"
)

func testConfig(persist, maxBytes, between int) Config {
	return Config{
		PersistEachSymbolForFrames:    persist,
		MaxBytesPerDataSymbol:         maxBytes,
		DataSymbolsBetweenMetaSymbols: between,
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig invalid: %v", err)
	}
	err := testConfig(0, 0, 0).Validate()
	if err == nil {
		t.Fatal("Validate accepted zero config")
	}
	for _, field := range []string{"persist_each_symbol_for_frames", "max_bytes_per_data_symbol", "data_symbols_between_meta_symbols"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
	if _, err := NewEncoder("f", []byte("x"), testConfig(1, 0, 1)); err == nil {
		t.Error("NewEncoder accepted invalid config")
	}
}

func TestEncoder_Layout(t *testing.T) {
	// 5 chunks of 2 bytes, 2 content symbols per meta:
	// M C0 C1 M C2 C3 M C4
	data := []byte("aabbccddee")
	enc, err := NewEncoder("f", data, testConfig(1, 2, 2), WithSequenceID(0x11))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	if enc.ChunkCount() != 5 {
		t.Fatalf("ChunkCount = %d, want 5", enc.ChunkCount())
	}
	if enc.SymbolsPerPass() != 8 {
		t.Fatalf("SymbolsPerPass = %d, want 8", enc.SymbolsPerPass())
	}

	want := []string{"M", "0", "1", "M", "2", "3", "M", "4"}
	var got []string
	for s := range enc.Pass() {
		switch v := s.(type) {
		case symbol.Meta:
			got = append(got, "M")
		case symbol.Content:
			got = append(got, string(rune('0'+v.ChunkIndex)))
		}
	}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("pass = %v, want %v", got, want)
	}
}

func TestEncoder_ChunkBoundaries(t *testing.T) {
	data := []byte("abcdefg")
	enc, err := NewEncoder("f", data, testConfig(1, 3, 10), WithSequenceID(1))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	if enc.ChunkCount() != 3 {
		t.Fatalf("ChunkCount = %d, want 3", enc.ChunkCount())
	}
	last, ok := enc.Chunk(2)
	if !ok || string(last.Data) != "g" {
		t.Errorf("Chunk(2) = %q, %v; want g", last.Data, ok)
	}
	if _, ok := enc.Chunk(3); ok {
		t.Error("Chunk(3) reported ok past the end")
	}
}

func TestEncoder_MetaFields(t *testing.T) {
	data := []byte("aabbccddee")
	enc, err := NewEncoder("report.pdf", data, testConfig(3, 2, 2), WithSequenceID(0x42))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	m, ok := enc.SymbolAt(9).(symbol.Meta)
	if !ok {
		t.Fatalf("SymbolAt(9) = %T, want Meta", enc.SymbolAt(9))
	}
	if m.SequenceID != 0x42 || m.FileName != "report.pdf" {
		t.Errorf("meta identity = %02x %q", m.SequenceID, m.FileName)
	}
	if m.FileLength() != 10 || m.ChunkCount() != 5 {
		t.Errorf("content_len = %v, want [10 5]", m.ContentLength)
	}
	if m.TotalFrames != 24 {
		t.Errorf("TotalFrames = %d, want 24", m.TotalFrames)
	}
	if m.CurrentFrame != 9 {
		t.Errorf("CurrentFrame = %d, want 9", m.CurrentFrame)
	}
	if m.ContentHash != symbol.HashHex(data) {
		t.Errorf("ContentHash = %s, want %s", m.ContentHash, symbol.HashHex(data))
	}
	if err := m.Validate(); err != nil {
		t.Errorf("emitted meta invalid: %v", err)
	}
}

func TestEncoder_MetaFramesWithoutPersistence(t *testing.T) {
	enc, err := NewEncoder("f", []byte("aabbccddee"), testConfig(1, 2, 2))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	// frames counts every symbol of a pass, metas included.
	var pos uint64
	for s := range enc.Pass() {
		if m, ok := s.(symbol.Meta); ok {
			if m.TotalFrames != enc.SymbolsPerPass() || m.TotalFrames != 8 {
				t.Errorf("TotalFrames = %d, want %d", m.TotalFrames, enc.SymbolsPerPass())
			}
			if m.CurrentFrame != pos {
				t.Errorf("CurrentFrame = %d, want %d", m.CurrentFrame, pos)
			}
		}
		pos++
	}
	if pos != 8 {
		t.Errorf("pass length = %d, want 8", pos)
	}
}

func TestEncoder_Persistence(t *testing.T) {
	enc, err := NewEncoder("f", []byte("aabb"), testConfig(3, 2, 5), WithSequenceID(1))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	cur := enc.Cursor()
	var got []string
	for range 12 {
		got = append(got, cur.Next().String())
	}
	// M C0 C1 repeated 3 times each, then the pass restarts.
	for i := range 12 {
		if got[i] != got[(i/3)*3] {
			t.Errorf("frame %d differs from frame %d", i, (i/3)*3)
		}
	}
	if got[9] != got[0] {
		t.Error("stream did not cycle back to the first meta")
	}
	if cur.Position() != 12 {
		t.Errorf("Position = %d, want 12", cur.Position())
	}
	cur.Seek(3)
	if s := cur.Next().String(); s != got[3] {
		t.Errorf("after Seek(3) Next = %s, want %s", s, got[3])
	}
	cur.Reset()
	if cur.Position() != 0 {
		t.Errorf("Position after Reset = %d", cur.Position())
	}
}

func TestEncoder_EmptyFile(t *testing.T) {
	enc, err := NewEncoder("empty", nil, testConfig(1, 4, 4), WithSequenceID(3))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	if enc.ChunkCount() != 0 || enc.SymbolsPerPass() != 1 {
		t.Fatalf("ChunkCount/SymbolsPerPass = %d/%d, want 0/1", enc.ChunkCount(), enc.SymbolsPerPass())
	}
	for f := range uint64(5) {
		if _, ok := enc.SymbolAt(f).(symbol.Meta); !ok {
			t.Errorf("SymbolAt(%d) is not Meta", f)
		}
	}
}

func TestEncoder_RandomSequenceID(t *testing.T) {
	enc, err := NewEncoder("f", []byte("x"), DefaultConfig(), WithRandom(bytes.NewReader([]byte{0x9c})))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	if enc.SequenceID() != 0x9c {
		t.Errorf("SequenceID = %#x, want 0x9c", enc.SequenceID())
	}

	_, err = NewEncoder("f", []byte("x"), DefaultConfig(), WithRandom(bytes.NewReader(nil)))
	if err == nil {
		t.Error("NewEncoder succeeded with exhausted entropy source")
	}
}

func TestEncoder_FramesStopsOnBreak(t *testing.T) {
	enc, err := NewEncoder("f", []byte("abc"), testConfig(2, 1, 1), WithSequenceID(1))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	n := 0
	for f, s := range enc.Frames() {
		if f == 100 {
			break
		}
		if s.ID() != 1 {
			t.Fatalf("frame %d has sequence id %d", f, s.ID())
		}
		n++
	}
	if n != 100 {
		t.Errorf("yielded %d frames before break, want 100", n)
	}
}

// Any window of FramesPerPass consecutive frames carries the whole file.
func TestEncoder_DecoderRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("datablast-"), 37)
	tests := []struct {
		name  string
		cfg   Config
		start uint64
	}{
		{"aligned", testConfig(1, 16, 4), 0},
		{"late joiner", testConfig(2, 7, 3), 17},
		{"one chunk per meta", testConfig(1, 50, 1), 5},
		{"whole file in one chunk", testConfig(3, 1024, 8), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncoder("blob.bin", data, tt.cfg)
			if err != nil {
				t.Fatalf("NewEncoder failed: %v", err)
			}
			cur := enc.Cursor()
			cur.Seek(tt.start)

			d := NewDecoder()
			for range enc.FramesPerPass() {
				if err := d.InsertText(cur.Next().String()); err != nil {
					t.Fatalf("InsertText failed: %v", err)
				}
			}
			got, err := d.TryAssemble()
			if err != nil {
				t.Fatalf("TryAssemble failed: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Error("reassembled bytes differ from input")
			}
		})
	}
}

func TestEncoder_ConflictingSessionsDetected(t *testing.T) {
	a, _ := NewEncoder("f", []byte("aaaa"), testConfig(1, 2, 2), WithSequenceID(7))
	b, _ := NewEncoder("f", []byte("bbbb"), testConfig(1, 2, 2), WithSequenceID(7))

	d := NewDecoder()
	for s := range a.Pass() {
		if err := d.Insert(s); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	var sawConflict bool
	for s := range b.Pass() {
		err := d.Insert(s)
		if errors.Is(err, ErrHashMismatch) || errors.Is(err, ErrChunkContentMismatch) {
			sawConflict = true
		}
	}
	if !sawConflict {
		t.Error("second session with colliding id was not rejected")
	}
}
