package symbol

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const helloHash = "0000000000000000000000000000000000000000000000000000000000000000"

func validMeta() Meta {
	return Meta{
		Version:       0,
		SequenceID:    0x2a,
		TotalFrames:   12,
		CurrentFrame:  4,
		ContentLength: []uint64{5, 1},
		ContentHash:   HashHex([]byte("Hello")),
		FileName:      "hello.txt",
	}
}

func TestParseContent_KnownVector(t *testing.T) {
	s, err := Parse("ff2a@SGVsbG8=")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	c, ok := s.(Content)
	if !ok {
		t.Fatalf("Parse returned %T, want Content", s)
	}
	if c.SequenceID != 0xff {
		t.Errorf("SequenceID = %#x, want 0xff", c.SequenceID)
	}
	if c.ChunkIndex != 0x2a {
		t.Errorf("ChunkIndex = %#x, want 0x2a", c.ChunkIndex)
	}
	if string(c.Data) != "Hello" {
		t.Errorf("Data = %q, want %q", c.Data, "Hello")
	}
}

func TestContentString(t *testing.T) {
	tests := []struct {
		name string
		in   Content
		want string
	}{
		{"padded sequence id", Content{SequenceID: 0x05, ChunkIndex: 0, Data: []byte("Hello")}, "050@SGVsbG8="},
		{"unpadded lowercase index", Content{SequenceID: 0xff, ChunkIndex: 0x2a, Data: []byte("Hello")}, "ff2a@SGVsbG8="},
		{"large index", Content{SequenceID: 0x10, ChunkIndex: 0xabcdef, Data: []byte{0}}, "10abcdef@AA=="},
		{"empty data", Content{SequenceID: 0x01, ChunkIndex: 3, Data: nil}, "013@"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if got := Format(tt.in); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentRoundTrip(t *testing.T) {
	in := Content{SequenceID: 0x00, ChunkIndex: 1<<40 + 7, Data: []byte{0x00, 0xff, '@', '\n'}}
	s, err := Parse(in.String())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := s.(Content)
	if got.SequenceID != in.SequenceID || got.ChunkIndex != in.ChunkIndex || !bytes.Equal(got.Data, in.Data) {
		t.Errorf("round trip = %+v, want %+v", got, in)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	in := validMeta()
	s, err := Parse(in.String())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got, ok := s.(Meta)
	if !ok {
		t.Fatalf("Parse returned %T, want Meta", s)
	}
	if got.String() != in.String() {
		t.Errorf("round trip = %s, want %s", got, in)
	}
	if got.FileLength() != 5 || got.ChunkCount() != 1 {
		t.Errorf("FileLength/ChunkCount = %d/%d, want 5/1", got.FileLength(), got.ChunkCount())
	}
}

func TestMetaString_FieldOrder(t *testing.T) {
	m := validMeta()
	m.ContentHash = helloHash
	want := `{"ver":0,"seq_id":42,"frames":12,"cur_frame":4,"content_len":[5,1],"sha3":"` + helloHash + `","name":"hello.txt"}`
	if got := m.String(); got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}

func TestParse_ContentErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"no separator", "ff2aSGVsbG8=", ErrNoDataPart},
		{"empty string", "", ErrNoDataPart},
		{"short prefix", "f@SGVsbG8=", ErrInvalidSequenceIDPart},
		{"non hex sequence id", "zz2a@SGVsbG8=", ErrInvalidSequenceIDPart},
		{"missing index", "ff@SGVsbG8=", ErrInvalidPieceIDPart},
		{"non hex index", "ffxy@SGVsbG8=", ErrInvalidPieceIDPart},
		{"index overflow", "ff" + strings.Repeat("f", 17) + "@SGVsbG8=", ErrInvalidPieceIDPart},
		{"bad base64", "ff2a@SGVsbG8", ErrInvalidDataPart},
		{"second separator", "ff2a@SGVs@bG8=", ErrInvalidDataPart},
		{"incomplete meta object", `{"ver":0,"seq_id":1}`, ErrNoDataPart},
		{"line feed in payload", "ff2a@SGVs\nbG8=", ErrInvalidDataPart},
		{"carriage return in payload", "ff2a@SGVsbG8=\r", ErrInvalidDataPart},
		{
			"upper case meta keys",
			`{"VER":0,"SEQ_ID":1,"FRAMES":2,"CUR_FRAME":0,"CONTENT_LEN":[5,1],"SHA3":"` + helloHash + `","NAME":"a"}`,
			ErrNoDataPart,
		},
		{
			"null meta field",
			`{"ver":0,"seq_id":1,"frames":2,"cur_frame":0,"content_len":[5,1],"sha3":"` + helloHash + `","name":null}`,
			ErrNoDataPart,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse(%q) error = %v, want %v", tt.in, err, tt.want)
			}
			var ce *ContentError
			if !errors.As(err, &ce) {
				t.Errorf("error %T is not *ContentError", err)
			}
		})
	}
}

func TestParse_MetaErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *Meta)
		want    error
		wantGot int
	}{
		{"unknown version", func(m *Meta) { m.Version = 3 }, ErrUnknownVersion, 3},
		{"content_len too short", func(m *Meta) { m.ContentLength = []uint64{5} }, ErrInvalidLengthOfContentLen, 1},
		{"content_len too long", func(m *Meta) { m.ContentLength = []uint64{5, 1, 0} }, ErrInvalidLengthOfContentLen, 3},
		{"hash too short", func(m *Meta) { m.ContentHash = "abcd" }, ErrInvalidLengthOfHashField, 4},
		{"hash not hex", func(m *Meta) { m.ContentHash = strings.Repeat("g", HashHexLen) }, ErrHashFieldNotHex, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMeta()
			tt.mutate(&m)
			_, err := Parse(m.String())
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse error = %v, want %v", err, tt.want)
			}
			var me *MetaError
			if !errors.As(err, &me) {
				t.Fatalf("error %T is not *MetaError", err)
			}
			if me.Got != tt.wantGot {
				t.Errorf("Got = %d, want %d", me.Got, tt.wantGot)
			}
		})
	}
}

func TestMetaHash_CaseInsensitive(t *testing.T) {
	m := validMeta()
	lower, err := m.Hash()
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	m.ContentHash = strings.ToUpper(m.ContentHash)
	upper, err := m.Hash()
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if lower != upper {
		t.Error("upper and lower case hash fields decode differently")
	}
	if lower != Sum([]byte("Hello")) {
		t.Error("decoded hash does not match Sum")
	}
}

func TestHashHex(t *testing.T) {
	// SHA3-256 of the empty string.
	want := "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a"
	if got := HashHex(nil); got != want {
		t.Errorf("HashHex(nil) = %s, want %s", got, want)
	}
}

func TestErrorKind(t *testing.T) {
	if got := ErrorKind(&ContentError{Kind: InvalidDataPart}); got != "content: invalid data part" {
		t.Errorf("ErrorKind = %q", got)
	}
	if got := ErrorKind(&MetaError{Kind: UnknownVersion}); got != "meta: unknown version" {
		t.Errorf("ErrorKind = %q", got)
	}
	if got := ErrorKind(errors.New("x")); got != "other" {
		t.Errorf("ErrorKind = %q", got)
	}
}
