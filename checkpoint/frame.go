// Package checkpoint persists receiver state between capture sessions.
//
// A checkpoint is a stream of length-prefixed msgpack frames. Each frame is
// a 4-byte big-endian payload length followed by the payload. The first
// frame is a header; each sequence frame is followed by the chunk frames
// that belong to it.
package checkpoint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// Frame type discriminants.
const (
	HeaderType   = "checkpoint"
	SequenceType = "sequence"
	ChunkType    = "chunk"
)

// FormatVersion is written into every header frame.
const FormatVersion = 1

// FrameErrorKind classifies frame errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error or an unexpected frame.
	FrameErrorDecode
)

// FrameError represents a frame encoding or decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsCorrupt reports whether the checkpoint stream is damaged rather than
// merely unreadable.
func IsCorrupt(err error) bool {
	var frameErr *FrameError
	return errors.As(err, &frameErr)
}

// headerFrame opens every checkpoint.
type headerFrame struct {
	Type      string `msgpack:"type"`
	Version   int    `msgpack:"version"`
	Sequences int    `msgpack:"sequences"`
}

// sequenceFrame carries one decoder's identity and counters.
type sequenceFrame struct {
	Type        string `msgpack:"type"`
	Active      bool   `msgpack:"active"`
	SequenceID  uint8  `msgpack:"seq_id"`
	FileLength  uint64 `msgpack:"file_length"`
	ChunkCount  uint64 `msgpack:"chunk_count"`
	Hash        string `msgpack:"sha3"`
	FileName    string `msgpack:"name"`
	TotalFrames uint64 `msgpack:"frames"`
	Duplicates  uint64 `msgpack:"duplicates"`
	Conflicts   uint64 `msgpack:"conflicts"`
	Dropped     uint64 `msgpack:"dropped"`
}

// chunkFrame carries one stored or buffered chunk of the preceding sequence.
// Pending chunks were received before the sequence's Meta symbol and keep
// their own sequence id.
type chunkFrame struct {
	Type       string `msgpack:"type"`
	Pending    bool   `msgpack:"pending"`
	SequenceID uint8  `msgpack:"seq_id"`
	Index      uint64 `msgpack:"index"`
	Data       []byte `msgpack:"data"`
}

// frameTypeProbe is used to peek at the type field without full decode.
type frameTypeProbe struct {
	Type string `msgpack:"type"`
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r}
}

// ReadFrame reads a single frame and returns its raw msgpack payload.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(d.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	_, err = io.ReadFull(d.reader, payload)
	if err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}
	return payload, nil
}

// FrameEncoder writes length-prefixed msgpack frames.
type FrameEncoder struct {
	writer io.Writer
}

// NewFrameEncoder creates a new frame encoder.
func NewFrameEncoder(w io.Writer) *FrameEncoder {
	return &FrameEncoder{writer: w}
}

// WriteFrame marshals v and writes it as one frame.
func (e *FrameEncoder) WriteFrame(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return &FrameError{Kind: FrameErrorDecode, Msg: "failed to encode frame", Err: err}
	}
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	if _, err := e.writer.Write(lengthBuf[:]); err != nil {
		return err
	}
	_, err = e.writer.Write(payload)
	return err
}

// decodeFrame decodes a payload into a *headerFrame, *sequenceFrame or
// *chunkFrame based on its type field.
func decodeFrame(payload []byte) (any, error) {
	var probe frameTypeProbe
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode frame type", Err: err}
	}

	var out any
	switch probe.Type {
	case HeaderType:
		out = &headerFrame{}
	case SequenceType:
		out = &sequenceFrame{}
	case ChunkType:
		out = &chunkFrame{}
	default:
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("unknown frame type %q", probe.Type)}
	}
	if err := msgpack.Unmarshal(payload, out); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode " + probe.Type + " frame", Err: err}
	}
	return out, nil
}
