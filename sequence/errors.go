package sequence

import "fmt"

// InsertErrorKind classifies why a symbol was refused by a Decoder.
type InsertErrorKind int

const (
	// WrongSequenceID means the symbol belongs to another transfer.
	WrongSequenceID InsertErrorKind = iota
	// FileLenMismatch means a later Meta disagrees on content_len.
	FileLenMismatch
	// HashMismatch means a later Meta disagrees on the file hash.
	HashMismatch
	// FileNameMismatch means a later Meta disagrees on the file name.
	FileNameMismatch
	// ChunkContentMismatch means a chunk index arrived with different bytes.
	ChunkContentMismatch
)

func (k InsertErrorKind) String() string {
	switch k {
	case WrongSequenceID:
		return "wrong sequence id"
	case FileLenMismatch:
		return "file length mismatch"
	case HashMismatch:
		return "hash mismatch"
	case FileNameMismatch:
		return "file name mismatch"
	case ChunkContentMismatch:
		return "chunk content mismatch"
	default:
		return fmt.Sprintf("insert error %d", int(k))
	}
}

// InsertError is returned by Decoder.Insert. The decoder state is unchanged
// when it is returned.
type InsertError struct {
	Kind       InsertErrorKind
	SequenceID uint8
	ChunkIndex uint64
	Detail     string
}

func (e *InsertError) Error() string {
	msg := fmt.Sprintf("insert rejected (seq %02x): %s", e.SequenceID, e.Kind)
	if e.Kind == ChunkContentMismatch {
		msg += fmt.Sprintf(" at chunk %d", e.ChunkIndex)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches any *InsertError with the same Kind.
func (e *InsertError) Is(target error) bool {
	t, ok := target.(*InsertError)
	return ok && t.Kind == e.Kind
}

// CollectErrorKind classifies why TryAssemble could not produce the file.
type CollectErrorKind int

const (
	// DiscontinuousContentIDs means chunks are still missing. Retryable.
	DiscontinuousContentIDs CollectErrorKind = iota
	// AssembledHashMismatch means every chunk is present but the bytes do
	// not hash to the announced digest. Terminal for this sequence.
	AssembledHashMismatch
)

func (k CollectErrorKind) String() string {
	switch k {
	case DiscontinuousContentIDs:
		return "discontinuous content ids"
	case AssembledHashMismatch:
		return "hash mismatch"
	default:
		return fmt.Sprintf("collect error %d", int(k))
	}
}

// CollectError is returned by Decoder.TryAssemble.
// Missing lists the absent chunk indices, in order, below the announced
// chunk count.
type CollectError struct {
	Kind    CollectErrorKind
	Missing []uint64
	Msg     string
}

func (e *CollectError) Error() string {
	switch {
	case e.Msg != "":
		return fmt.Sprintf("assemble failed: %s: %s", e.Kind, e.Msg)
	case len(e.Missing) == 1:
		return fmt.Sprintf("assemble failed: %s: missing chunk %d", e.Kind, e.Missing[0])
	case len(e.Missing) > 1:
		return fmt.Sprintf("assemble failed: %s: %d chunks missing from %d", e.Kind, len(e.Missing), e.Missing[0])
	}
	return "assemble failed: " + e.Kind.String()
}

// Is matches any *CollectError with the same Kind.
func (e *CollectError) Is(target error) bool {
	t, ok := target.(*CollectError)
	return ok && t.Kind == e.Kind
}

// Retryable reports whether more symbols can still fix the failure.
func (e *CollectError) Retryable() bool {
	return e.Kind == DiscontinuousContentIDs
}

// Sentinels for errors.Is.
var (
	ErrWrongSequenceID      = &InsertError{Kind: WrongSequenceID}
	ErrFileLenMismatch      = &InsertError{Kind: FileLenMismatch}
	ErrHashMismatch         = &InsertError{Kind: HashMismatch}
	ErrFileNameMismatch     = &InsertError{Kind: FileNameMismatch}
	ErrChunkContentMismatch = &InsertError{Kind: ChunkContentMismatch}

	ErrDiscontinuousContentIDs = &CollectError{Kind: DiscontinuousContentIDs}
	ErrAssembledHashMismatch   = &CollectError{Kind: AssembledHashMismatch}
)
