package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/datablast/cli/config"
	"github.com/justapithecus/datablast/iox"
	"github.com/justapithecus/datablast/sequence"
	redisqueue "github.com/justapithecus/datablast/source/redis"
)

// queueBatch is the number of symbols sent per RPUSH.
const queueBatch = 256

// EncodeCommand returns the encode command.
// Encode turns a file into symbol strings, one per line.
func EncodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "encode",
		Usage:     "Encode a file into QR symbol strings",
		ArgsUsage: "<file>",
		Flags: withFlags(ConfigFlags(), QueueFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write symbols to this file (default: stdout, or the queue when configured)",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "File name announced in Meta symbols (default: base name of <file>)",
			},
			&cli.IntFlag{Name: "max-bytes", Usage: "Max raw bytes per content symbol"},
			&cli.IntFlag{Name: "persist", Usage: "Frames each symbol stays on screen"},
			&cli.IntFlag{Name: "meta-every", Usage: "Content symbols between Meta symbols"},
			&cli.IntFlag{Name: "sequence-id", Usage: "Sequence id 0-255 (default: random)"},
			&cli.Uint64Flag{Name: "frames", Usage: "Emit N display frames, persistence included (default: one pass)"},
		}),
		Action: encodeAction,
	}
}

func encodeAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("file path required", exitUsage)
	}
	path := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(c, cfg, "")
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot read %s: %v", path, err), exitUsage)
	}

	encCfg, opts, err := encoderSettings(c, cfg.Encoder)
	if err != nil {
		return err
	}
	name := c.String("name")
	if name == "" {
		name = filepath.Base(path)
	}
	enc, err := sequence.NewEncoder(name, data, encCfg, opts...)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid encoder config: %v", err), exitUsage)
	}

	symbols := passStrings(enc)
	count := enc.SymbolsPerPass()
	if n := c.Uint64("frames"); n > 0 {
		symbols = frameStrings(enc, n)
		count = n
	}

	output := c.String("output")
	queue, err := openQueue(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	switch {
	case queue != nil && output == "":
		defer iox.DiscardClose(queue)
		if err := pushSymbols(c.Context, queue, symbols); err != nil {
			return storageExit("enqueue symbols", err)
		}
	case output == "" || output == "-":
		if err := writeSymbols(c.App.Writer, symbols); err != nil {
			return err
		}
	default:
		err := iox.WriteAtomic(output, func(w io.Writer) error {
			return writeSymbols(w, symbols)
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot write %s: %v", output, err), exitUsage)
		}
	}

	logger.Info("file encoded", map[string]any{
		"file_name":       name,
		"sequence_id":     enc.SequenceID(),
		"file_length":     enc.FileLength(),
		"chunk_count":     enc.ChunkCount(),
		"frames_per_pass": enc.FramesPerPass(),
		"symbols_written": count,
		"sha3":            enc.Hash(),
	})
	return nil
}

// encoderSettings overlays flags on the config file on the defaults.
func encoderSettings(c *cli.Context, fileCfg config.EncoderConfig) (sequence.Config, []sequence.Option, error) {
	cfg := fileCfg.Apply(sequence.DefaultConfig())
	if c.IsSet("max-bytes") {
		cfg.MaxBytesPerDataSymbol = c.Int("max-bytes")
	}
	if c.IsSet("persist") {
		cfg.PersistEachSymbolForFrames = c.Int("persist")
	}
	if c.IsSet("meta-every") {
		cfg.DataSymbolsBetweenMetaSymbols = c.Int("meta-every")
	}

	var opts []sequence.Option
	if c.IsSet("sequence-id") {
		id := c.Int("sequence-id")
		if id < 0 || id > 255 {
			return cfg, nil, cli.Exit(fmt.Sprintf("--sequence-id must be 0-255, got %d", id), exitUsage)
		}
		opts = append(opts, sequence.WithSequenceID(uint8(id)))
	}
	return cfg, opts, nil
}

func passStrings(enc *sequence.Encoder) iter.Seq[string] {
	return func(yield func(string) bool) {
		for s := range enc.Pass() {
			if !yield(s.String()) {
				return
			}
		}
	}
}

func frameStrings(enc *sequence.Encoder, n uint64) iter.Seq[string] {
	return func(yield func(string) bool) {
		for f, s := range enc.Frames() {
			if f >= n || !yield(s.String()) {
				return
			}
		}
	}
}

func writeSymbols(w io.Writer, symbols iter.Seq[string]) error {
	bw := bufio.NewWriter(w)
	for s := range symbols {
		if _, err := bw.WriteString(s); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func pushSymbols(ctx context.Context, q *redisqueue.Queue, symbols iter.Seq[string]) error {
	batch := make([]string, 0, queueBatch)
	for s := range symbols {
		batch = append(batch, s)
		if len(batch) == queueBatch {
			if err := q.Push(ctx, batch...); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	return q.Push(ctx, batch...)
}
