package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/datablast/adapter"
	"github.com/justapithecus/datablast/checkpoint"
	"github.com/justapithecus/datablast/cli/config"
	"github.com/justapithecus/datablast/cli/render"
	"github.com/justapithecus/datablast/iox"
	"github.com/justapithecus/datablast/lode"
	"github.com/justapithecus/datablast/log"
	"github.com/justapithecus/datablast/metrics"
	"github.com/justapithecus/datablast/receiver"
	"github.com/justapithecus/datablast/source"
)

// DecodeCommand returns the decode command.
// Decode is the only command that writes to storage.
func DecodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "decode",
		Usage: "Reassemble files from captured symbol strings",
		Flags: withFlags(ConfigFlags(), StorageFlags(), QueueFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Capture file with one symbol per line (\"-\" for stdin)",
			},
			&cli.StringFlag{
				Name:  "session-id",
				Usage: "Session id for partitioning (default: random UUID)",
			},
			&cli.StringFlag{
				Name:  "checkpoint",
				Usage: "Resume from and save in-progress transfers to this file",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Keep receiving after the first completed transfer",
			},
			&cli.StringFlag{Name: "adapter", Usage: "Completion adapter: webhook or redis"},
			&cli.StringFlag{Name: "adapter-url", Usage: "Adapter endpoint URL"},
			&cli.StringFlag{Name: "adapter-channel", Usage: "Redis pub/sub channel"},
			&cli.IntFlag{Name: "adapter-retries", Usage: "Publish retry attempts"},
			FormatFlag,
			NoColorFlag,
		}),
		Action: decodeAction,
	}
}

// TransferSummary describes one stored transfer.
type TransferSummary struct {
	SequenceID  uint8  `json:"sequence_id" yaml:"sequence_id"`
	FileName    string `json:"file_name" yaml:"file_name"`
	FileLength  int    `json:"file_length" yaml:"file_length"`
	SHA3        string `json:"sha3" yaml:"sha3"`
	StoragePath string `json:"storage_path" yaml:"storage_path"`
	DurationMs  int64  `json:"duration_ms" yaml:"duration_ms"`
}

// DecodeResponse is the summary rendered when decode finishes.
type DecodeResponse struct {
	SessionID  string                    `json:"session_id" yaml:"session_id"`
	Outcome    string                    `json:"outcome" yaml:"outcome"`
	Symbols    int64                     `json:"symbols" yaml:"symbols"`
	Completed  int                       `json:"completed" yaml:"completed"`
	Failed     int                       `json:"failed" yaml:"failed"`
	Transfers  []TransferSummary         `json:"transfers" yaml:"transfers"`
	Incomplete []receiver.SequenceReport `json:"incomplete,omitempty" yaml:"incomplete,omitempty"`
}

// Decode outcomes.
const (
	OutcomeComplete   = "complete"
	OutcomeIncomplete = "incomplete"
	OutcomeIntegrity  = "integrity_failure"
)

// completionError marks a storage or publish failure raised in OnComplete.
type completionError struct {
	op  string
	err error
}

func (e *completionError) Error() string { return e.op + ": " + e.err.Error() }

func (e *completionError) Unwrap() error { return e.err }

// session wires one decode run: storage, adapter, metrics and summary.
type session struct {
	id        string
	client    *lode.Client
	adapter   adapter.Adapter
	collector *metrics.Collector
	logger    *log.Logger
	transfers []TransferSummary
}

func (s *session) onComplete(ctx context.Context, t *receiver.Transfer) error {
	path, err := s.client.StoreTransfer(ctx, t)
	if err != nil {
		s.logger.Error("transfer store failed", map[string]any{
			"sequence_id": t.SequenceID,
			"transient":   lode.Transient(err),
			"error":       err.Error(),
		})
		return &completionError{op: "store transfer", err: err}
	}
	s.logger.Info("transfer stored", map[string]any{
		"sequence_id":  t.SequenceID,
		"file_name":    t.FileName,
		"file_length":  len(t.Data),
		"storage_path": path,
	})

	if s.adapter != nil {
		event := adapter.NewTransferCompletedEvent(s.id, t, path)
		if err := s.adapter.Publish(ctx, event); err != nil {
			s.collector.IncPublishFailure()
			return &completionError{op: "publish transfer_completed", err: err}
		}
		s.collector.IncPublishSuccess()
	}

	s.transfers = append(s.transfers, TransferSummary{
		SequenceID:  t.SequenceID,
		FileName:    t.FileName,
		FileLength:  len(t.Data),
		SHA3:        t.Hash,
		StoragePath: path,
		DurationMs:  t.Duration().Milliseconds(),
	})
	return nil
}

func decodeAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	sessionID := c.String("session-id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logger, err := newLogger(c, cfg, sessionID)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	storage, err := resolveStorage(c, cfg)
	if err != nil {
		return err
	}
	adapterCfg := resolveAdapter(c, cfg)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, sourceName, closeSource, err := openSource(c, cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	collector := metrics.NewCollector(sourceName, storage.backend, adapterCfg.kind, sessionID)
	startedAt := time.Now()
	lodeCfg := lode.Config{
		Dataset:   storage.dataset,
		Day:       lode.DeriveDay(startedAt),
		SessionID: sessionID,
		Source:    sourceName,
	}
	if err := lodeCfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid storage config: %v", err), exitUsage)
	}
	client, err := buildClient(ctx, storage, lodeCfg, collector)
	if err != nil {
		return storageExit("failed to initialize storage", err)
	}
	defer iox.DiscardClose(client)

	pub, err := buildAdapter(adapterCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid adapter config: %v", err), exitUsage)
	}
	if pub != nil {
		defer iox.DiscardClose(pub)
	}

	sess := &session{
		id:        sessionID,
		client:    client,
		adapter:   pub,
		collector: collector,
		logger:    logger,
		transfers: []TransferSummary{},
	}
	recv := receiver.New(receiver.Options{
		OnComplete:     sess.onComplete,
		StopAfterFirst: !c.Bool("all"),
	}, logger, collector)

	ckpt := c.String("checkpoint")
	if ckpt != "" {
		if err := restoreCheckpoint(recv, ckpt, logger); err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}
	}

	logger.Info("decode started", map[string]any{
		"source":  sourceName,
		"backend": storage.backend,
		"dataset": storage.dataset,
	})
	runErr := recv.Run(ctx, src)
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		logger.Info("decode interrupted", nil)
		runErr = nil
	}

	if ckpt != "" {
		if err := checkpoint.SaveFile(ckpt, recv.States()); err != nil {
			logger.Error("checkpoint save failed", map[string]any{"path": ckpt, "error": err.Error()})
		} else {
			collector.IncCheckpointSave()
		}
	}

	// Metrics are written on every exit path, interrupts included.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(c.Context), readTimeout)
	defer cancel()
	if err := client.WriteMetrics(writeCtx, collector.Snapshot(), time.Now()); err != nil {
		logger.Error("metrics write failed", map[string]any{"error": err.Error()})
		if runErr == nil {
			runErr = &completionError{op: "write metrics", err: err}
		}
	}

	resp := &DecodeResponse{
		SessionID: sessionID,
		Symbols:   collector.Snapshot().SymbolsReceived,
		Completed: recv.Completed(),
		Failed:    recv.Failed(),
		Transfers: sess.transfers,
	}
	for _, rep := range recv.Report() {
		if rep.State == receiver.StateActive || rep.State == receiver.StatePending {
			resp.Incomplete = append(resp.Incomplete, rep)
		}
	}
	code := decodeExitCode(resp)
	resp.Outcome = outcomeName(code)

	if runErr != nil {
		var cErr *completionError
		if errors.As(runErr, &cErr) {
			return storageExit("decode failed", runErr)
		}
		return cli.Exit(fmt.Sprintf("decode failed: %v", runErr), exitUsage)
	}

	if err := r.Render(resp); err != nil {
		return err
	}
	if code != exitSuccess {
		return cli.Exit("", code)
	}
	return nil
}

// decodeExitCode maps the receive result: any completed transfer is success,
// otherwise integrity failures beat an exhausted input.
func decodeExitCode(resp *DecodeResponse) int {
	switch {
	case resp.Completed > 0:
		return exitSuccess
	case resp.Failed > 0:
		return exitIntegrity
	default:
		return exitIncomplete
	}
}

func outcomeName(code int) string {
	switch code {
	case exitSuccess:
		return OutcomeComplete
	case exitIntegrity:
		return OutcomeIntegrity
	default:
		return OutcomeIncomplete
	}
}

// openSource picks the symbol source: --input, then the Redis queue, then stdin.
// The returned name labels the source partition.
func openSource(c *cli.Context, cfg *config.Config) (source.Source, string, func(), error) {
	noop := func() {}
	switch input := c.String("input"); input {
	case "-":
		return source.NewLineSource(c.App.Reader), "stdin", noop, nil
	case "":
	default:
		f, err := os.Open(input)
		if err != nil {
			return nil, "", noop, cli.Exit(fmt.Sprintf("cannot open %s: %v", input, err), exitUsage)
		}
		return source.NewLineSource(f), "file", iox.CloseFunc(f), nil
	}

	queue, err := openQueue(c, cfg)
	if err != nil {
		return nil, "", noop, cli.Exit(err.Error(), exitUsage)
	}
	if queue != nil {
		return queue, "redis", iox.CloseFunc(queue), nil
	}
	return source.NewLineSource(c.App.Reader), "stdin", noop, nil
}

func restoreCheckpoint(recv *receiver.Receiver, path string, logger *log.Logger) error {
	states, err := checkpoint.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := recv.Restore(states); err != nil {
		return fmt.Errorf("restore checkpoint %s: %w", path, err)
	}
	logger.Info("checkpoint restored", map[string]any{"path": path, "sequences": len(states)})
	return nil
}
