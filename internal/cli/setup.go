package cli

import (
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/electrooms/internal/config"
	"github.com/roach88/electrooms/internal/ledger"
	"github.com/roach88/electrooms/internal/messenger"
	"github.com/roach88/electrooms/internal/participants"
	"github.com/roach88/electrooms/internal/rpcclient"
)

// setupLogging installs a text handler on w as the default logger.
// --verbose lowers the level to debug.
func setupLogging(opts *RootOptions, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig reads --config, or the defaults when it is not set.
func loadConfig(opts *RootOptions) (config.Config, error) {
	return config.Load(opts.Config)
}

// ledgerReader picks the ledger: a snapshot file when given, otherwise the
// configured JSON-RPC endpoint.
func ledgerReader(cfg config.Config, snapshot string) (participants.Ledger, error) {
	if snapshot != "" {
		return ledger.NewSnapshot(snapshot), nil
	}
	if cfg.Ledger.URL == "" {
		return nil, errors.New("no ledger configured: set ledger.url or pass --ledger-snapshot")
	}
	rpc := rpcclient.New(cfg.Ledger.URL, rpcclient.WithTimeout(cfg.Ledger.CallTimeout()))
	return ledger.NewClient(rpc), nil
}

// platform returns the messenger for a run. Dry runs use a Recorder, which is
// also returned so the caller can report what would have been sent.
func platform(cfg config.Config, dryRun bool) (messenger.Messenger, *messenger.Recorder, error) {
	if dryRun {
		rec := messenger.NewRecorder()
		return rec, rec, nil
	}
	if cfg.Messenger.URL == "" {
		return nil, nil, errors.New("no messenger configured: set messenger.url or pass --dry-run")
	}
	rpc := rpcclient.New(cfg.Messenger.URL, rpcclient.WithTimeout(cfg.Messenger.CallTimeout()))
	return messenger.NewGateway(rpc), nil, nil
}
