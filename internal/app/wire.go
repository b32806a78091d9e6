package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/kalshibot/internal/betlog"
	s3blob "github.com/alanyoungcy/kalshibot/internal/blob/s3"
	"github.com/alanyoungcy/kalshibot/internal/config"
	"github.com/alanyoungcy/kalshibot/internal/crypto"
	"github.com/alanyoungcy/kalshibot/internal/notify"
	"github.com/alanyoungcy/kalshibot/internal/platform/bedrock"
	"github.com/alanyoungcy/kalshibot/internal/platform/kalshi"
	"github.com/alanyoungcy/kalshibot/internal/selector"
	"github.com/alanyoungcy/kalshibot/internal/snapshots"
	"github.com/alanyoungcy/kalshibot/internal/tools"
)

// Dependencies bundles every domain-level dependency that the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Exchange access
	Kalshi *kalshi.Client
	WS     *kalshi.WSClient

	// Market data
	Store    *snapshots.Store
	Registry *tools.Registry

	// Tool selection
	Selector selector.Selector

	// Paper-trade logs
	Logs *betlog.Logs

	// Notifications
	Notifier *notify.Notifier
	Console  *notify.Console

	// Object storage (nil unless s3.enabled and the mode archives)
	S3       *s3blob.Store
	Archiver *s3blob.Archiver
}

// needsSelector returns true for modes that ask the selector for a proposal.
func needsSelector(mode string) bool {
	return mode == "run"
}

// needsRegistry returns true for modes that execute or list tools.
func needsRegistry(mode string) bool {
	switch mode {
	case "run", "tools":
		return true
	default:
		return false
	}
}

// needsS3 returns true for modes that may upload logs to object storage.
func needsS3(mode string) bool {
	switch mode {
	case "collect", "archive":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Kalshi exchange client ---
	client := kalshi.NewClient(cfg.Kalshi.BaseURL, logger)
	client.SetTimeout(cfg.Kalshi.Timeout.Duration)
	client.SetRateLimit(cfg.Kalshi.RateLimitRPS)

	var signer *crypto.RequestSigner
	if cfg.Kalshi.AccessKeyID != "" && (cfg.Kalshi.PrivateKeyPath != "" || cfg.Kalshi.EncryptedKeyPath != "") {
		pemBytes, err := crypto.LoadKeyPEM(crypto.KeyConfig{
			PrivateKeyPath:   cfg.Kalshi.PrivateKeyPath,
			EncryptedKeyPath: cfg.Kalshi.EncryptedKeyPath,
			KeyPassword:      cfg.Kalshi.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: private key: %w", err)
		}
		signer, err = crypto.NewRequestSigner(cfg.Kalshi.AccessKeyID, pemBytes)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: request signer: %w", err)
		}
		client.SetSigner(signer)
	}
	deps.Kalshi = client

	if mode == "collect" && strings.EqualFold(cfg.Collector.Source, "ws") {
		deps.WS = kalshi.NewWSClient(cfg.Kalshi.WSURL, signer)
		closers = append(closers, func() { _ = deps.WS.Close() })
	}

	// --- Snapshot store ---
	deps.Store = snapshots.NewStore(cfg.Snapshots.Path, logger)

	// --- Tool registry ---
	if needsRegistry(mode) {
		reg, err := tools.NewDefaultRegistry(deps.Store)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: tool registry: %w", err)
		}
		deps.Registry = reg
	}

	// --- Selector ---
	if needsSelector(mode) {
		switch strings.ToLower(cfg.Selector.Provider) {
		case "bedrock":
			llm, err := bedrock.New(ctx, bedrock.ClientConfig{
				Region:      cfg.Selector.Region,
				ModelID:     cfg.Selector.ModelID,
				Temperature: cfg.Selector.Temperature,
				MaxTokens:   cfg.Selector.MaxTokens,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: bedrock: %w", err)
			}
			deps.Selector = selector.NewBedrock(llm, logger)
		case "fallback":
			deps.Selector = selector.Fallback{}
		default:
			cleanup()
			return nil, nil, fmt.Errorf("wire: unknown selector provider %q", cfg.Selector.Provider)
		}
	}

	// --- Paper-trade logs ---
	deps.Logs = betlog.Open(betlog.Config{
		Dir:           cfg.Logs.Dir,
		BetFile:       cfg.Logs.BetFile,
		RunFile:       cfg.Logs.RunFile,
		ExecutionFile: cfg.Logs.ExecutionFile,
		StaleCheck:    cfg.Logs.StaleCheck,
	}, logger)

	// --- Notifications ---
	deps.Console = notify.NewConsole()
	if cfg.Notify.Enabled {
		senders := []notify.Sender{deps.Console}
		if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
			senders = append(senders, notify.NewTelegramSender(
				cfg.Notify.TelegramToken,
				cfg.Notify.TelegramChatID,
			))
		}
		if cfg.Notify.DiscordWebhookURL != "" {
			senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
		}
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	// --- S3 blob storage (only for modes that archive logs) ---
	if cfg.S3.Enabled && needsS3(mode) {
		store, err := s3blob.Open(ctx, s3blob.StoreConfig{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
			PathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.S3 = store

		paths := []string{
			deps.Logs.Bets.Path(),
			deps.Logs.Runs.Path(),
			deps.Logs.Executions.Path(),
			deps.Store.Path(),
		}
		deps.Archiver = s3blob.NewArchiver(store, cfg.S3.Prefix, paths, logger)
	}

	return deps, cleanup, nil
}
