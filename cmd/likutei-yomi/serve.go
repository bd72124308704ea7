package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/naorbrown/likutei-yomi/internal/config"
	"github.com/naorbrown/likutei-yomi/internal/halacha"
	"github.com/naorbrown/likutei-yomi/internal/objectstore"
	"github.com/naorbrown/likutei-yomi/internal/speech"
	"github.com/naorbrown/likutei-yomi/internal/telegram"
	"github.com/naorbrown/likutei-yomi/internal/worker"
)

// noVoice is the voice deliverer used when the speech pipeline is disabled.
type noVoice struct{}

func (noVoice) DeliverForPair(
	_ context.Context,
	_ halacha.DailyPair,
	_ time.Time,
	_ []string,
	_ speech.VoiceSender,
) {
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the broadcast worker",
	Long: "Connects to NATS and serves broadcast requests until interrupted: " +
		"each request resolves the daily pair and delivers it to the channel " +
		"and every subscribed chat.",
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	application, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	store, err := openSubscribers(cfg, log)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := store.Close()
		if closeErr != nil {
			log.Warn("Failed to close subscriber store: %v", closeErr)
		}
	}()

	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	archive, err := buildArchive(cfg, natsConnection)
	if err != nil {
		return err
	}

	sender := telegram.NewClient(
		cfg.Telegram.BotToken, cfg.Telegram.SendsPerSecond, log)

	var voice worker.VoiceDeliverer = noVoice{}
	if application.pipeline != nil {
		voice = application.pipeline
	}

	broadcastWorker := worker.New(
		natsConnection,
		cfg.NATS.BroadcastRequestedSubject,
		application.selector,
		application.formatter,
		sender,
		store,
		voice,
		application.audioCache,
		archive,
		cfg.Telegram.ChannelID,
		cfg.Location(),
		log,
	)

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.System("likutei-yomi worker starting on subject %s",
		cfg.NATS.BroadcastRequestedSubject)

	err = broadcastWorker.Run(ctx)
	if err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}

	return nil
}

// buildArchive creates the JetStream audio archive when a bucket is
// configured. Returns a nil AudioArchiver otherwise.
func buildArchive(
	cfg *config.Config,
	natsConnection *nats.Conn,
) (worker.AudioArchiver, error) {
	bucket := cfg.NATS.AudioArchiveBucket
	if bucket == "" {
		return nil, nil
	}

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	archive, err := objectstore.New(jetstreamContext, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio archive: %w", err)
	}

	return archive, nil
}
