// Package worker provides a NATS worker that serves broadcast requests:
// it resolves the daily halacha pair and fans it out to the channel and
// every subscribed chat.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/naorbrown/likutei-yomi/internal/core"
	"github.com/naorbrown/likutei-yomi/internal/events"
	"github.com/naorbrown/likutei-yomi/internal/halacha"
	"github.com/naorbrown/likutei-yomi/internal/speech"
)

// A full fan-out includes remote fetches, synthesis and rate-limited sends,
// so the per-message budget is generous.
const handleMessageTimeout = 5 * time.Minute

const dateLayout = "2006-01-02"

var (
	// ErrInvalidDate indicates a request carried a malformed date.
	ErrInvalidDate = errors.New("invalid broadcast date")
	// ErrNoRecipients indicates there is no channel and no subscribers.
	ErrNoRecipients = errors.New("no broadcast recipients")
)

// VoiceDeliverer synthesizes and sends the pair's voice notes.
type VoiceDeliverer interface {
	DeliverForPair(
		ctx context.Context,
		pair halacha.DailyPair,
		day time.Time,
		recipients []string,
		sender speech.VoiceSender,
	)
}

// AudioArchiver mirrors a day's voice notes into a shared store.
type AudioArchiver interface {
	Archive(ctx context.Context, date string, position int, audio []byte) error
}

// Worker listens for broadcast requests on a NATS subject and serves them.
type Worker struct {
	natsConnection *nats.Conn
	subject        string
	provider       core.PairProvider
	renderer       core.MessageRenderer
	sender         core.BroadcastSender
	registry       core.SubscriberRegistry
	voice          VoiceDeliverer
	audioCache     *speech.AudioCache
	archive        AudioArchiver
	channelID      string
	location       *time.Location
	log            *logger.Logger
}

// New creates a broadcast worker. archive may be nil when no shared audio
// store is configured.
func New(
	natsConnection *nats.Conn,
	subject string,
	provider core.PairProvider,
	renderer core.MessageRenderer,
	sender core.BroadcastSender,
	registry core.SubscriberRegistry,
	voice VoiceDeliverer,
	audioCache *speech.AudioCache,
	archive AudioArchiver,
	channelID string,
	location *time.Location,
	log *logger.Logger,
) *Worker {
	return &Worker{
		natsConnection: natsConnection,
		subject:        subject,
		provider:       provider,
		renderer:       renderer,
		sender:         sender,
		registry:       registry,
		voice:          voice,
		audioCache:     audioCache,
		archive:        archive,
		channelID:      channelID,
		location:       location,
		log:            log,
	}
}

// Run starts the worker and blocks until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info("Broadcast worker listening on %s", w.subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *Worker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := w.parseEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse broadcast request: %v", err)

		return
	}

	completed, err := w.processBroadcast(ctx, event)
	if err != nil {
		w.log.Error("Failed to process broadcast for workflow %s: %v",
			event.Header.WorkflowID, err)

		return
	}

	err = w.publishReply(msg, completed)
	if err != nil {
		w.log.Error("Failed to publish completion for workflow %s: %v",
			event.Header.WorkflowID, err)
	}
}

// processBroadcast resolves the pair for the requested date and fans the
// messages out. A failure to reach one recipient never blocks the rest.
func (w *Worker) processBroadcast(
	ctx context.Context,
	event *events.BroadcastRequestedEvent,
) (*events.BroadcastCompletedEvent, error) {
	day, err := w.resolveDay(event.Date)
	if err != nil {
		return nil, err
	}

	dateSeed := day.Format(dateLayout)

	pair, err := w.provider.DailyPair(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pair for %s: %w", dateSeed, err)
	}

	recipients, err := w.recipients(ctx)
	if err != nil {
		return nil, err
	}

	messages := w.renderer.DailyMessages(pair, day)
	sent := 0

	for _, recipient := range recipients {
		for _, message := range messages {
			sendErr := w.sender.SendMessage(ctx, recipient, message)
			if sendErr != nil {
				w.log.Warn("Failed to send to %s: %v", recipient, sendErr)

				break
			}

			sent++
		}
	}

	if event.WithVoice {
		w.voice.DeliverForPair(ctx, pair, day, recipients, w.sender)
		w.archivePairAudio(ctx, dateSeed)
	}

	completed := &events.BroadcastCompletedEvent{
		Header:       events.NewHeader(events.TypeBroadcastCompleted, event.Header.WorkflowID),
		Date:         dateSeed,
		Recipients:   len(recipients),
		MessagesSent: sent,
		UsedFallback: pair.HasFallback(),
	}

	return completed, nil
}

// archivePairAudio mirrors both cached voice notes into the shared archive,
// best effort. Fallback days never have cached audio to mirror.
func (w *Worker) archivePairAudio(ctx context.Context, dateSeed string) {
	if w.archive == nil || w.audioCache == nil {
		return
	}

	for position := 1; position <= 2; position++ {
		audio, ok := w.audioCache.Get(fmt.Sprintf("%s_%d", dateSeed, position))
		if !ok {
			continue
		}

		err := w.archive.Archive(ctx, dateSeed, position, audio)
		if err != nil {
			w.log.Warn("Failed to archive audio for %s part %d: %v",
				dateSeed, position, err)
		}
	}
}

// resolveDay parses the requested date, defaulting to today in the bot's
// timezone.
func (w *Worker) resolveDay(date string) (time.Time, error) {
	if date == "" {
		return time.Now().In(w.location), nil
	}

	day, err := time.ParseInLocation(dateLayout, date, w.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	return day, nil
}

func (w *Worker) recipients(ctx context.Context) ([]string, error) {
	subscribed, err := w.registry.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}

	recipients := make([]string, 0, len(subscribed)+1)
	if w.channelID != "" {
		recipients = append(recipients, w.channelID)
	}

	for _, chatID := range subscribed {
		if chatID != w.channelID {
			recipients = append(recipients, chatID)
		}
	}

	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	return recipients, nil
}

func (w *Worker) publishReply(msg *nats.Msg, completed *events.BroadcastCompletedEvent) error {
	if msg.Reply == "" {
		return nil
	}

	replyData, err := json.Marshal(completed)
	if err != nil {
		return fmt.Errorf("failed to marshal completion event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish completion event: %w", err)
	}

	return nil
}

func (w *Worker) parseEvent(msg *nats.Msg) (*events.BroadcastRequestedEvent, error) {
	var event events.BroadcastRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal broadcast request: %w", err)
	}

	return &event, nil
}
