package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/naorbrown/likutei-yomi/internal/events"
)

// A broadcast fans out to every subscriber at a limited rate, so the reply
// can take a while.
const broadcastReplyTimeout = 5 * time.Minute

var (
	broadcastDate  string
	broadcastVoice bool
)

var broadcastCmd = &cobra.Command{
	Use:   "broadcast",
	Short: "Request a broadcast from the running worker",
	Long: "Publishes a broadcast request over NATS and waits for the " +
		"completion reply from the serve worker.",
	RunE: runBroadcast,
}

func init() {
	broadcastCmd.Flags().StringVar(
		&broadcastDate, "date", "", "calendar date to broadcast (YYYY-MM-DD, default today)")
	broadcastCmd.Flags().BoolVar(
		&broadcastVoice, "voice", false, "also deliver voice notes")
	rootCmd.AddCommand(broadcastCmd)
}

func runBroadcast(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	request := events.BroadcastRequestedEvent{
		Header:    events.NewHeader(events.TypeBroadcastRequested, ""),
		Date:      broadcastDate,
		WithVoice: broadcastVoice,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast request: %w", err)
	}

	log.Info("Requesting broadcast (workflow %s)", request.Header.WorkflowID)

	reply, err := natsConnection.Request(
		cfg.NATS.BroadcastRequestedSubject, requestData, broadcastReplyTimeout)
	if err != nil {
		return fmt.Errorf("failed to request broadcast: %w", err)
	}

	var completed events.BroadcastCompletedEvent

	err = json.Unmarshal(reply.Data, &completed)
	if err != nil {
		return fmt.Errorf("failed to decode completion reply: %w", err)
	}

	cmd.Printf("Broadcast for %s complete: %d messages to %d recipients\n",
		completed.Date, completed.MessagesSent, completed.Recipients)

	if completed.UsedFallback {
		cmd.Println("Warning: fallback content was served for this date")
	}

	return nil
}
