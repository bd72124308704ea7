// Package core defines the interfaces shared by the broadcast worker and the
// CLI commands.
package core

import (
	"context"
	"time"

	"github.com/naorbrown/likutei-yomi/internal/halacha"
)

// PairProvider resolves the daily halacha pair for a calendar date.
type PairProvider interface {
	DailyPair(ctx context.Context, day time.Time) (halacha.DailyPair, error)
}

// MessageRenderer renders a pair into transport-ready message chunks.
type MessageRenderer interface {
	DailyMessages(pair halacha.DailyPair, day time.Time) []string
}

// BroadcastSender delivers text messages and voice notes to a single chat.
type BroadcastSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
	SendVoice(ctx context.Context, chatID string, audio []byte, caption string) error
}

// SubscriberRegistry lists the chats registered for the daily broadcast.
type SubscriberRegistry interface {
	All(ctx context.Context) ([]string, error)
}
