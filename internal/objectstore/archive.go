// Package objectstore archives broadcast audio in a NATS JetStream object
// store, so other services can fetch a day's voice notes without triggering
// a fresh synthesis.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// keyPattern names an archived voice note by date and pair position.
const keyPattern = "audio_%s_%d.ogg"

// AudioArchive stores the synthesized voice notes for broadcast dates.
type AudioArchive struct {
	store  nats.ObjectStore
	bucket string
}

// New creates the archive bucket or binds to it when it already exists.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*AudioArchive, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: "Synthesized daily halacha audio",
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf(
				"failed to create audio archive bucket '%s': %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to bind to audio archive bucket '%s': %w", bucketName, err)
		}
	}

	return &AudioArchive{store: store, bucket: bucketName}, nil
}

// Archive stores the voice note for one half of a date's pair. position is 1
// or 2, matching the pair order.
func (a *AudioArchive) Archive(_ context.Context, date string, position int, audio []byte) error {
	key := fmt.Sprintf(keyPattern, date, position)

	_, err := a.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     nil,
		Metadata:    nil,
		Opts:        nil,
	}, bytes.NewReader(audio))
	if err != nil {
		return fmt.Errorf(
			"failed to archive audio '%s' in bucket '%s': %w", key, a.bucket, err)
	}

	return nil
}

// Fetch retrieves an archived voice note.
func (a *AudioArchive) Fetch(_ context.Context, date string, position int) ([]byte, error) {
	key := fmt.Sprintf(keyPattern, date, position)

	object, err := a.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get audio '%s' from bucket '%s': %w", key, a.bucket, err)
	}

	audio, readErr := io.ReadAll(object)
	closeErr := object.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read audio '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return audio, fmt.Errorf("failed to close audio '%s': %w", key, closeErr)
	}

	return audio, nil
}
