package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Handler returns nil only when the message is done and its offset may be
// committed.
type Handler func(ctx context.Context, m kafka.Message) error

const maxBackoff = 5 * time.Second

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       messageReader
	workers int
	backoff time.Duration
	log     zerolog.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, log zerolog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return newConsumer(r, workers, log.With().Str("group", group).Str("topic", topic).Logger())
}

func newConsumer(r messageReader, workers int, log zerolog.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, backoff: 200 * time.Millisecond, log: log}
}

// Start dispatches messages to workers until ctx ends. Each partition is
// handled by one worker in offset order.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				// after shutdown nothing more is handled, so no later
				// offset is committed past an unfinished one
				if ctx.Err() != nil {
					continue
				}
				c.handle(ctx, h, m)
			}
		}(lanes[i])
	}
	stop := func() {
		for _, l := range lanes {
			close(l)
		}
		wg.Wait()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		select {
		case lanes[c.lane(m.Partition)] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

// lane pins a partition to one worker. Commits are "up to" an offset, so a
// partition must be handled in order; keys map to partitions, which keeps
// one order's events ordered too.
func (c *Consumer) lane(partition int) int {
	if partition < 0 {
		partition = -partition
	}
	return partition % c.workers
}

// handle retries h with capped backoff until it succeeds or ctx ends, so a
// failing message never gets committed past.
func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) {
	wait := c.backoff
	for {
		err := h(ctx, m)
		if err == nil {
			break
		}
		c.log.Error().Err(err).Int("partition", m.Partition).Int64("offset", m.Offset).Str("key", string(m.Key)).Dur("retry_in", wait).Msg("handle message")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
		wait = min(wait*2, maxBackoff)
	}
	if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.log.Error().Err(err).Int64("offset", m.Offset).Msg("commit message")
	}
}
