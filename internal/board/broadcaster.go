package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dernier-metro/internal/logging"
	"dernier-metro/internal/publisher"
	"dernier-metro/internal/schedule"
)

type Publisher interface {
	PublishBoard(msg publisher.BoardMessage) error
}

// Broadcaster periodically projects the next arrivals for a fixed set of
// stations and publishes one board message per station.
type Broadcaster struct {
	projector *schedule.Projector
	pub       Publisher
	line      string
	stations  []string
	interval  time.Duration
	count     int
	now       func() time.Time
	log       zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBroadcaster(projector *schedule.Projector, pub Publisher, line string, stations []string, interval time.Duration, count int) *Broadcaster {
	return &Broadcaster{
		projector: projector,
		pub:       pub,
		line:      line,
		stations:  stations,
		interval:  interval,
		count:     schedule.ClampCount(count),
		now:       time.Now,
		log:       logging.Component("board"),
	}
}

// Message builds the board for one station from a single clock reading.
func Message(projector *schedule.Projector, line, station string, now time.Time, count int) publisher.BoardMessage {
	ps := projector.ProjectSeries(now, count)
	msg := publisher.BoardMessage{
		Station:   station,
		Line:      line,
		Service:   "open",
		TZ:        projector.Timezone(),
		Timestamp: now,
	}
	if ps[0].ServiceClosed {
		msg.Service = "closed"
		return msg
	}
	msg.Arrivals = ps
	return msg
}

// PublishAll publishes one board per station using the same clock reading
// for every station.
func (b *Broadcaster) PublishAll() error {
	now := b.now()
	var errs []error
	for _, station := range b.stations {
		msg := Message(b.projector, b.line, station, now, b.count)
		if err := b.pub.PublishBoard(msg); err != nil {
			errs = append(errs, fmt.Errorf("station %s: %w", station, err))
		}
	}
	return errors.Join(errs...)
}

// Start launches the publish loop: one round immediately, then one per interval.
func (b *Broadcaster) Start(parent context.Context) {
	if len(b.stations) == 0 || b.interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	b.cancel = cancel
	b.wg.Add(1)
	b.log.Info().Int("stations", len(b.stations)).Dur("interval", b.interval).Msg("starting departure board")
	go func() {
		defer b.wg.Done()
		if err := b.PublishAll(); err != nil {
			b.log.Error().Err(err).Msg("publish board")
		}
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := b.PublishAll(); err != nil {
					b.log.Error().Err(err).Msg("publish board")
				}
			}
		}
	}()
}

func (b *Broadcaster) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}
