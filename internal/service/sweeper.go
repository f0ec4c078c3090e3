package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/immxrtalbeast/consult_rooms/internal/domain"
	"github.com/immxrtalbeast/consult_rooms/lib/logger/sl"
	"golang.org/x/sync/errgroup"
)

// Sweeper periodically ends rooms that outlived their scheduled end.
type Sweeper struct {
	rooms       *RoomService
	interval    time.Duration
	concurrency int
	log         *slog.Logger
}

func NewSweeper(rooms *RoomService, interval time.Duration, concurrency int, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		rooms:       rooms,
		interval:    interval,
		concurrency: concurrency,
		log:         log,
	}
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	const op = "service.sweeper.run"
	log := s.log.With(slog.String("op", op))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info("expiry sweeper started", slog.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			log.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				log.Error("sweep failed", sl.Err(err))
			}
		}
	}
}

// SweepOnce ends every expired room and returns how many it ended. A
// failure on one room does not stop the others.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	const op = "service.sweeper.sweepOnce"
	log := s.log.With(slog.String("op", op))

	var candidates []*domain.Room
	for _, status := range []domain.RoomStatus{domain.RoomStatusActive, domain.RoomStatusScheduled} {
		rooms, err := s.rooms.store.ListRoomsByStatus(ctx, status)
		if err != nil {
			return 0, storeErr(op, err)
		}
		candidates = append(candidates, rooms...)
	}

	now := s.rooms.now()
	var ended atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, room := range candidates {
		if !expiredForSweep(room, now) {
			continue
		}
		roomID := room.ID
		g.Go(func() error {
			ok, err := s.rooms.EndExpired(gctx, roomID)
			if err != nil {
				log.Error("failed to end expired room", slog.String("room_id", roomID), sl.Err(err))
				return nil
			}
			if ok {
				ended.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(ended.Load()), fmt.Errorf("%s: %w", op, err)
	}

	if n := ended.Load(); n > 0 {
		log.Info("expired rooms ended", slog.Int64("count", n))
	}
	return int(ended.Load()), nil
}
