package refresher

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/sentinelnexus/equipment-compliance-mgmt/internal/pkg/application/equipment"
)

// Guard tracks in-flight mutating requests. The background refresher
// checks it before swapping the snapshot, so a half-submitted edit is
// never raced by a refetch.
type Guard struct {
	sessions atomic.Int32
}

// Begin registers a mutating session and returns its release func.
func (g *Guard) Begin() func() {
	g.sessions.Add(1)
	return func() { g.sessions.Add(-1) }
}

func (g *Guard) SafeToRefresh() bool {
	return g.sessions.Load() == 0
}

type Refresher interface {
	Start()
	Stop()
}

type refresherImpl struct {
	done     chan bool
	log      zerolog.Logger
	app      equipment.Management
	guard    *Guard
	interval time.Duration
}

func New(app equipment.Management, guard *Guard, interval time.Duration, log zerolog.Logger) Refresher {
	return &refresherImpl{
		done:     make(chan bool),
		log:      log,
		app:      app,
		guard:    guard,
		interval: interval,
	}
}

func (r *refresherImpl) Start() {
	go backgroundWorker(r, r.done)
}

func (r *refresherImpl) Stop() {
	r.done <- true
}

func backgroundWorker(r *refresherImpl, done <-chan bool) {
	ctx := r.log.WithContext(context.Background())

	refresh := func() {
		if !r.guard.SafeToRefresh() {
			r.log.Debug().Msg("mutations in flight, skipping refresh")
			return
		}

		snap, err := r.app.Refresh(ctx)
		if err != nil {
			r.log.Error().Err(err).Msg("could not refresh equipment snapshot")
			return
		}

		r.log.Debug().Int("size", snap.Size()).Msg("snapshot refreshed")
	}

	refresh()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			refresh()
		}
	}
}
