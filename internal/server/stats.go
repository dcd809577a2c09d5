package server

import (
	"sync"

	"github.com/sirupsen/logrus"

	"isles-of-conquest/internal/database"
	"isles-of-conquest/internal/game"
	"isles-of-conquest/pkg/logger"
)

// statsQueueSize bounds the kills waiting to be persisted.
const statsQueueSize = 256

type killRecord struct {
	instance string
	kill     game.Kill
}

// StatsRecorder persists kills off the tick goroutine.
type StatsRecorder struct {
	db    *database.DB
	queue chan killRecord
	wg    sync.WaitGroup
	log   *logrus.Entry
}

// NewStatsRecorder starts a recorder writing to db.
func NewStatsRecorder(db *database.DB) *StatsRecorder {
	r := &StatsRecorder{
		db:    db,
		queue: make(chan killRecord, statsQueueSize),
		log:   logger.Log.WithField("component", "stats"),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record queues a kill. It never blocks the caller; when the queue is full
// the kill is dropped with a warning.
func (r *StatsRecorder) Record(instance string, k game.Kill) {
	select {
	case r.queue <- killRecord{instance: instance, kill: k}:
	default:
		r.log.WithFields(logrus.Fields{
			"instance": instance,
			"tick":     k.Tick,
		}).Warn("Stats queue full, dropping kill")
	}
}

// Close flushes the queue and stops the recorder.
func (r *StatsRecorder) Close() {
	close(r.queue)
	r.wg.Wait()
}

func (r *StatsRecorder) run() {
	defer r.wg.Done()
	for rec := range r.queue {
		k := rec.kill
		if err := r.db.RecordKill(k.KillerName, k.VictimName); err != nil {
			r.log.WithError(err).Error("Failed to record kill")
		}
		if err := r.db.AddKillEvent(rec.instance, k.Tick, k.KillerName, k.VictimName); err != nil {
			r.log.WithError(err).Error("Failed to log kill")
		}
	}
}
