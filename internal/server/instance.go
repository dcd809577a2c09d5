package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"isles-of-conquest/internal/game"
	"isles-of-conquest/internal/netsync"
	"isles-of-conquest/internal/protocol"
	"isles-of-conquest/pkg/logger"
	"isles-of-conquest/pkg/maps"
)

// inboundQueueSize bounds the intents waiting for the next tick.
const inboundQueueSize = 1024

// inbound is a batch of intents from one source.
type inbound struct {
	player  game.PlayerID
	intents []game.Intent
	// host batches may add and remove players.
	host bool
}

// InstanceOptions configures a new instance.
type InstanceOptions struct {
	Name       string
	World      *maps.World
	Settings   game.Settings
	TickRate   int
	MaxPlayers int
	Sync       netsync.Config
	Stats      *StatsRecorder
}

// Instance is one running simulation. All state mutation happens on its
// tick goroutine; network goroutines only use the inbound channel and the
// syncer.
type Instance struct {
	ID        string
	Name      string
	Preset    string
	Seed      int64
	CreatedAt time.Time

	state      *game.State
	meta       game.WorldMeta
	syncer     *netsync.Syncer
	inbound    chan inbound
	interval   time.Duration
	maxPlayers int
	stats      *StatsRecorder

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool

	mu   sync.RWMutex
	info protocol.InstanceInfo

	connsMu sync.Mutex
	conns   map[*Conn]struct{}
	closed  bool

	log *logrus.Entry
}

// NewInstance creates an instance. Call Start to begin ticking.
func NewInstance(opts InstanceOptions) *Instance {
	if opts.TickRate <= 0 {
		opts.TickRate = 20
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = 16
	}

	id := uuid.New().String()
	log := logger.Instance(id)

	state := game.NewState(opts.World, opts.Settings)
	state.SetLogger(log)

	syncer := netsync.New(opts.Sync)
	syncer.SetLogger(log)

	inst := &Instance{
		ID:         id,
		Name:       opts.Name,
		Preset:     opts.World.Config.ID,
		Seed:       opts.World.Config.Seed,
		CreatedAt:  time.Now(),
		state:      state,
		meta:       state.Meta(),
		syncer:     syncer,
		inbound:    make(chan inbound, inboundQueueSize),
		interval:   time.Second / time.Duration(opts.TickRate),
		maxPlayers: opts.MaxPlayers,
		stats:      opts.Stats,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		conns:      make(map[*Conn]struct{}),
		log:        log,
	}
	if inst.Name == "" {
		inst.Name = opts.World.Config.Name
	}
	state.OnKill = inst.onKill
	inst.updateInfo()
	return inst
}

// Start runs the tick loop in its own goroutine.
func (inst *Instance) Start() {
	inst.log.WithFields(logrus.Fields{
		"name":     inst.Name,
		"preset":   inst.Preset,
		"seed":     inst.Seed,
		"checksum": inst.meta.Checksum,
		"islands":  inst.meta.Islands,
	}).Info("Instance started")
	inst.started.Store(true)
	go inst.run()
}

// Stop ends the tick loop, waits for it to exit and closes every player
// connection.
func (inst *Instance) Stop() {
	inst.stopOnce.Do(func() {
		close(inst.stop)
	})
	if inst.started.Load() {
		<-inst.done
	}

	inst.connsMu.Lock()
	inst.closed = true
	conns := make([]*Conn, 0, len(inst.conns))
	for c := range inst.conns {
		conns = append(conns, c)
	}
	clear(inst.conns)
	inst.connsMu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// track registers a served connection. It reports false once the instance
// has been stopped.
func (inst *Instance) track(c *Conn) bool {
	inst.connsMu.Lock()
	defer inst.connsMu.Unlock()
	if inst.closed {
		return false
	}
	inst.conns[c] = struct{}{}
	return true
}

func (inst *Instance) untrack(c *Conn) {
	inst.connsMu.Lock()
	delete(inst.conns, c)
	inst.connsMu.Unlock()
}

func (inst *Instance) run() {
	defer close(inst.done)

	ticker := time.NewTicker(inst.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-inst.stop:
			inst.log.WithField("tick", inst.state.Tick()).Info("Instance stopped")
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			// A stalled process must not teleport ships across the map.
			inst.step(min(dt, 4*inst.interval))
		}
	}
}

// step runs one tick: drain input, reap lost players, simulate, publish.
func (inst *Instance) step(dt time.Duration) {
	start := time.Now()

	inst.drain()
	for _, id := range inst.syncer.Reap() {
		inst.log.WithField("player", id).Info("Reaping lost player")
		inst.state.Enqueue(game.Intent{Kind: game.IntentRemovePlayer, Player: id})
	}

	events := inst.state.Step(dt.Seconds())
	tick := inst.state.Tick()
	inst.syncer.Publish(tick, events, func() *game.Snapshot {
		return inst.state.Snapshot(inst.meta)
	})
	inst.syncer.Flush(tick)
	inst.updateInfo()

	if elapsed := time.Since(start); elapsed > inst.interval {
		inst.log.WithFields(logrus.Fields{
			"tick":     tick,
			"duration": elapsed,
			"budget":   inst.interval,
		}).Warn("Tick over budget")
	}
}

func (inst *Instance) drain() {
	for {
		select {
		case in := <-inst.inbound:
			for _, intent := range in.intents {
				if !in.host && !intent.Kind.Remote() {
					inst.log.WithFields(logrus.Fields{
						"player": in.player,
						"intent": intent.Kind,
					}).Debug("Rejected host-only intent")
					continue
				}
				if intent.Kind.PlayerScoped() {
					intent.Player = in.player
				}
				inst.state.Enqueue(intent)
			}
		default:
			return
		}
	}
}

// Join allocates a player for a new connection and queues its arrival.
func (inst *Instance) Join(name string, sender netsync.Sender) (game.PlayerID, error) {
	if inst.syncer.Len() >= inst.maxPlayers {
		return 0, ErrInstanceFull
	}

	id := inst.state.IDs().Next()
	if err := inst.syncer.Attach(id, sender, inst.ID); err != nil {
		return 0, err
	}

	in := inbound{
		player:  id,
		intents: []game.Intent{{Kind: game.IntentAddPlayer, Player: id, Name: name}},
		host:    true,
	}
	select {
	case inst.inbound <- in:
	case <-inst.stop:
		inst.syncer.Remove(id)
		return 0, ErrInstanceStopped
	}

	inst.log.WithFields(logrus.Fields{"player": id, "name": name}).Info("Player joined")
	return id, nil
}

// Resume attaches a new connection to a player whose connection is down.
func (inst *Instance) Resume(id game.PlayerID, sender netsync.Sender) error {
	return inst.syncer.Reconnect(id, sender, inst.ID)
}

// Release marks a player's connection down if sender is still the one in
// use. The player keeps its fleet until it resumes or is reaped.
func (inst *Instance) Release(id game.PlayerID, sender netsync.Sender) {
	inst.syncer.Release(id, sender)
}

// Submit queues a client batch for the next tick. It never blocks; a full
// queue drops the batch and reports false.
func (inst *Instance) Submit(id game.PlayerID, intents []game.Intent) bool {
	select {
	case inst.inbound <- inbound{player: id, intents: intents}:
		return true
	default:
		return false
	}
}

// AddBot queues one more bot.
func (inst *Instance) AddBot() bool {
	select {
	case inst.inbound <- inbound{intents: []game.Intent{{Kind: game.IntentAddBot}}, host: true}:
		return true
	default:
		return false
	}
}

// Info returns a copy of the instance summary as of the last tick.
func (inst *Instance) Info() protocol.InstanceInfo {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.info
}

// Meta returns the world description.
func (inst *Instance) Meta() game.WorldMeta { return inst.meta }

func (inst *Instance) updateInfo() {
	humans := inst.state.HumanCount()
	info := protocol.InstanceInfo{
		ID:         inst.ID,
		Name:       inst.Name,
		Preset:     inst.Preset,
		Seed:       inst.Seed,
		Tick:       inst.state.Tick(),
		Players:    humans,
		Bots:       inst.state.BotCount(),
		MaxPlayers: inst.maxPlayers,
		Islands:    inst.meta.Islands,
		World:      inst.meta,
		CreatedAt:  inst.CreatedAt.Unix(),
	}

	inst.mu.Lock()
	inst.info = info
	inst.mu.Unlock()
}

func (inst *Instance) onKill(k game.Kill) {
	inst.log.WithFields(logrus.Fields{
		"tick":   k.Tick,
		"killer": k.KillerName,
		"victim": k.VictimName,
	}).Debug("Ship sunk")
	if inst.stats != nil {
		inst.stats.Record(inst.ID, k)
	}
}
