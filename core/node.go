package core

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"lendledger/core/events"
	"lendledger/core/types"
	"lendledger/native/lending"
	"lendledger/native/liquidity"
	"lendledger/observability/metrics"
	"lendledger/storage"
)

// DefaultBlockInterval is the ledger's block cadence: all durations in loan
// terms are denominated in 6-second blocks.
const DefaultBlockInterval = 6 * time.Second

// recentEventCap bounds the replay buffer handed to new subscribers.
const recentEventCap = 256

// BlockClock derives the current block height from wall-clock time since
// genesis.
type BlockClock struct {
	genesis  time.Time
	interval time.Duration
}

// NewBlockClock constructs a clock. A zero interval falls back to the
// default cadence.
func NewBlockClock(genesis time.Time, interval time.Duration) BlockClock {
	if interval <= 0 {
		interval = DefaultBlockInterval
	}
	return BlockClock{genesis: genesis, interval: interval}
}

// Height returns the current block height.
func (c BlockClock) Height() uint64 {
	if c.interval <= 0 {
		return 0
	}
	elapsed := time.Since(c.genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / c.interval)
}

// Node owns the engines, serialises mutations against shared state, and fans
// emitted events out to subscribers (RPC streams, the audit indexer).
type Node struct {
	mu           sync.Mutex
	db           storage.Database
	state        *storage.State
	lendingEng   *lending.Engine
	liquidityEng *liquidity.Engine
	clock        BlockClock
	logger       *slog.Logger

	subMu   sync.Mutex
	nextSub uint64
	subs    map[uint64]chan *types.Event
	recent  []*types.Event
}

// NewNode wires the engines to shared storage and installs itself as their
// event emitter.
func NewNode(db storage.Database, params lending.Params, clock BlockClock, logger *slog.Logger) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	state := storage.NewState(db)
	led := lending.NewEngine(params)
	led.SetState(state)
	liq := liquidity.NewEngine()
	liq.SetState(state)
	n := &Node{
		db:           db,
		state:        state,
		lendingEng:   led,
		liquidityEng: liq,
		clock:        clock,
		logger:       logger,
		subs:         make(map[uint64]chan *types.Event),
	}
	led.SetEmitter(n)
	liq.SetEmitter(n)
	return n
}

// Lending exposes the lending engine. Callers must go through Do so heights
// are stamped and calls serialise.
func (n *Node) Lending() *lending.Engine { return n.lendingEng }

// Liquidity exposes the liquidity engine.
func (n *Node) Liquidity() *liquidity.Engine { return n.liquidityEng }

// Height returns the current block height.
func (n *Node) Height() uint64 { return n.clock.Height() }

// Do runs one ledger operation under the node lock with the engines pinned
// to the current height, recording latency and outcome metrics. Every RPC
// handler funnels through here, which is what gives each call
// transaction-per-call semantics.
func (n *Node) Do(method string, fn func() error) error {
	start := time.Now()
	n.mu.Lock()
	height := n.clock.Height()
	n.lendingEng.SetBlockHeight(height)
	n.liquidityEng.SetBlockHeight(height)
	err := fn()
	n.mu.Unlock()

	metrics.OperationSeconds.WithLabelValues(method).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
		n.logger.Warn("ledger operation failed", "method", method, "height", height, "err", err)
	}
	metrics.OperationsTotal.WithLabelValues(method, result).Inc()
	return err
}

// Emit implements events.Emitter: it stamps identity and height onto the
// payload, counts it, and fans it out without blocking on slow subscribers.
func (n *Node) Emit(evt events.Event) {
	payload, ok := evt.(*types.Event)
	if !ok {
		payload = &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
	}
	payload.ID = uuid.NewString()
	payload.Height = n.clock.Height()
	metrics.EventsEmitted.WithLabelValues(payload.Type).Inc()

	n.subMu.Lock()
	defer n.subMu.Unlock()
	n.recent = append(n.recent, payload)
	if len(n.recent) > recentEventCap {
		n.recent = n.recent[len(n.recent)-recentEventCap:]
	}
	for id, ch := range n.subs {
		select {
		case ch <- payload:
		default:
			n.logger.Warn("dropping event for slow subscriber", "subscriber", id, "type", payload.Type)
		}
	}
}

// Subscribe registers an event channel. The returned id releases it via
// Unsubscribe.
func (n *Node) Subscribe(buffer int) (uint64, <-chan *types.Event) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan *types.Event, buffer)
	n.subMu.Lock()
	defer n.subMu.Unlock()
	n.nextSub++
	id := n.nextSub
	n.subs[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (n *Node) Unsubscribe(id uint64) {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	if ch, ok := n.subs[id]; ok {
		delete(n.subs, id)
		close(ch)
	}
}

// RecentEvents returns a copy of the replay buffer.
func (n *Node) RecentEvents() []*types.Event {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	out := make([]*types.Event, len(n.recent))
	copy(out, n.recent)
	return out
}

// Close releases the underlying database.
func (n *Node) Close() {
	n.db.Close()
}
