package trace

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/dslab-go/simkit/pkg/kernel"
)

// Kind discriminates the shape of a trace Record.
type Kind string

const (
	KindScheduled    Kind = "task.scheduled"
	KindStarted      Kind = "task.started"
	KindFinished     Kind = "task.finished"
	KindFailed       Kind = "task.failed"
	KindDataTransfer Kind = "data.transfer"
	KindDataReady    Kind = "data.ready"
)

// Record is one immutable entry in a DAG run's trace (spec §4.11). Seq is a
// per-run monotonically increasing sequence number, distinct from the
// kernel's own virtual Time, so replay can always recover total order even
// among same-instant events.
type Record struct {
	RunID    string
	Seq      uint64
	Time     float64
	Kind     Kind
	Task     int
	Resource kernel.Id
	Cores    int
	DataItem int
	Detail   string
}

// Subscriber is a channel that receives trace records as they are appended.
type Subscriber chan Record

// Broker fans out appended Records to every live subscriber without
// blocking the runner that is producing them, adapted from the teacher's
// deleted pkg/events broadcaster (background dispatch goroutine + buffered
// per-subscriber channel, drop-on-full instead of backpressure).
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
	recordCh    chan Record
	stopCh      chan struct{}
}

// NewBroker creates a Broker. Call Start before publishing.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		recordCh:    make(chan Record, 256),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's background fan-out loop.
func (b *Broker) Start() { go b.run() }

// Stop terminates the fan-out loop. Publish after Stop is a no-op.
func (b *Broker) Stop() { close(b.stopCh) }

// Subscribe registers a new listener and returns its channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := make(Subscriber, 64)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes and closes a listener's channel.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish enqueues a Record for fan-out to every current subscriber.
func (b *Broker) Publish(r Record) {
	select {
	case b.recordCh <- r:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case r := <-b.recordCh:
			b.broadcast(r)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(r Record) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		select {
		case sub <- r:
		default:
			// subscriber buffer full; drop rather than stall the runner
		}
	}
}

var bucketRecords = []byte("records")

// Store is an optional durable append-only sink for a run's trace, adapted
// from the teacher's pkg/storage/boltdb.go bucket-per-entity idiom: one
// bucket, keyed by an 8-byte big-endian Seq so BoltDB's native key
// ordering doubles as trace replay order.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (or creates) a bbolt-backed trace store under dataDir.
func OpenStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "trace.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("trace: open database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Append persists one Record.
func (s *Store) Append(r Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		return b.Put(seqKey(r.Seq), data)
	})
}

// All returns every persisted Record in Seq order.
func (s *Store) All() ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		return b.ForEach(func(k, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			records = append(records, r)
			return nil
		})
	})
	return records, err
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		k[i] = byte(seq)
		seq >>= 8
	}
	return k
}

// Log is the runner's write side: it assigns sequence numbers, publishes to
// an optional Broker, and persists to an optional Store.
type Log struct {
	mu     sync.Mutex
	nextSeq uint64
	broker *Broker
	store  *Store
}

// NewLog creates a Log. broker and store may each be nil.
func NewLog(broker *Broker, store *Store) *Log {
	return &Log{broker: broker, store: store}
}

// Append assigns the next sequence number to r, then publishes/persists it.
// Persistence errors are returned; publish never fails (drop-on-full).
func (l *Log) Append(r Record) error {
	l.mu.Lock()
	r.Seq = l.nextSeq
	l.nextSeq++
	l.mu.Unlock()

	if l.broker != nil {
		l.broker.Publish(r)
	}
	if l.store != nil {
		return l.store.Append(r)
	}
	return nil
}
