// Package kv implements the key-homed store described in §4.5: a local
// map guarded by a mutex and condition variable, transparent forwarding
// to a key's home node, and waitAndGet with hybrid local/remote blocking.
package kv

import (
	"fmt"
	"sync"
	"time"

	"github.com/clusterdf/ddf/internal/messaging"
	"github.com/clusterdf/ddf/internal/metrics"
	"github.com/clusterdf/ddf/internal/transport"
	"github.com/clusterdf/ddf/pkg/log"
)

// PollInterval is the fixed backoff waitAndGet uses against a remote key
// (§4.5's "e.g. 100ms"), when no Notifier is configured to shortcut it.
const PollInterval = 100 * time.Millisecond

// Notifier is the optional push-notification capability pkg/notify
// implements. A Store with none configured behaves exactly like the
// polling baseline.
type Notifier interface {
	Publish(subject string) error
	SubscribeOnce(subject string) (<-chan struct{}, func(), error)
}

// Directory resolves a home node index to its advertised "host:port"
// address — normally internal/clusternode.Node.Directory().
type Directory func() []string

// Store is the per-node KV map plus the machinery to reach other nodes.
type Store struct {
	nodeID    int
	directory Directory
	notifier  Notifier

	mu          sync.Mutex
	cond        *sync.Cond
	data        map[string][]byte
	putOccurred bool
}

// NewStore builds a Store for the node identified by nodeID, resolving
// remote addresses through directory. notifier may be nil.
func NewStore(nodeID int, directory Directory, notifier Notifier) *Store {
	s := &Store{
		nodeID:    nodeID,
		directory: directory,
		notifier:  notifier,
		data:      make(map[string][]byte),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Store) numNodes() int {
	return len(s.directory())
}

// NamedKey builds a Key for name against the store's current cluster
// size — the entry point callers that only know a name (not a home node)
// use.
func (s *Store) NamedKey(name string) Key {
	return NamedKey(name, s.numNodes())
}

func (s *Store) homeAddr(k Key) (string, error) {
	dir := s.directory()
	if k.HomeNode < 0 || k.HomeNode >= len(dir) {
		return "", fmt.Errorf("kv: home node %d out of range (directory size %d)", k.HomeNode, len(dir))
	}
	return dir[k.HomeNode], nil
}

// Put stores value under key, forwarding to the home node if it is not
// this one (§4.5).
func (s *Store) Put(key Key, value []byte) error {
	metrics.KVPutTotal.Inc()
	if key.HomeNode == s.nodeID {
		s.putLocal(key.Name, value)
		return nil
	}

	addr, err := s.homeAddr(key)
	if err != nil {
		return err
	}
	payload, err := messaging.EncodePut(key.Name, value)
	if err != nil {
		return err
	}
	msg := messaging.New("", 0, messaging.PUT, payload)
	resp, err := transport.Request(addr, []byte(msg.Encode()))
	if err != nil {
		return fmt.Errorf("kv: put %s: %w", key, err)
	}
	reply, err := messaging.Decode(string(resp))
	if err != nil {
		return fmt.Errorf("kv: put %s: %w", key, err)
	}
	if reply.Tag != messaging.ACK {
		return fmt.Errorf("kv: put %s: home node refused", key)
	}
	return nil
}

func (s *Store) putLocal(name string, value []byte) {
	s.mu.Lock()
	s.data[name] = append([]byte(nil), value...)
	s.putOccurred = true
	s.mu.Unlock()
	s.cond.Broadcast()

	if s.notifier != nil {
		if err := s.notifier.Publish(subjectFor(name)); err != nil {
			log.Warnf("kv: notify publish for %s: %v", name, err)
		}
	}
}

func subjectFor(name string) string {
	return "ddf.kv." + name
}

// Get returns the value for key and whether it was present, forwarding to
// the home node if it is not this one (§4.5).
func (s *Store) Get(key Key) ([]byte, bool, error) {
	if key.HomeNode == s.nodeID {
		v, ok := s.getLocal(key.Name)
		metrics.ObserveGet(ok)
		return v, ok, nil
	}

	addr, err := s.homeAddr(key)
	if err != nil {
		return nil, false, err
	}
	payload, err := messaging.EncodeGet(key.Name)
	if err != nil {
		return nil, false, err
	}
	msg := messaging.New("", 0, messaging.GET, payload)
	resp, err := transport.Request(addr, []byte(msg.Encode()))
	if err != nil {
		return nil, false, fmt.Errorf("kv: get %s: %w", key, err)
	}
	reply, err := messaging.Decode(string(resp))
	if err != nil {
		return nil, false, fmt.Errorf("kv: get %s: %w", key, err)
	}
	if reply.Tag == messaging.NACK {
		metrics.ObserveGet(false)
		return nil, false, nil
	}
	if reply.Tag != messaging.ACK {
		return nil, false, fmt.Errorf("kv: get %s: unexpected reply tag %v", key, reply.Tag)
	}
	metrics.ObserveGet(true)
	return []byte(reply.Payload), true, nil
}

func (s *Store) getLocal(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// WaitAndGet blocks until key exists, then returns its value (§4.5). A
// local home waits on the store's condition variable; a remote home polls
// at PollInterval, racing a Notifier subscription when one is configured.
func (s *Store) WaitAndGet(key Key) ([]byte, error) {
	if key.HomeNode == s.nodeID {
		return s.waitAndGetLocal(key.Name), nil
	}
	return s.waitAndGetRemote(key)
}

func (s *Store) waitAndGetLocal(name string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		for !s.putOccurred {
			s.cond.Wait()
		}
		s.putOccurred = false
		if v, ok := s.data[name]; ok {
			return append([]byte(nil), v...)
		}
	}
}

func (s *Store) waitAndGetRemote(key Key) ([]byte, error) {
	if s.notifier != nil {
		return s.waitAndGetRemoteNotified(key)
	}

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		if v, ok, err := s.Get(key); err != nil {
			return nil, err
		} else if ok {
			return v, nil
		}
		<-ticker.C
	}
}

// waitAndGetRemoteNotified races a NATS subscription against the normal
// polling ticker, taking whichever fires first — strictly additive: if
// the notification never arrives (message dropped, broker down), polling
// still converges exactly as it would with no notifier at all.
func (s *Store) waitAndGetRemoteNotified(key Key) ([]byte, error) {
	fired, unsubscribe, err := s.notifier.SubscribeOnce(subjectFor(key.Name))
	if err != nil {
		log.Warnf("kv: notify subscribe for %s: %v, falling back to polling", key, err)
		return s.waitAndGetRemotePolling(key)
	}
	defer unsubscribe()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		if v, ok, err := s.Get(key); err != nil {
			return nil, err
		} else if ok {
			return v, nil
		}
		select {
		case <-fired:
		case <-ticker.C:
		}
	}
}

func (s *Store) waitAndGetRemotePolling(key Key) ([]byte, error) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		if v, ok, err := s.Get(key); err != nil {
			return nil, err
		} else if ok {
			return v, nil
		}
		<-ticker.C
	}
}

// HandlePut implements internal/clusternode.Handler: an inbound PUT has
// already been routed to this node as home, so it is always a local
// insert (§4.5).
func (s *Store) HandlePut(name string, value []byte) error {
	s.putLocal(name, value)
	return nil
}

// HandleGet implements internal/clusternode.Handler.
func (s *Store) HandleGet(name string) ([]byte, bool) {
	return s.getLocal(name)
}
