package engine

import (
	"sort"
	"sync"
	"time"

	"bioviz/internal/protocol"
)

// result is what an awaiting caller receives: a successful reply or the
// error that resolved the request instead.
type result struct {
	resp *protocol.Response
	err  error
}

// pending tracks one in-flight request. The channel has capacity one and
// receives exactly one result, sent by whichever path removed the entry
// from the registry.
type pending struct {
	cmd          string
	id           string
	ch           chan result
	registeredAt time.Time
}

func newPending(cmd, id string) *pending {
	return &pending{
		cmd:          cmd,
		id:           id,
		ch:           make(chan result, 1),
		registeredAt: time.Now(),
	}
}

func (p *pending) deliver(res result) {
	// Safe without a select: the entry left the registry before delivery, so
	// no second sender can exist and the buffered channel never blocks.
	p.ch <- res
}

// registry correlates worker replies with in-flight requests. The mutex makes
// the reply-versus-timeout race atomic: the first path to take an entry owns
// its resolution and every other path finds nothing.
type registry struct {
	mu      sync.Mutex
	entries map[string]*pending
	sealErr error
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*pending)}
}

// register adds an entry for id. It fails once the registry is sealed or
// when the id is already in flight.
func (r *registry) register(p *pending) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealErr != nil {
		return r.sealErr
	}
	if _, exists := r.entries[p.id]; exists {
		return ErrDuplicateRequestID
	}
	r.entries[p.id] = p
	return nil
}

// take removes and returns the entry for id. The caller that gets ok owns
// the request's resolution.
func (r *registry) take(id string) (*pending, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return p, ok
}

// takeSole removes and returns the only pending entry, if exactly one
// request is in flight. Used to correlate terminal replies from workers that
// do not echo request ids.
func (r *registry) takeSole() (*pending, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) != 1 {
		return nil, false
	}
	for id, p := range r.entries {
		delete(r.entries, id)
		return p, true
	}
	return nil, false
}

// seal marks the registry closed with err and returns every entry that was
// still pending. Only the first seal drains; later calls return nothing and
// keep the original error.
func (r *registry) seal(err error) []*pending {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealErr != nil {
		return nil
	}
	r.sealErr = err
	drained := make([]*pending, 0, len(r.entries))
	for id, p := range r.entries {
		delete(r.entries, id)
		drained = append(drained, p)
	}
	return drained
}

func (r *registry) sealError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sealErr
}

func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// InFlight describes one pending command for status displays.
type InFlight struct {
	Cmd       string
	RequestID string
	Age       time.Duration
}

// snapshot lists pending entries oldest first without disturbing them.
func (r *registry) snapshot() []InFlight {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	out := make([]InFlight, 0, len(r.entries))
	for _, p := range r.entries {
		out = append(out, InFlight{
			Cmd:       p.cmd,
			RequestID: p.id,
			Age:       now.Sub(p.registeredAt),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Age > out[j].Age })
	return out
}
