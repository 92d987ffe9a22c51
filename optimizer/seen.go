package optimizer

import (
	"hash/fnv"
	"sync"
	"sync/atomic"

	"gridpolicy/policy"
)

const numShards = 64 // power of 2

// TrajectorySet counts distinct action trajectories. Fingerprints are
// sharded across mutexes so workers rarely contend.
type TrajectorySet struct {
	shards [numShards]struct {
		mu    sync.Mutex
		items map[uint64]struct{}
	}
	size atomic.Int64
}

func NewTrajectorySet() *TrajectorySet {
	ts := &TrajectorySet{}
	for i := range ts.shards {
		ts.shards[i].items = make(map[uint64]struct{}, 64)
	}
	return ts
}

// Fingerprint hashes the ordered actions of every year, deficit actions included.
func Fingerprint(r IterationResult) uint64 {
	h := fnv.New64a()
	var buf [2]byte
	for _, year := range policy.Years() {
		buf[0], buf[1] = byte(year>>8), byte(year)
		h.Write(buf[:])
		for _, a := range r.DeficitActions[year] {
			h.Write([]byte{'d'})
			h.Write([]byte(a.String()))
		}
		for _, a := range r.Actions[year] {
			h.Write([]byte{'a'})
			h.Write([]byte(a.String()))
		}
	}
	return h.Sum64()
}

// Add records r's fingerprint. It returns true if the trajectory is new.
func (ts *TrajectorySet) Add(r IterationResult) bool {
	fp := Fingerprint(r)
	shard := &ts.shards[fp&(numShards-1)]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if _, ok := shard.items[fp]; ok {
		return false
	}
	shard.items[fp] = struct{}{}
	ts.size.Add(1)
	return true
}

func (ts *TrajectorySet) Len() int { return int(ts.size.Load()) }
