package orchestrator

import "sync/atomic"

// Progress tracks the orchestrator's atomic discovered/persisted/indexed
// counters, consumed by observers (e.g. the CLI's progress reporter).
type Progress struct {
	discovered atomic.Int64
	persisted  atomic.Int64
	indexed    atomic.Int64
}

func (p *Progress) AddDiscovered(n int) { p.discovered.Add(int64(n)) }
func (p *Progress) AddPersisted(n int)  { p.persisted.Add(int64(n)) }
func (p *Progress) AddIndexed(n int)    { p.indexed.Add(int64(n)) }

// Snapshot is a point-in-time read of the counters.
type Snapshot struct {
	Discovered int64
	Persisted  int64
	Indexed    int64
}

func (p *Progress) Snapshot() Snapshot {
	return Snapshot{
		Discovered: p.discovered.Load(),
		Persisted:  p.persisted.Load(),
		Indexed:    p.indexed.Load(),
	}
}
