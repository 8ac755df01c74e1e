package pool

import (
	"sort"
	"time"
)

const (
	ConnFree = "free"
	ConnBusy = "busy"
	ConnUsed = "used"
)

// ConnStatus describes one connection. Busy is a free connection that is
// being pinged or released.
type ConnStatus struct {
	Status   string    `json:"status"`
	ID       string    `json:"id"`
	Hash     string    `json:"hash"`
	LastPing time.Time `json:"lastPing"`
	LastUse  time.Time `json:"lastUse"`
}

type Status struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Hash        string       `json:"hash"`
	FreeCount   int          `json:"freeCount"`
	UsedCount   int          `json:"usedCount"`
	Options     Options      `json:"options"`
	LastCheck   time.Time    `json:"lastCheck"`
	Connections []ConnStatus `json:"connections"`
}

// Status takes a snapshot of the pool.
func (p *Pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{
		ID:          p.id,
		Name:        p.name,
		Type:        p.params.Type(),
		Hash:        p.hash,
		FreeCount:   len(p.free),
		UsedCount:   len(p.used),
		Options:     p.opts,
		LastCheck:   p.lastCheck,
		Connections: make([]ConnStatus, 0, len(p.free)+len(p.used)),
	}

	for _, c := range p.free {
		status := ConnFree
		if c.locked {
			status = ConnBusy
		}
		st.Connections = append(st.Connections, connStatus(c, status))
	}

	used := make([]ConnStatus, 0, len(p.used))
	for _, c := range p.used {
		used = append(used, connStatus(c, ConnUsed))
	}
	sort.Slice(used, func(i, j int) bool { return used[i].ID < used[j].ID })
	st.Connections = append(st.Connections, used...)

	return st
}

func connStatus(c *conn, status string) ConnStatus {
	return ConnStatus{
		Status:   status,
		ID:       c.db.ID(),
		Hash:     c.db.Hash(),
		LastPing: c.db.LastPing(),
		LastUse:  c.db.LastUse(),
	}
}
