// Package gossip is the external collaborator of spec §1: "Gossip
// overlay (treated as a key/profile lookup service)". It is not a
// protocol implementation — just the lookup interface the entity
// package depends on to resolve a counterparty's routing profile
// (base fee, crypto public key) and, failing a direct account, a
// multi-hop path to a target entity.
//
// Grounded on the teacher's addrmgr: a read-mostly directory populated
// out of band, queried synchronously by consensus-adjacent code.
package gossip

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/xlnfinance/xln-sub008/ledger"
)

// Profile is what an entity publishes about itself for routing purposes.
type Profile struct {
	EntityID  ledger.EntityID
	PubKey    *btcec.PublicKey
	BaseFee   ledger.Amount
	ShortName string
}

// Directory is the profile/path lookup service entity code depends on;
// entity adapts it to htlc.HopKey. A production deployment backs it with the real gossip
// overlay; this module only specifies the interface (spec §1 Non-goal).
type Directory interface {
	// Profile returns the published profile for id, if known.
	Profile(id ledger.EntityID) (Profile, bool)

	// FindRoute returns a best-effort path from source to target
	// (source first, target last), used by directPayment when no
	// explicit route was given and no direct account exists. Returns
	// false if no path is known.
	FindRoute(source, target ledger.EntityID) ([]ledger.EntityID, bool)
}

// MemDirectory is a trivial in-memory Directory, useful for tests and
// single-process simulations where every entity's profile is known
// up front.
type MemDirectory struct {
	profiles map[ledger.EntityID]Profile
	edges    map[ledger.EntityID][]ledger.EntityID
}

func NewMemDirectory() *MemDirectory {
	return &MemDirectory{
		profiles: make(map[ledger.EntityID]Profile),
		edges:    make(map[ledger.EntityID][]ledger.EntityID),
	}
}

func (d *MemDirectory) Publish(p Profile) {
	d.profiles[p.EntityID] = p
}

// AddEdge records a bidirectional direct-account edge used by FindRoute's
// breadth-first search.
func (d *MemDirectory) AddEdge(a, b ledger.EntityID) {
	d.edges[a] = append(d.edges[a], b)
	d.edges[b] = append(d.edges[b], a)
}

func (d *MemDirectory) Profile(id ledger.EntityID) (Profile, bool) {
	p, ok := d.profiles[id]
	return p, ok
}

func (d *MemDirectory) FindRoute(source, target ledger.EntityID) ([]ledger.EntityID, bool) {
	if source == target {
		return []ledger.EntityID{source}, true
	}
	type node struct {
		id   ledger.EntityID
		path []ledger.EntityID
	}
	visited := map[ledger.EntityID]bool{source: true}
	queue := []node{{id: source, path: []ledger.EntityID{source}}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range d.edges[cur.id] {
			if visited[next] {
				continue
			}
			path := append(append([]ledger.EntityID{}, cur.path...), next)
			if next == target {
				return path, true
			}
			visited[next] = true
			queue = append(queue, node{id: next, path: path})
		}
	}
	return nil, false
}
