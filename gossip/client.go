package gossip

import (
	"encoding/hex"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/gorilla/websocket"

	"github.com/xlnfinance/xln-sub008/ledger"
)

// wireProfile is Profile's wire form: the public key travels as
// compressed-hex since *btcec.PublicKey carries no exported fields for
// encoding/json to walk.
type wireProfile struct {
	EntityID  ledger.EntityID `json:"entityId"`
	PubKeyHex string          `json:"pubKeyHex"`
	BaseFee   ledger.Amount   `json:"baseFee"`
	ShortName string          `json:"shortName"`
}

type wireEdge struct {
	A ledger.EntityID `json:"a"`
	B ledger.EntityID `json:"b"`
}

// wireSnapshot is one full push from the gossip aggregator: the
// complete known profile/edge set, replacing whatever this client had
// cached before.
type wireSnapshot struct {
	Profiles []wireProfile `json:"profiles"`
	Edges    []wireEdge    `json:"edges"`
}

func (p wireProfile) toProfile() (Profile, error) {
	var pub *btcec.PublicKey
	if p.PubKeyHex != "" {
		b, err := hex.DecodeString(p.PubKeyHex)
		if err != nil {
			return Profile{}, err
		}
		pub, err = btcec.ParsePubKey(b)
		if err != nil {
			return Profile{}, err
		}
	}
	return Profile{
		EntityID:  p.EntityID,
		PubKey:    pub,
		BaseFee:   p.BaseFee,
		ShortName: p.ShortName,
	}, nil
}

// WSDirectory is a Directory fed by a long-poll websocket connection to
// a remote gossip aggregator. It never blocks a Profile/FindRoute
// caller on the network: every pushed snapshot replaces an in-memory
// MemDirectory wholesale, and reads hit that cache under a read lock.
// Grounded on the teacher's addrmgr, which likewise separates a
// slow out-of-band population path from a synchronous lookup surface.
type WSDirectory struct {
	mu    sync.RWMutex
	cache *MemDirectory
	conn  *websocket.Conn

	closeOnce sync.Once
	closed    chan struct{}
}

// DialWSDirectory opens a websocket connection to url and starts
// consuming snapshot pushes in the background. The returned Directory
// is immediately usable; it reads empty until the first push arrives.
func DialWSDirectory(url string) (*WSDirectory, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	d := &WSDirectory{
		cache:  NewMemDirectory(),
		conn:   conn,
		closed: make(chan struct{}),
	}
	go d.readLoop()
	return d, nil
}

func (d *WSDirectory) readLoop() {
	defer close(d.closed)
	for {
		var snap wireSnapshot
		if err := d.conn.ReadJSON(&snap); err != nil {
			return
		}
		next := NewMemDirectory()
		for _, wp := range snap.Profiles {
			p, err := wp.toProfile()
			if err != nil {
				log.Warnf("dropping malformed gossip profile for entity %d: %v", wp.EntityID, err)
				continue
			}
			next.Publish(p)
		}
		for _, e := range snap.Edges {
			next.AddEdge(e.A, e.B)
		}
		d.mu.Lock()
		d.cache = next
		d.mu.Unlock()
	}
}

func (d *WSDirectory) Profile(id ledger.EntityID) (Profile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cache.Profile(id)
}

func (d *WSDirectory) FindRoute(source, target ledger.EntityID) ([]ledger.EntityID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cache.FindRoute(source, target)
}

// Close tears down the underlying websocket connection and waits for
// the read loop to observe it.
func (d *WSDirectory) Close() error {
	err := d.conn.Close()
	d.closeOnce.Do(func() {})
	<-d.closed
	return err
}
