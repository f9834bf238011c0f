// Package orderbook matches swap offers aggregated at a hub entity into
// fixed lot/tick quantization, per spec §4.5 "Orderbook": swap offers
// convert to (price_ticks, qty_lots), rest in a deterministic
// price-time-priority book keyed by "counterpartyId:offerId", and
// crossing orders produce Trade records carrying each side's fill
// ratio. Add returns them to its caller; neither this package nor
// entity.PlaceSwapOffer turns them into swap_resolve transactions.
//
// Grounded on the teacher's mempool/txdesc fee-rate priority queue
// (mempool/mempool.go): orders compete on a scalar priority key, ties
// broken by arrival order, same shape this book reuses for price-time
// priority within a pair.
package orderbook

import (
	"math/big"
	"sort"

	"github.com/xlnfinance/xln-sub008/ledger"
)

// LotScale is the fixed lot size of spec §8: 10^12 wei per lot.
var LotScale = big.NewInt(1_000_000_000_000)

// MaxLots is the largest representable quantity, per spec §8.
const MaxLots = uint32(1<<32 - 1)

// MaxFillRatio is the swap fill quantization denominator, matching
// account.MaxFillRatio.
const MaxFillRatio = 65535

// TickScale fixes the precision of a quantized price: price_ticks =
// want_lots * TickScale / give_lots.
const TickScale = 1_000_000

// ToLots quantizes an amount into whole lots, truncating any remainder
// below one lot (the remainder stays unmatched dust, consistent with
// the offer's resting amount never exceeding what was actually given).
func ToLots(amount ledger.Amount) (uint32, R) {
	lots := new(big.Int).Div(amount.Big(), LotScale)
	if !lots.IsUint64() || lots.Uint64() > uint64(MaxLots) {
		return 0, ErrLotsOverflow.New("", nil)
	}
	return uint32(lots.Uint64()), nil
}

// FromLots converts a lot count back into an Amount.
func FromLots(lots uint32) ledger.Amount {
	v := new(big.Int).Mul(big.NewInt(int64(lots)), LotScale)
	return ledger.NewAmountFromBig(v)
}

// PriceTicks computes the quantized price of an offer giving giveLots
// to receive wantLots.
func PriceTicks(giveLots, wantLots uint32) uint64 {
	if giveLots == 0 {
		return 0
	}
	return uint64(wantLots) * TickScale / uint64(giveLots)
}

// PairKey identifies one traded pair at the hub, direction-normalized
// so give/want sides of opposing offers land in the same book.
type PairKey struct {
	TokenA ledger.TokenID
	TokenB ledger.TokenID
}

func NewPairKey(give, want ledger.TokenID) PairKey {
	if give < want {
		return PairKey{TokenA: give, TokenB: want}
	}
	return PairKey{TokenA: want, TokenB: give}
}

// Order is one resting swap offer quantized into the book.
type Order struct {
	Key          string // "counterpartyId:offerId", per spec §4.5
	Counterparty ledger.EntityID
	OfferID      string
	GiveTokenID  ledger.TokenID
	WantTokenID  ledger.TokenID
	GiveLots     uint32
	WantLots     uint32
	PriceTicks   uint64
	MinFillRatio uint32
	Seq          uint64 // arrival order, for deterministic tie-break
}

// Trade is one crossing between two resting orders, expressed as the
// fill ratio each side experiences.
type Trade struct {
	TakerKey       string
	MakerKey       string
	TakerFillRatio uint32
	MakerFillRatio uint32
}

// Book holds every resting order, partitioned by pair.
type Book struct {
	pairs map[PairKey]map[string]*Order
	seq   uint64
}

func NewBook() *Book {
	return &Book{pairs: make(map[PairKey]map[string]*Order)}
}

func orderKey(counterparty ledger.EntityID, offerID string) string {
	var buf []byte
	buf = append(buf, []byte(offerIDPrefix(counterparty))...)
	buf = append(buf, ':')
	buf = append(buf, []byte(offerID)...)
	return string(buf)
}

func offerIDPrefix(id ledger.EntityID) string {
	if id == 0 {
		return "0"
	}
	var digits []byte
	for id > 0 {
		digits = append([]byte{byte('0' + id%10)}, digits...)
		id /= 10
	}
	return string(digits)
}

// Add rests a new order in the book and returns any trades it
// immediately crosses against, in deterministic (price, then arrival
// order) priority.
func (b *Book) Add(counterparty ledger.EntityID, offerID string, giveTokenID, wantTokenID ledger.TokenID, giveAmount, wantAmount ledger.Amount, minFillRatio uint32) ([]Trade, R) {
	key := orderKey(counterparty, offerID)
	pair := NewPairKey(giveTokenID, wantTokenID)
	if b.pairs[pair] == nil {
		b.pairs[pair] = make(map[string]*Order)
	}
	if _, exists := b.pairs[pair][key]; exists {
		return nil, ErrOrderExists.New("", nil)
	}

	giveLots, err := ToLots(giveAmount)
	if err != nil {
		return nil, err
	}
	wantLots, err := ToLots(wantAmount)
	if err != nil {
		return nil, err
	}
	if minFillRatio > MaxFillRatio {
		return nil, ErrInvalidFill.New("", nil)
	}

	b.seq++
	order := &Order{
		Key: key, Counterparty: counterparty, OfferID: offerID,
		GiveTokenID: giveTokenID, WantTokenID: wantTokenID,
		GiveLots: giveLots, WantLots: wantLots,
		PriceTicks: PriceTicks(giveLots, wantLots), MinFillRatio: minFillRatio,
		Seq: b.seq,
	}
	b.pairs[pair][key] = order
	log.Debugf("resting order %s: give %s of token %d, want %s of token %d",
		key, FormatLots(giveLots), giveTokenID, FormatLots(wantLots), wantTokenID)

	return b.match(pair), nil
}

// Cancel removes a resting order.
func (b *Book) Cancel(counterparty ledger.EntityID, offerID string, giveTokenID, wantTokenID ledger.TokenID) R {
	pair := NewPairKey(giveTokenID, wantTokenID)
	key := orderKey(counterparty, offerID)
	orders, ok := b.pairs[pair]
	if !ok {
		return ErrUnknownOrder.New("", nil)
	}
	if _, ok := orders[key]; !ok {
		return ErrUnknownOrder.New("", nil)
	}
	delete(orders, key)
	return nil
}

// match scans a pair's two sides (orders whose give/want tokens are
// mirror images of each other) for crossing prices, filling in
// deterministic price-then-arrival-order priority until no further
// cross exists. Matched orders are removed or shrunk in place.
func (b *Book) match(pair PairKey) []Trade {
	orders := b.pairs[pair]
	var trades []Trade

	for {
		var asideOrders, bsideOrders []*Order
		for _, o := range orders {
			if o.GiveTokenID == pair.TokenA {
				asideOrders = append(asideOrders, o)
			} else {
				bsideOrders = append(bsideOrders, o)
			}
		}
		if len(asideOrders) == 0 || len(bsideOrders) == 0 {
			break
		}
		sortOrders(asideOrders)
		sortOrders(bsideOrders)

		a := asideOrders[0]
		bb := bsideOrders[0]
		// Cross requires a's price (want-per-give) to be at most the
		// reciprocal of b's price: a gives TokenA wanting TokenB, b
		// gives TokenB wanting TokenA; they cross if a.WantLots <=
		// b.GiveLots scaled against a.GiveLots >= b.WantLots.
		if a.GiveLots == 0 || bb.GiveLots == 0 {
			break
		}
		crosses := uint64(a.WantLots)*uint64(bb.WantLots) <= uint64(a.GiveLots)*uint64(bb.GiveLots)
		if !crosses {
			break
		}

		fillLots := a.GiveLots
		if bb.WantLots < fillLots {
			fillLots = bb.WantLots
		}
		if fillLots == 0 {
			break
		}

		aRatio := ratioOf(fillLots, a.GiveLots)
		bRatio := ratioOf(fillLots, bb.WantLots)
		trades = append(trades, Trade{TakerKey: a.Key, MakerKey: bb.Key, TakerFillRatio: aRatio, MakerFillRatio: bRatio})

		a.GiveLots -= fillLots
		bb.WantLots -= fillLots
		if a.GiveLots == 0 {
			delete(orders, a.Key)
		}
		if bb.WantLots == 0 {
			delete(orders, bb.Key)
		}
	}
	return trades
}

func ratioOf(part, whole uint32) uint32 {
	if whole == 0 {
		return MaxFillRatio
	}
	r := uint64(part) * MaxFillRatio / uint64(whole)
	if r > MaxFillRatio {
		r = MaxFillRatio
	}
	return uint32(r)
}

func sortOrders(o []*Order) {
	sort.Slice(o, func(i, j int) bool {
		if o[i].PriceTicks != o[j].PriceTicks {
			return o[i].PriceTicks < o[j].PriceTicks
		}
		return o[i].Seq < o[j].Seq
	})
}
