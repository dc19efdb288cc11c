package position

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnknownPosition   = errors.New("position: unknown position id")
	ErrLiquidityExceeded = errors.New("position: decrease exceeds recorded liquidity")
)

// Ledger owns all position records and the owner registry. Position IDs are
// a monotonically increasing uint64 sequence, ticket-style: ownership is
// looked up by ID, never by range.
type Ledger struct {
	nextID    uint64
	positions map[uint64]*Position
}

func NewLedger() *Ledger {
	return &Ledger{
		nextID:    1,
		positions: make(map[uint64]*Position),
	}
}

// Create mints a new empty position record and returns it.
func (l *Ledger) Create(poolID common.Hash, owner common.Address, tickLower, tickUpper int) *Position {
	p := New(l.nextID, poolID, owner, tickLower, tickUpper)
	l.nextID++
	l.positions[p.ID] = p
	return p
}

// Get returns the position for an ID.
func (l *Ledger) Get(id uint64) (*Position, error) {
	p, ok := l.positions[id]
	if !ok {
		return nil, ErrUnknownPosition
	}
	return p, nil
}

// OwnerOf returns the owner address recorded for a position ID.
func (l *Ledger) OwnerOf(id uint64) (common.Address, error) {
	p, ok := l.positions[id]
	if !ok {
		return common.Address{}, ErrUnknownPosition
	}
	return p.Owner, nil
}

// NextID returns the ID the next created position will receive, without
// consuming it. Batch application stages new positions against peeked IDs
// and only commits them through Put.
func (l *Ledger) NextID() uint64 {
	return l.nextID
}

// Put replaces a position record, used when committing batch clones.
func (l *Ledger) Put(p *Position) {
	l.positions[p.ID] = p
	if p.ID >= l.nextID {
		l.nextID = p.ID + 1
	}
}

// All returns every live position record.
func (l *Ledger) All() []*Position {
	out := make([]*Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	return out
}
