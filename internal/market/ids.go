package market

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// randomBits is the number of crypto-random bits mixed into each ID.
const randomBits = 10

// IDGenerator issues unique non-negative integer IDs for orders and
// trades: a millisecond timestamp shifted left by randomBits, combined
// with cryptographically strong random bits. The timestamp-read-and-
// combine step is the critical section; while it is held the generator
// also tracks the last issued ID and bumps past it, so bursts of calls
// inside one millisecond can never produce a duplicate.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns a fresh ID. Safe for concurrent use.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failure leaves no safe way to issue IDs
		panic(err)
	}
	rnd := int64(binary.BigEndian.Uint16(buf[:]) & (1<<randomBits - 1))

	id := time.Now().UnixMilli()<<randomBits | rnd
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
