package payment

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"
)

// RefGenerator produces merchant-side transaction references. The date prefix
// matches what wallet gateways expect (they reject refs whose prefix is not
// the current day); the millisecond timestamp plus a randomly seeded serial
// suffix keeps refs unique under burst traffic.
type RefGenerator struct {
	Now    func() time.Time
	serial atomic.Uint64
	seeded atomic.Bool
}

// Next returns a fresh reference of the form YYMMDD_<millis><6 digits>.
func (g *RefGenerator) Next() string {
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	if g.seeded.CompareAndSwap(false, true) {
		g.serial.Store(uint64(randomSeed()))
	}
	suffix := g.serial.Add(1) % 1_000_000
	return fmt.Sprintf("%s_%d%06d", now.Format("060102"), now.UnixMilli(), suffix)
}

func randomSeed() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return uint32(time.Now().UnixNano())
	}
	return binary.BigEndian.Uint32(buf[:])
}
