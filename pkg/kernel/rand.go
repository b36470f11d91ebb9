package kernel

import (
	"math/rand"
	"strings"
)

// prng wraps a seeded math/rand.Rand so every Emission Context draws from
// the same reproducible stream (spec §4.3: "a seedable PRNG owned by the
// kernel so that full runs remain reproducible for a given seed").
type prng struct {
	r *rand.Rand
}

func newPRNG(seed uint64) *prng {
	return &prng{r: rand.New(rand.NewSource(int64(seed)))}
}

func (p *prng) Float64() float64 {
	return p.r.Float64()
}

func (p *prng) GenRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + p.r.Intn(hi-lo)
}

const randomStringAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (p *prng) RandomString(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(randomStringAlphabet[p.r.Intn(len(randomStringAlphabet))])
	}
	return b.String()
}
