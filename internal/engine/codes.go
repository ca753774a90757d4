package engine

import (
	"math/rand"
	"sync"
	"time"
)

const (
	codeLength  = 5
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// codeGenerator hands out short uppercase room codes. Uniqueness is checked
// against the store by the caller, not here.
type codeGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newCodeGenerator() *codeGenerator {
	return &codeGenerator{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (g *codeGenerator) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeCharset[g.rnd.Intn(len(codeCharset))]
	}
	return string(buf)
}
