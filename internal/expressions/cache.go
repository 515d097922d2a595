package expressions

import "sync"

// maxCachedPrograms bounds the programs held by one engine.
const maxCachedPrograms = 1024

// cache memoizes compiled programs by expression text. Safe for concurrent
// use. A full cache is cleared before the next insert.
type cache[P any] struct {
	compile func(expression string) (P, error)

	mu       sync.RWMutex
	programs map[string]P
}

func newCache[P any](compile func(expression string) (P, error)) *cache[P] {
	return &cache[P]{
		compile:  compile,
		programs: make(map[string]P),
	}
}

func (c *cache[P]) get(expression string) (P, error) {
	c.mu.RLock()
	prg, ok := c.programs[expression]
	c.mu.RUnlock()
	if ok {
		return prg, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if prg, ok := c.programs[expression]; ok {
		return prg, nil
	}
	prg, err := c.compile(expression)
	if err != nil {
		var zero P
		return zero, err
	}
	if len(c.programs) >= maxCachedPrograms {
		clear(c.programs)
	}
	c.programs[expression] = prg
	return prg, nil
}

func (c *cache[P]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}
