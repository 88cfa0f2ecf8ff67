package llm

import "sync"

// clientPool caches one SDK client per credential key.
type clientPool[T any] struct {
	mu      sync.Mutex
	clients map[string]T
	build   func(key string) (T, error)
}

func newClientPool[T any](build func(key string) (T, error)) *clientPool[T] {
	return &clientPool[T]{clients: make(map[string]T), build: build}
}

func (p *clientPool[T]) get(key string) (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[key]; ok {
		return c, nil
	}
	c, err := p.build(key)
	if err != nil {
		var zero T
		return zero, err
	}
	p.clients[key] = c
	return c, nil
}
