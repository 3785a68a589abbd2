// Package di provides a minimal dependency injection container with
// string-keyed services and type-safe tokens for cross-module wiring.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	// Get returns the service registered under name, constructing it on
	// first use when a factory was registered. Returns nil if unknown.
	Get(name string) any
}

// Container is the write side: services are registered either as ready
// values or as lazy factories resolved on first Get.
type Container interface {
	ServiceRegistry

	// Register stores a ready value under name.
	Register(name string, value any)

	// RegisterFactory stores a lazy constructor under name. The factory
	// runs at most once; its result is memoized.
	RegisterFactory(name string, factory func(ServiceRegistry) any)
}

type container struct {
	mu        sync.Mutex
	values    map[string]any
	factories map[string]func(ServiceRegistry) any
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		values:    make(map[string]any),
		factories: make(map[string]func(ServiceRegistry) any),
	}
}

func (c *container) Register(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
}

func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
}

func (c *container) Get(name string) any {
	c.mu.Lock()
	if v, ok := c.values[name]; ok {
		c.mu.Unlock()
		return v
	}
	factory, ok := c.factories[name]
	c.mu.Unlock()

	if !ok {
		return nil
	}

	// Factories run outside the lock so they can Get their own
	// dependencies; the result is memoized, last write wins on a race.
	v := factory(c)

	c.mu.Lock()
	c.values[name] = v
	c.mu.Unlock()

	return v
}

// Token is a typed handle for a registered service.
type Token[T any] struct {
	name string
}

// NewToken creates a token for the given service name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the registry key behind the token.
func (t Token[T]) Name() string {
	return t.name
}

// RegisterToken registers a typed factory under the token's name.
func RegisterToken[T any](c Container, t Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(t.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves a token, panicking on missing or mistyped services:
// a wiring mistake is a programming error, not a runtime condition.
func GetToken[T any](sr ServiceRegistry, t Token[T]) T {
	v := sr.Get(t.name)
	if v == nil {
		panic(fmt.Sprintf("di: service %q not registered", t.name))
	}
	typed, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has type %T, not the requested type", t.name, v))
	}
	return typed
}
