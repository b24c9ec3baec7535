package notifier

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a Notifier from its channel config (webhook URL, SMTP
// settings and so on).
type Factory func(config map[string]string) (Notifier, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds a provider factory under its name. Adapters call this
// from init, so a duplicate name is a programming error and panics.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, taken := factories[name]; taken {
		panic(fmt.Sprintf("notifier: duplicate registration for %q", name))
	}
	factories[name] = factory
}

// New builds the named provider from its config.
func New(name string, config map[string]string) (Notifier, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("notifier: unknown provider %q", name)
	}
	return factory(config)
}

// Available lists the registered provider names, sorted.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
