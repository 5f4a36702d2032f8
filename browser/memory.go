package browser

import (
	"fmt"
	"sync"
)

// Memory is an in-process Context. It keeps the latest value per cookie
// name+domain+path and per origin+key, like a browser would.
type Memory struct {
	mu      sync.RWMutex
	cookies []Cookie
	storage map[string]map[string]string // origin -> key -> value
}

var (
	_ Context = (*Memory)(nil)
	_ Clearer = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{storage: make(map[string]map[string]string)}
}

func (m *Memory) AddCookies(cookies ...Cookie) error {
	for _, c := range cookies {
		if c.Name == "" {
			return fmt.Errorf("cookie name is required")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cookies {
		if c.Path == "" {
			c.Path = "/"
		}
		m.cookies = upsertCookie(m.cookies, c)
	}
	return nil
}

func (m *Memory) SetLocalStorage(origin string, items ...StorageItem) error {
	if origin == "" {
		return fmt.Errorf("origin is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.storage[origin]; !ok {
		m.storage[origin] = make(map[string]string)
	}
	for _, item := range items {
		m.storage[origin][item.Name] = item.Value
	}
	return nil
}

func (m *Memory) ClearCookies(names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookies = removeCookies(m.cookies, names)
	return nil
}

func (m *Memory) ClearLocalStorage(origin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if origin == "" {
		m.storage = make(map[string]map[string]string)
		return nil
	}
	delete(m.storage, origin)
	return nil
}

// Cookie returns the first cookie with the given name.
func (m *Memory) Cookie(name string) (Cookie, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.cookies {
		if c.Name == name {
			return c, true
		}
	}
	return Cookie{}, false
}

// Cookies returns a copy of all cookies.
func (m *Memory) Cookies() []Cookie {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Cookie(nil), m.cookies...)
}

// Item returns the local storage value of key on origin.
func (m *Memory) Item(origin, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.storage[origin][key]
	return v, ok
}

// StorageLen returns the number of local storage entries across all origins.
func (m *Memory) StorageLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, items := range m.storage {
		n += len(items)
	}
	return n
}

func upsertCookie(cookies []Cookie, c Cookie) []Cookie {
	for i, existing := range cookies {
		if existing.Name == c.Name && existing.Domain == c.Domain && existing.Path == c.Path {
			cookies[i] = c
			return cookies
		}
	}
	return append(cookies, c)
}

func removeCookies(cookies []Cookie, names []string) []Cookie {
	if len(names) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	kept := cookies[:0]
	for _, c := range cookies {
		if _, ok := drop[c.Name]; !ok {
			kept = append(kept, c)
		}
	}
	return kept
}
