package fleet

import (
	"sort"
	"sync"
)

// keyed is a mutex guarded map whose values are copied in and out so callers
// never share mutable state with the registry.
type keyed[T any] struct {
	mu    sync.RWMutex
	data  map[string]T
	clone func(T) T
}

func newKeyed[T any](clone func(T) T) *keyed[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &keyed[T]{data: map[string]T{}, clone: clone}
}

func (k *keyed[T]) get(key string) (T, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.data[key]
	if !ok {
		return v, false
	}
	return k.clone(v), true
}

func (k *keyed[T]) put(key string, v T) {
	k.mu.Lock()
	k.data[key] = k.clone(v)
	k.mu.Unlock()
}

func (k *keyed[T]) has(key string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.data[key]
	return ok
}

func (k *keyed[T]) update(key string, fn func(*T)) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.data[key]
	if !ok {
		return false
	}
	fn(&v)
	k.data[key] = v
	return true
}

// list returns copies sorted by key.
func (k *keyed[T]) list() []T {
	k.mu.RLock()
	defer k.mu.RUnlock()
	keys := make([]string, 0, len(k.data))
	for key := range k.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, key := range keys {
		out = append(out, k.clone(k.data[key]))
	}
	return out
}

func (k *keyed[T]) replace(items []T, key func(T) string) {
	data := make(map[string]T, len(items))
	for _, it := range items {
		data[key(it)] = k.clone(it)
	}
	k.mu.Lock()
	k.data = data
	k.mu.Unlock()
}

func (k *keyed[T]) len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.data)
}
