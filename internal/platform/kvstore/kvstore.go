// Package kvstore is the persistent key-value store shared by the sync
// orchestrator, the webhook pipeline and the credential store.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	apperrors "retailsync/internal/pkg/errors"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = apperrors.ErrNotFound

// Store is the narrow persistence contract. Delete must remove all given keys
// or none of them.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// KV serializes writes per key on top of a Store. Set and Update on the same
// key never interleave; different keys proceed independently.
type KV struct {
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(store Store) *KV {
	return &KV{store: store, locks: make(map[string]*sync.Mutex)}
}

func (kv *KV) lock(key string) func() {
	kv.mu.Lock()
	l, ok := kv.locks[key]
	if !ok {
		l = &sync.Mutex{}
		kv.locks[key] = l
	}
	kv.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// lockAll takes the locks of keys in sorted order so multi-key callers
// cannot deadlock each other.
func (kv *KV) lockAll(keys []string) func() {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	unlocks := make([]func(), 0, len(sorted))
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		unlocks = append(unlocks, kv.lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

func (kv *KV) Get(ctx context.Context, key string) ([]byte, error) {
	return kv.store.Get(ctx, key)
}

func (kv *KV) Set(ctx context.Context, key string, value []byte) error {
	unlock := kv.lock(key)
	defer unlock()
	return kv.store.Set(ctx, key, value)
}

func (kv *KV) Delete(ctx context.Context, keys ...string) error {
	unlock := kv.lockAll(keys)
	defer unlock()
	return kv.store.Delete(ctx, keys...)
}

// Write sets and deletes several keys while holding all of their locks.
// Sets run before deletes.
func (kv *KV) Write(ctx context.Context, set map[string][]byte, del ...string) error {
	keys := append([]string(nil), del...)
	for key := range set {
		keys = append(keys, key)
	}
	unlock := kv.lockAll(keys)
	defer unlock()

	for key, value := range set {
		if err := kv.store.Set(ctx, key, value); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}
	if len(del) == 0 {
		return nil
	}
	return kv.store.Delete(ctx, del...)
}

// DeleteIf re-reads keys under their locks and deletes all of them when fn
// reports true. Missing keys are absent from values.
func (kv *KV) DeleteIf(ctx context.Context, keys []string, fn func(values map[string][]byte) bool) (bool, error) {
	unlock := kv.lockAll(keys)
	defer unlock()

	values := make(map[string][]byte, len(keys))
	for _, key := range keys {
		raw, err := kv.store.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("read %s: %w", key, err)
		}
		values[key] = raw
	}
	if !fn(values) {
		return false, nil
	}
	if err := kv.store.Delete(ctx, keys...); err != nil {
		return false, err
	}
	return true, nil
}

func (kv *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	return kv.store.Keys(ctx, prefix)
}

func (kv *KV) Ping(ctx context.Context) error {
	return kv.store.Ping(ctx)
}

func (kv *KV) Close() error {
	return kv.store.Close()
}

// Update runs a read-modify-write cycle while holding the key's lock.
// fn receives nil when the key does not exist. Returning a nil slice skips the write.
func (kv *KV) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	unlock := kv.lock(key)
	defer unlock()

	current, err := kv.store.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("read %s: %w", key, err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	return kv.store.Set(ctx, key, next)
}

// GetJSON decodes the value at key into v. It reports false when the key is missing.
func (kv *KV) GetJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	raw, err := kv.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (kv *KV) SetJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, raw)
}

// UpdateJSON decodes the current value into a fresh T (zero value when
// missing), applies fn and writes the result back under the key lock.
func UpdateJSON[T any](ctx context.Context, kv *KV, key string, fn func(*T) error) (T, error) {
	var out T
	err := kv.Update(ctx, key, func(current []byte) ([]byte, error) {
		var value T
		if current != nil {
			if err := json.Unmarshal(current, &value); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}
		if err := fn(&value); err != nil {
			return nil, err
		}
		out = value
		return json.Marshal(value)
	})
	return out, err
}
