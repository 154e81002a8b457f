// Package dbtest provides an in-memory stand-in for database.Client so
// the domain store packages (session, subscription, retained, match)
// can be tested without a live KVS. It implements just enough Redis
// semantics — hash/set/list, CHECKDEL, INCRLIMIT — to exercise the real
// call sequences those packages issue.
package dbtest

import (
	"context"
	"strconv"
	"sync"

	"github.com/life-stream-dev/mqtt-cluster-store/internal/database"
)

type FakeClient struct {
	mu      sync.Mutex
	strings map[string]string
	sets    map[string]map[string]struct{}
	hashes  map[string]map[string]string
	lists   map[string][]string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		strings: map[string]string{},
		sets:    map[string]map[string]struct{}{},
		hashes:  map[string]map[string]string{},
		lists:   map[string][]string{},
	}
}

func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Get(ctx context.Context, key string) *database.Future[database.Optional[string]] {
	return database.Go(func() (database.Optional[string], error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		v, ok := f.strings[key]
		if !ok {
			return database.None[string](), nil
		}
		return database.Some(v), nil
	})
}

func (f *FakeClient) Set(ctx context.Context, key, value string) *database.Future[struct{}] {
	return database.Go(func() (struct{}, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.strings[key] = value
		return struct{}{}, nil
	})
}

func (f *FakeClient) Del(ctx context.Context, key string) *database.Future[int64] {
	return database.Go(func() (int64, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var n int64
		if _, ok := f.strings[key]; ok {
			delete(f.strings, key)
			n = 1
		}
		if _, ok := f.sets[key]; ok {
			delete(f.sets, key)
			n = 1
		}
		if _, ok := f.hashes[key]; ok {
			delete(f.hashes, key)
			n = 1
		}
		if _, ok := f.lists[key]; ok {
			delete(f.lists, key)
			n = 1
		}
		return n, nil
	})
}

func (f *FakeClient) SAdd(ctx context.Context, key, member string) *database.Future[int64] {
	return database.Go(func() (int64, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		set, ok := f.sets[key]
		if !ok {
			set = map[string]struct{}{}
			f.sets[key] = set
		}
		if _, exists := set[member]; exists {
			return 0, nil
		}
		set[member] = struct{}{}
		return 1, nil
	})
}

func (f *FakeClient) SRem(ctx context.Context, key, member string) *database.Future[int64] {
	return database.Go(func() (int64, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		set, ok := f.sets[key]
		if !ok {
			return 0, nil
		}
		if _, exists := set[member]; !exists {
			return 0, nil
		}
		delete(set, member)
		return 1, nil
	})
}

func (f *FakeClient) SScan(ctx context.Context, key string, cursor uint64, count int64) *database.Future[database.ScanPage] {
	return database.Go(func() (database.ScanPage, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		members := make([]string, 0, len(f.sets[key]))
		for m := range f.sets[key] {
			members = append(members, m)
		}
		return database.ScanPage{Members: members, Cursor: 0}, nil
	})
}

func (f *FakeClient) HGet(ctx context.Context, key, field string) *database.Future[database.Optional[string]] {
	return database.Go(func() (database.Optional[string], error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		h, ok := f.hashes[key]
		if !ok {
			return database.None[string](), nil
		}
		v, ok := h[field]
		if !ok {
			return database.None[string](), nil
		}
		return database.Some(v), nil
	})
}

func (f *FakeClient) HSet(ctx context.Context, key, field, value string) *database.Future[int64] {
	return database.Go(func() (int64, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		h, ok := f.hashes[key]
		if !ok {
			h = map[string]string{}
			f.hashes[key] = h
		}
		_, existed := h[field]
		h[field] = value
		if existed {
			return 0, nil
		}
		return 1, nil
	})
}

func (f *FakeClient) HSetMap(ctx context.Context, key string, values map[string]string) *database.Future[struct{}] {
	return database.Go(func() (struct{}, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		h, ok := f.hashes[key]
		if !ok {
			h = map[string]string{}
			f.hashes[key] = h
		}
		for k, v := range values {
			h[k] = v
		}
		return struct{}{}, nil
	})
}

func (f *FakeClient) HDel(ctx context.Context, key, field string) *database.Future[int64] {
	return database.Go(func() (int64, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		h, ok := f.hashes[key]
		if !ok {
			return 0, nil
		}
		if _, exists := h[field]; !exists {
			return 0, nil
		}
		delete(h, field)
		return 1, nil
	})
}

func (f *FakeClient) HGetAll(ctx context.Context, key string) *database.Future[map[string]string] {
	return database.Go(func() (map[string]string, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := map[string]string{}
		for k, v := range f.hashes[key] {
			out[k] = v
		}
		return out, nil
	})
}

func (f *FakeClient) HMGet(ctx context.Context, key string, fields ...string) *database.Future[[]database.Optional[string]] {
	return database.Go(func() ([]database.Optional[string], error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		h := f.hashes[key]
		out := make([]database.Optional[string], len(fields))
		for i, field := range fields {
			if v, ok := h[field]; ok {
				out[i] = database.Some(v)
			} else {
				out[i] = database.None[string]()
			}
		}
		return out, nil
	})
}

func (f *FakeClient) HIncrBy(ctx context.Context, key, field string, delta int64) *database.Future[int64] {
	return database.Go(func() (int64, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		h, ok := f.hashes[key]
		if !ok {
			h = map[string]string{}
			f.hashes[key] = h
		}
		cur, _ := strconv.ParseInt(h[field], 10, 64)
		cur += delta
		h[field] = strconv.FormatInt(cur, 10)
		return cur, nil
	})
}

func (f *FakeClient) RPush(ctx context.Context, key, value string) *database.Future[int64] {
	return database.Go(func() (int64, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lists[key] = append(f.lists[key], value)
		return int64(len(f.lists[key])), nil
	})
}

func (f *FakeClient) LPop(ctx context.Context, key string) *database.Future[database.Optional[string]] {
	return database.Go(func() (database.Optional[string], error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := f.lists[key]
		if len(list) == 0 {
			return database.None[string](), nil
		}
		v := list[0]
		f.lists[key] = list[1:]
		return database.Some(v), nil
	})
}

func (f *FakeClient) LRange(ctx context.Context, key string, start, stop int64) *database.Future[[]string] {
	return database.Go(func() ([]string, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := make([]string, len(f.lists[key]))
		copy(out, f.lists[key])
		return out, nil
	})
}

func (f *FakeClient) LRem(ctx context.Context, key string, count int64, value string) *database.Future[int64] {
	return database.Go(func() (int64, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := f.lists[key]
		out := make([]string, 0, len(list))
		var removed int64
		for _, v := range list {
			if v == value {
				removed++
				continue
			}
			out = append(out, v)
		}
		f.lists[key] = out
		return removed, nil
	})
}

func (f *FakeClient) CheckDel(ctx context.Context, key, expected string) *database.Future[int64] {
	return database.Go(func() (int64, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.strings[key] != expected {
			return 0, nil
		}
		delete(f.strings, key)
		return 1, nil
	})
}

func (f *FakeClient) IncrLimit(ctx context.Context, key string, limit int64) *database.Future[int64] {
	return database.Go(func() (int64, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		cur, _ := strconv.ParseInt(f.strings[key], 10, 64)
		cur++
		if cur > limit {
			cur = 1
		}
		f.strings[key] = strconv.FormatInt(cur, 10)
		return cur, nil
	})
}
