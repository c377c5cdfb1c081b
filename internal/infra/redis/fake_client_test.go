//go:build !integration

package redis

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"
)

// fakeClient is an in-memory Client. Expirations are recorded, not enforced.
type fakeClient struct {
	mu      sync.Mutex
	data    map[string]string
	expires map[string]time.Duration
	failGet error
	failInc error
	// failExpire fails the next n Expire calls.
	failExpire int
	gets       int
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string]string{}, expires: map[string]time.Duration{}}
}

func (f *fakeClient) Ping(ctx context.Context) error { return nil }

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	default:
		return errors.New("unsupported value")
	}
	f.expires[key] = expiration
	return nil
}

func (f *fakeClient) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failGet != nil {
		return "", f.failGet
	}
	v, ok := f.data[key]
	if !ok {
		return "", ErrMiss
	}
	return v, nil
}

func (f *fakeClient) Incr(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInc != nil {
		return 0, f.failInc
	}
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (f *fakeClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failExpire > 0 {
		f.failExpire--
		return errors.New("i/o timeout")
	}
	f.expires[key] = expiration
	return nil
}

func (f *fakeClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return -2, nil
	}
	if d, ok := f.expires[key]; ok {
		return d, nil
	}
	return -1, nil
}

func (f *fakeClient) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
		delete(f.expires, k)
	}
	return nil
}

func (f *fakeClient) Close() error { return nil }
