package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresuchdata/popsync/internal/storage"
)

type stubFetcher struct {
	bodies map[string][]byte
	errs   map[string]error
	calls  []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{bodies: map[string][]byte{}, errs: map[string]error{}}
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if body, ok := f.bodies[url]; ok {
		return body, nil
	}
	return nil, fmt.Errorf("stub: no response for %s", url)
}

// faultyStorage wraps MemoryStorage and injects errors per operation.
type faultyStorage struct {
	*storage.MemoryStorage
	statErr error
	putErr  error
}

func (f *faultyStorage) StatObject(ctx context.Context, key string) (storage.ObjectInfo, error) {
	if f.statErr != nil {
		return storage.ObjectInfo{}, f.statErr
	}
	return f.MemoryStorage.StatObject(ctx, key)
}

func (f *faultyStorage) PutObject(ctx context.Context, key string, data []byte, opts storage.PutOptions) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.MemoryStorage.PutObject(ctx, key, data, opts)
}

var errBoom = errors.New("boom")
