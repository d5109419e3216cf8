package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader/vocab"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/ontology"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/klauspost/compress/zstd"
)

type memStore struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	getErr error
	putErr error
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	data, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (s *memStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.blobs[key] = data
	return nil
}

type countingBuilder struct {
	calls atomic.Int32
}

func (b *countingBuilder) build(ctx context.Context) (*ontology.Graph, *common.Diagnostics, error) {
	b.calls.Add(1)
	return ontology.NewBuilder(ontology.NewBuilderParams{
		Loaders: []loader.SourceLoader{vocab.ActivitiesLoader{}, vocab.ModificationsLoader{}},
	}).Build(ctx)
}

func TestLoadOrBuildPersistsAndReloads(t *testing.T) {
	store := newMemStore()
	b := &countingBuilder{}
	ctx := context.Background()

	first, diags, err := NewCache(NewCacheParams{Store: store}).LoadOrBuild(ctx, "v1", b.build)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if diags.Len() != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags.Entries())
	}
	if len(store.blobs) != 1 {
		t.Fatalf("expected one persisted blob, got %d", len(store.blobs))
	}

	// a fresh cache simulates a restarted process
	second, _, err := NewCache(NewCacheParams{Store: store}).LoadOrBuild(ctx, "v1", b.build)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.calls.Load() != 1 {
		t.Fatalf("expected one build, got %d", b.calls.Load())
	}
	if second.NodeCount() != first.NodeCount() || second.EdgeCount() != first.EdgeCount() {
		t.Fatalf("loaded graph differs: %d/%d vs %d/%d",
			second.NodeCount(), second.EdgeCount(), first.NodeCount(), first.EdgeCount())
	}
	if !second.Isa("INDRA_ACTIVITIES", "kinase", "INDRA_ACTIVITIES", "activity") {
		t.Fatalf("expected hierarchy to survive the round trip")
	}
}

func TestLoadOrBuildTreatsBadEntriesAsMiss(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(c *Cache, s *memStore)
	}{
		{
			name: "corrupt blob",
			setup: func(c *Cache, s *memStore) {
				s.blobs[c.Key("v2")] = []byte("garbage")
			},
		},
		{
			name: "other version under same key",
			setup: func(c *Cache, s *memStore) {
				g, _, err := (&countingBuilder{}).build(ctx)
				if err != nil {
					t.Fatalf("build: %v", err)
				}
				data, err := Encode(g, "v1")
				if err != nil {
					t.Fatalf("encode: %v", err)
				}
				s.blobs[c.Key("v2")] = data
			},
		},
		{
			name: "store read failure",
			setup: func(c *Cache, s *memStore) {
				s.getErr = errors.New("disk on fire")
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			store := newMemStore()
			c := NewCache(NewCacheParams{Store: store})
			test.setup(c, store)

			b := &countingBuilder{}
			g, diags, err := c.LoadOrBuild(ctx, "v2", b.build)
			if err != nil {
				t.Fatalf("expected rebuild, got %v", err)
			}
			if g == nil || b.calls.Load() != 1 {
				t.Fatalf("expected exactly one build, got %d", b.calls.Load())
			}
			if diags.Count(common.DiagCacheError) == 0 {
				t.Fatalf("expected cache_error diagnostic, got %v", diags.Entries())
			}
		})
	}
}

func TestLoadOrBuildPersistFailureStillReturnsGraph(t *testing.T) {
	store := newMemStore()
	store.putErr = errors.New("read-only")

	g, diags, err := NewCache(NewCacheParams{Store: store}).LoadOrBuild(context.Background(), "v1", (&countingBuilder{}).build)
	if err != nil || g == nil {
		t.Fatalf("expected graph despite persist failure, got %v", err)
	}
	if diags.Count(common.DiagCacheError) != 1 {
		t.Fatalf("expected one cache_error diagnostic, got %v", diags.Entries())
	}
}

func TestLoadOrBuildPropagatesBuildError(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := NewCache(NewCacheParams{Store: newMemStore()}).LoadOrBuild(context.Background(), "v1",
		func(context.Context) (*ontology.Graph, *common.Diagnostics, error) { return nil, nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected build error, got %v", err)
	}

	if _, _, err := NewCache(NewCacheParams{}).LoadOrBuild(context.Background(), "", nil); err == nil {
		t.Fatalf("expected error for empty version")
	}
}

// racingLocker stores a finished build while the caller waits for the lock,
// like a second process that won the race.
type racingLocker struct {
	store  *memStore
	blob   []byte
	locked int
}

func (l *racingLocker) Lock(_ context.Context, key string) (func(), error) {
	l.locked++
	l.store.blobs[key] = l.blob
	return func() {}, nil
}

func TestLoadOrBuildRereadsAfterLock(t *testing.T) {
	ctx := context.Background()
	g, _, err := (&countingBuilder{}).build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	blob, err := Encode(g, "v1")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	store := newMemStore()
	locker := &racingLocker{store: store, blob: blob}
	b := &countingBuilder{}

	got, _, err := NewCache(NewCacheParams{Store: store, Locker: locker}).LoadOrBuild(ctx, "v1", b.build)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if locker.locked != 1 || b.calls.Load() != 0 {
		t.Fatalf("expected lock once and no build, got %d locks and %d builds", locker.locked, b.calls.Load())
	}
	if got.NodeCount() != g.NodeCount() {
		t.Fatalf("expected the winner's graph")
	}
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string) (func(), error) {
	return nil, errors.New("database unavailable")
}

func TestLoadOrBuildBuildsWhenLockFails(t *testing.T) {
	b := &countingBuilder{}
	_, diags, err := NewCache(NewCacheParams{Store: newMemStore(), Locker: failingLocker{}}).
		LoadOrBuild(context.Background(), "v1", b.build)
	if err != nil {
		t.Fatalf("expected build without lock, got %v", err)
	}
	if b.calls.Load() != 1 || diags.Count(common.DiagCacheError) != 1 {
		t.Fatalf("expected one build and one diagnostic, got %d and %v", b.calls.Load(), diags.Entries())
	}
}

func TestLoadOrBuildConcurrentCallers(t *testing.T) {
	c := NewCache(NewCacheParams{Store: newMemStore()})
	b := &countingBuilder{}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, _, err := c.LoadOrBuild(context.Background(), "v1", b.build)
			if err != nil || g == nil {
				t.Errorf("load or build: %v", err)
			}
		}()
	}
	wg.Wait()

	// callers either join the running build or load its persisted blob
	if n := b.calls.Load(); n != 1 {
		t.Fatalf("expected one build, got %d", n)
	}
}

func TestKeySanitizesVersion(t *testing.T) {
	c := NewCache(NewCacheParams{Name: "bio"})
	if got := c.Key("2024/06 rc1"); got != "bio-2024_06_rc1.msgpack.zst" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir() + "/nested")

	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(ctx, "k", []byte("one")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("two")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "two" {
		t.Fatalf("expected two, got %q %v", got, err)
	}
}

func TestBadgerStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewBadgerStore(BadgerStoreOptions{InMemory: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(ctx, "k", []byte("blob")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "blob" {
		t.Fatalf("expected blob, got %q %v", got, err)
	}

	if _, err := NewBadgerStore(BadgerStoreOptions{}); err == nil {
		t.Fatalf("expected error without directory")
	}
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{objects: make(map[string][]byte)}
	s := NewS3Store(client, "bucket", "cache")

	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(ctx, "k", []byte("blob")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := client.objects["bucket/cache/k"]; !ok {
		t.Fatalf("expected object under prefix, got %v", client.objects)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "blob" {
		t.Fatalf("expected blob, got %q %v", got, err)
	}
}

func TestLoadOrBuildCancelledCallerDoesNotFailOthers(t *testing.T) {
	c := NewCache(NewCacheParams{Store: newMemStore()})
	b := &countingBuilder{}
	started := make(chan struct{})
	release := make(chan struct{})
	build := func(ctx context.Context) (*ontology.Graph, *common.Diagnostics, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		return b.build(ctx)
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, _, err := c.LoadOrBuild(ctx, "v1", build)
		first <- err
	}()
	<-started

	second := make(chan error, 1)
	go func() {
		g, _, err := c.LoadOrBuild(context.Background(), "v1", build)
		if err == nil && g == nil {
			err = errors.New("nil graph")
		}
		second <- err
	}()

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancelled caller to stop waiting, got %v", err)
	}
	close(release)
	if err := <-second; err != nil {
		t.Fatalf("second caller failed: %v", err)
	}
	if n := b.calls.Load(); n != 1 {
		t.Fatalf("expected one build, got %d", n)
	}
}

func TestEncodeWrapsWriterError(t *testing.T) {
	saved := encoderOptions
	t.Cleanup(func() { encoderOptions = saved })
	encoderOptions = []zstd.EOption{zstd.WithEncoderConcurrency(0)}

	_, err := Encode(ontology.Empty(), "v1")
	if err == nil || !strings.HasPrefix(err.Error(), "create zstd writer: ") {
		t.Fatalf("expected a wrapped writer error, got %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Fatalf("expected the zstd error to be wrapped")
	}
}
