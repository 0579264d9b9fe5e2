package poller

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/alertium/alertium/catalog"
	"github.com/alertium/alertium/seenstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	badges []catalog.Badge
	err    error
}

func (f *fakeFetcher) FetchGlobal(ctx context.Context) ([]catalog.Badge, error) {
	return f.badges, f.err
}

type fakeAnnouncer struct {
	announced []string
	err       error
}

func (a *fakeAnnouncer) AnnounceBadge(ctx context.Context, badge catalog.Badge) error {
	a.announced = append(a.announced, badge.ID)
	return a.err
}

func badge(id string) catalog.Badge {
	return catalog.Badge{ID: id, Name: "badge " + id, Kind: catalog.KindGlobal}
}

func testPoller(t *testing.T) (*Poller, *fakeFetcher, *fakeAnnouncer) {
	t.Helper()
	fetcher := &fakeFetcher{}
	announcer := &fakeAnnouncer{}
	p := &Poller{
		Fetcher:  fetcher,
		Store:    seenstore.NewFileSeenStore(filepath.Join(t.TempDir(), "seen.json")),
		Notifier: announcer,
	}
	return p, fetcher, announcer
}

func loadPoller(t *testing.T, p *Poller) {
	t.Helper()
	seen, err := p.Store.Load(context.Background())
	require.NoError(t, err)
	p.seen = seen
}

func TestDiff(t *testing.T) {
	assert := assert.New(t)

	current := []catalog.Badge{badge("a:1"), badge("b:1"), badge("c:1")}
	fresh := Diff(current, map[string]bool{"b:1": true})
	require.Len(t, fresh, 2)
	// fetch order is preserved
	assert.Equal("a:1", fresh[0].ID)
	assert.Equal("c:1", fresh[1].ID)

	assert.Empty(Diff(nil, map[string]bool{"b:1": true}))
	assert.Len(Diff(current, map[string]bool{}), 3)
}

func TestFirstRunBootstrapsSilently(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	p, fetcher, announcer := testPoller(t)
	loadPoller(t, p)

	fetcher.badges = []catalog.Badge{badge("a:1"), badge("b:1")}
	p.RunOnce(ctx)

	// zero announcements regardless of catalog size
	assert.Empty(announcer.announced)
	assert.Equal(2, p.SeenCount())

	seen, err := p.Store.Load(ctx)
	assert.NoError(err)
	assert.Len(seen, 2)
}

func TestNewBadgeAnnouncedOnce(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	p, fetcher, announcer := testPoller(t)
	loadPoller(t, p)

	fetcher.badges = []catalog.Badge{badge("a:1")}
	p.RunOnce(ctx)
	assert.Empty(announcer.announced)

	fetcher.badges = []catalog.Badge{badge("a:1"), badge("b:1"), badge("b:2")}
	p.RunOnce(ctx)
	assert.Equal([]string{"b:1", "b:2"}, announcer.announced)

	// ids never appear in two separate announcement batches
	p.RunOnce(ctx)
	p.RunOnce(ctx)
	assert.Equal([]string{"b:1", "b:2"}, announcer.announced)
}

func TestFetchFailureSkipsCycle(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	p, fetcher, announcer := testPoller(t)
	loadPoller(t, p)

	fetcher.badges = []catalog.Badge{badge("a:1")}
	p.RunOnce(ctx)

	before := p.SeenCount()
	fetcher.badges = nil
	fetcher.err = fmt.Errorf("upstream returned status=500")
	p.RunOnce(ctx)

	// no destructive update on failure
	assert.Equal(before, p.SeenCount())
	assert.Empty(announcer.announced)

	// empty catalog without an error is treated the same way
	fetcher.err = nil
	fetcher.badges = []catalog.Badge{}
	p.RunOnce(ctx)
	assert.Equal(before, p.SeenCount())
}

func TestAnnounceFailureStillCommits(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	p, fetcher, announcer := testPoller(t)
	loadPoller(t, p)

	fetcher.badges = []catalog.Badge{badge("a:1")}
	p.RunOnce(ctx)

	announcer.err = fmt.Errorf("channel not found")
	fetcher.badges = []catalog.Badge{badge("a:1"), badge("b:1")}
	p.RunOnce(ctx)
	assert.Equal([]string{"b:1"}, announcer.announced)

	// delivery failure does not cause a re-announcement later
	announcer.err = nil
	p.RunOnce(ctx)
	assert.Equal([]string{"b:1"}, announcer.announced)
}

type failingStore struct {
	inner seenstore.SeenStore
	fail  bool
}

func (s *failingStore) Load(ctx context.Context) (map[string]bool, error) {
	return s.inner.Load(ctx)
}

func (s *failingStore) MarkSeen(ctx context.Context, ids []string) error {
	if s.fail {
		return fmt.Errorf("disk full")
	}
	return s.inner.MarkSeen(ctx, ids)
}

func TestPersistFailureRetriedNextCycle(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	p, fetcher, _ := testPoller(t)
	store := &failingStore{inner: p.Store}
	p.Store = store
	loadPoller(t, p)

	fetcher.badges = []catalog.Badge{badge("a:1")}
	p.RunOnce(ctx)

	store.fail = true
	fetcher.badges = []catalog.Badge{badge("a:1"), badge("b:1")}
	p.RunOnce(ctx)

	// in-memory set stays authoritative despite the write failure
	assert.Equal(2, p.SeenCount())
	seen, err := store.inner.Load(ctx)
	assert.NoError(err)
	assert.False(seen["b:1"])

	// the write is retried on a later cycle
	store.fail = false
	p.RunOnce(ctx)
	seen, err = store.inner.Load(ctx)
	assert.NoError(err)
	assert.True(seen["b:1"])
}
