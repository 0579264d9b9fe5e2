package poller

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alertium/alertium/catalog"
	"github.com/alertium/alertium/seenstore"
)

// Fetcher returns the full current badge catalog. An error means "no
// information" for this cycle, never "catalog is empty".
type Fetcher interface {
	FetchGlobal(ctx context.Context) ([]catalog.Badge, error)
}

// Announcer delivers a single new-badge event to the chat channel.
type Announcer interface {
	AnnounceBadge(ctx context.Context, badge catalog.Badge) error
}

// Poller drives the periodic fetch-diff-announce-persist cycle.
//
// An id already in the seen set is never announced again. On the very first
// run (empty persisted state) the full catalog is committed silently, so a
// fresh deployment does not flood the channel.
type Poller struct {
	Logger   *slog.Logger
	Fetcher  Fetcher
	Store    seenstore.SeenStore
	Notifier Announcer
	Interval time.Duration

	seen     map[string]bool
	pending  []string
	inflight atomic.Bool
}

func (p *Poller) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Run loads persisted state and polls until ctx is cancelled. Cycle failures
// are logged and survived; only state-load failures abort startup.
func (p *Poller) Run(ctx context.Context) error {
	seen, err := p.Store.Load(ctx)
	if err != nil {
		// a missing snapshot is not an error; an unreadable one is treated
		// as empty state so a corrupt file can't wedge the daemon
		p.logger().Warn("failed to load seen set, starting from empty state", "err", err)
		seen = make(map[string]bool)
	}
	p.seen = seen
	p.logger().Info("poller starting", "interval", p.Interval, "seen", len(p.seen))

	// run one cycle immediately rather than waiting a full interval
	p.RunOnce(ctx)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.RunOnce(ctx)
		case <-ctx.Done():
			p.logger().Info("poller shutting down")
			return nil
		}
	}
}

// RunOnce executes a single cycle. If a previous cycle is still in flight the
// tick is skipped, so overlapping diffs can never double-announce.
func (p *Poller) RunOnce(ctx context.Context) {
	if !p.inflight.CompareAndSwap(false, true) {
		p.logger().Warn("previous poll cycle still in flight, skipping tick")
		return
	}
	defer p.inflight.Store(false)

	current, err := p.Fetcher.FetchGlobal(ctx)
	if err != nil {
		// transient upstream failure: skip the cycle, mutate nothing
		p.logger().Warn("badge fetch failed, skipping cycle", "err", err)
		return
	}
	if len(current) == 0 {
		// an empty catalog is indistinguishable from upstream trouble
		p.logger().Warn("badge fetch returned empty catalog, skipping cycle")
		return
	}

	if len(p.seen) == 0 {
		p.bootstrap(ctx, current)
		return
	}

	fresh := Diff(current, p.seen)
	if len(fresh) == 0 {
		if len(p.pending) > 0 {
			p.commit(ctx, nil)
		}
		return
	}

	announced := make([]string, 0, len(fresh))
	for _, b := range fresh {
		if err := p.Notifier.AnnounceBadge(ctx, b); err != nil {
			p.logger().Error("failed to announce badge", "badge", b.ID, "err", err)
		}
		// the id is committed even when delivery fails: at-least-once
		// delivery, never a repeat announcement on a later cycle
		announced = append(announced, b.ID)
		p.logger().Info("announced new badge", "badge", b.ID, "name", b.Name)
	}

	p.commit(ctx, announced)
}

// first run: adopt the whole catalog without announcing anything
func (p *Poller) bootstrap(ctx context.Context, current []catalog.Badge) {
	ids := make([]string, 0, len(current))
	for _, b := range current {
		ids = append(ids, b.ID)
	}
	p.logger().Info("first run, bootstrapping seen set silently", "badges", len(ids))
	p.commit(ctx, ids)
}

// commit updates the in-memory set first; it stays authoritative even when
// the durable write fails. Unpersisted ids are carried over and retried on
// the next commit.
func (p *Poller) commit(ctx context.Context, ids []string) {
	for _, id := range ids {
		p.seen[id] = true
	}
	p.pending = append(p.pending, ids...)
	if err := p.Store.MarkSeen(ctx, p.pending); err != nil {
		p.logger().Error("failed to persist seen set", "count", len(p.pending), "err", err)
		return
	}
	p.pending = nil
}

// SeenCount reports the size of the in-memory seen set.
func (p *Poller) SeenCount() int {
	return len(p.seen)
}
