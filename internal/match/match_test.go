package match

import (
	"context"
	"testing"

	"github.com/life-stream-dev/mqtt-cluster-store/internal/database"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/database/dbtest"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/subscription"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/topic"
)

func newTestMatcher() (*subscription.Store, *Matcher) {
	subs := subscription.NewStore(dbtest.NewFakeClient(), database.NewKeySchema("test"))
	return subs, NewMatcher(subs)
}

func subscribe(t *testing.T, subs *subscription.Store, clientID, filter, qos string) {
	t.Helper()
	levels, err := topic.SanitizeFilter(filter)
	if err != nil {
		t.Fatalf("sanitize %q: %v", filter, err)
	}
	if err := subs.UpdateSubscription(context.Background(), clientID, levels, qos); err != nil {
		t.Fatalf("subscribe %q: %v", filter, err)
	}
}

// S1 exact match.
func TestMatchExact(t *testing.T) {
	subs, m := newTestMatcher()
	subscribe(t, subs, "c1", "a/b", "1")

	got, err := m.Match(context.Background(), topic.Split("a/b"))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got["c1"] != 1 {
		t.Fatalf("expected {c1:1}, got %v", got)
	}
}

// S2 plus wildcard.
func TestMatchPlusWildcard(t *testing.T) {
	subs, m := newTestMatcher()
	subscribe(t, subs, "c1", "a/+/c", "2")

	got, err := m.Match(context.Background(), topic.Split("a/b/c"))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got["c1"] != 2 {
		t.Fatalf("expected {c1:2}, got %v", got)
	}
}

// S3 hash wildcard, including the zero-extra-levels rule.
func TestMatchHashWildcard(t *testing.T) {
	subs, m := newTestMatcher()
	subscribe(t, subs, "c1", "a/#", "1")

	deep, err := m.Match(context.Background(), topic.Split("a/b/c/d"))
	if err != nil {
		t.Fatalf("Match deep: %v", err)
	}
	if deep["c1"] != 1 {
		t.Fatalf("expected deep match {c1:1}, got %v", deep)
	}

	shallow, err := m.Match(context.Background(), topic.Split("a"))
	if err != nil {
		t.Fatalf("Match shallow: %v", err)
	}
	if shallow["c1"] != 1 {
		t.Fatalf("expected a/# to match topic 'a', got %v", shallow)
	}
}

// S4 overlap dedup, max QoS wins.
func TestMatchDedupMaxQoS(t *testing.T) {
	subs, m := newTestMatcher()
	subscribe(t, subs, "c1", "a/+", "0")
	subscribe(t, subs, "c1", "a/b", "2")

	got, err := m.Match(context.Background(), topic.Split("a/b"))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got["c1"] != 2 {
		t.Fatalf("expected max QoS 2, got %v", got)
	}
}

func TestMatchNoSubscribers(t *testing.T) {
	_, m := newTestMatcher()
	got, err := m.Match(context.Background(), topic.Split("x/y/z"))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestMatchExcludesSystemTopicsFromWildcard(t *testing.T) {
	subs, m := newTestMatcher()
	subscribe(t, subs, "c1", "#", "0")

	got, err := m.Match(context.Background(), topic.Split("$SYS/broker/uptime"))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected system topic excluded from '#' match, got %v", got)
	}
}
