// Package subscription is the cluster-wide subscription index of spec
// §4.E: the per-client subscription map, the per-topic subscriber maps,
// and the wildcard trie's per-level child counters. Grounded in
// RedisStorage's getTopicSubscriptions/updateSubscription/
// removeSubscription/removeAllSubscriptions.
package subscription

import (
	"context"

	"github.com/life-stream-dev/mqtt-cluster-store/internal/database"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/logger"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/topic"
)

// End is the explicit trie-terminator field: this implementation resolves
// the open question on END by tracking it as its own counter on the full
// filter's prefix, incremented and decremented symmetrically with every
// other child label (spec §9 open question 2).
const End = topic.End

type Store struct {
	db   database.Client
	keys database.KeySchema
}

func NewStore(db database.Client, keys database.KeySchema) *Store {
	return &Store{db: db, keys: keys}
}

// GetTopicSubscribers returns the clientId→QoS mapping for a topic name
// or filter, whichever levels describes.
func (s *Store) GetTopicSubscribers(ctx context.Context, levels []string) (map[string]string, error) {
	if topic.IsFilter(levels) {
		return s.db.HGetAll(ctx, s.keys.TopicFilter(levels)).Await(ctx)
	}
	return s.db.HGetAll(ctx, s.keys.TopicName(levels)).Await(ctx)
}

// GetClientSubscriptions returns clientID's topic-string→QoS mapping.
func (s *Store) GetClientSubscriptions(ctx context.Context, clientID string) (map[string]string, error) {
	return s.db.HGetAll(ctx, s.keys.Subscription(clientID)).Await(ctx)
}

// UpdateSubscription records that clientID holds qos on the topic levels
// describe. Re-subscribing the identical (clientID, levels) pair is a
// no-op on the trie counters: UpdateSubscription first checks whether the
// entry already existed in subscription(clientID), per spec §4.E
// idempotence note, so the refcount never drifts on a duplicate SUBSCRIBE.
func (s *Store) UpdateSubscription(ctx context.Context, clientID string, levels []string, qos string) error {
	topicStr := topic.Join(levels)
	existing, err := s.db.HGet(ctx, s.keys.Subscription(clientID), topicStr).Await(ctx)
	if err != nil {
		return err
	}

	if err := s.db.HSet(ctx, s.keys.Subscription(clientID), topicStr, qos).Err(ctx); err != nil {
		return err
	}

	if !topic.IsFilter(levels) {
		return s.db.HSet(ctx, s.keys.TopicName(levels), clientID, qos).Err(ctx)
	}

	if err := s.db.HSet(ctx, s.keys.TopicFilter(levels), clientID, qos).Err(ctx); err != nil {
		return err
	}
	if existing.Valid {
		// Already subscribed to this exact filter: only the QoS changed.
		return nil
	}
	return s.incrementTrie(ctx, levels)
}

// RemoveSubscription is the inverse of UpdateSubscription.
func (s *Store) RemoveSubscription(ctx context.Context, clientID string, levels []string) error {
	topicStr := topic.Join(levels)
	if err := s.db.HDel(ctx, s.keys.Subscription(clientID), topicStr).Err(ctx); err != nil {
		return err
	}

	if !topic.IsFilter(levels) {
		return s.db.HDel(ctx, s.keys.TopicName(levels), clientID).Err(ctx)
	}

	if err := s.db.HDel(ctx, s.keys.TopicFilter(levels), clientID).Err(ctx); err != nil {
		return err
	}
	return s.decrementTrie(ctx, levels)
}

// RemoveAllSubscriptions snapshots clientID's subscription mapping, then
// removes each entry without re-reading, finally deleting the mapping
// itself — matching removeAllSubscriptions's snapshot-then-fan-out shape.
func (s *Store) RemoveAllSubscriptions(ctx context.Context, clientID string) error {
	snapshot, err := s.GetClientSubscriptions(ctx, clientID)
	if err != nil {
		return err
	}
	for topicStr := range snapshot {
		levels := topic.Split(topicStr)
		if topic.IsFilter(levels) {
			if err := s.db.HDel(ctx, s.keys.TopicFilter(levels), clientID).Err(ctx); err != nil {
				return err
			}
			if err := s.decrementTrie(ctx, levels); err != nil {
				return err
			}
		} else {
			if err := s.db.HDel(ctx, s.keys.TopicName(levels), clientID).Err(ctx); err != nil {
				return err
			}
		}
	}
	return s.db.Del(ctx, s.keys.Subscription(clientID)).Err(ctx)
}

// incrementTrie bumps every prefix-level edge counter a filter
// traverses. A filter whose last level is literal or "+" additionally
// gets an END marker on its own full path, sibling to where the
// matcher's walk lands after fully consuming the topic — this is what
// lets the walk tell "an edge continues deeper here" (the per-level
// counter) apart from "a filter terminates exactly here" (END). A
// filter ending in "#" needs no END: its terminal condition is the "#"
// edge itself, found by the walk at any depth, matching regardless of
// how many levels of topic remain.
func (s *Store) incrementTrie(ctx context.Context, levels []string) error {
	futures := make([]database.Awaitable, 0, len(levels)+1)
	for i := range levels {
		futures = append(futures, s.db.HIncrBy(ctx, s.keys.TopicFilterChild(levels[:i]), levels[i], 1))
	}
	if levels[len(levels)-1] != "#" {
		futures = append(futures, s.db.HIncrBy(ctx, s.keys.TopicFilterChild(levels), End, 1))
	}
	return database.AwaitAll(ctx, futures...)
}

// decrementTrie is incrementTrie's inverse. A counter reaching a negative
// value is invariant drift (spec §7 InvariantDrift): clamp to 0 and log,
// never propagate a negative refcount.
func (s *Store) decrementTrie(ctx context.Context, levels []string) error {
	for i := range levels {
		if err := s.decrementOne(ctx, s.keys.TopicFilterChild(levels[:i]), levels[i]); err != nil {
			return err
		}
	}
	if levels[len(levels)-1] != "#" {
		return s.decrementOne(ctx, s.keys.TopicFilterChild(levels), End)
	}
	return nil
}

func (s *Store) decrementOne(ctx context.Context, key, field string) error {
	n, err := s.db.HIncrBy(ctx, key, field, -1).Await(ctx)
	if err != nil {
		return err
	}
	if n < 0 {
		logger.WarnF("trie counter %s[%s] went negative (%d), clamping to 0", key, field, n)
		return s.db.HSet(ctx, key, field, "0").Err(ctx)
	}
	return nil
}

// TrieChildren reads the child-counter hash at prefix, for the fields the
// matcher asks for, returning the raw Optional values in the same order
// as fields. Used by internal/match so it never has to know the hash
// field encoding itself.
func (s *Store) TrieChildren(ctx context.Context, prefix []string, fields ...string) ([]database.Optional[string], error) {
	return s.db.HMGet(ctx, s.keys.TopicFilterChild(prefix), fields...).Await(ctx)
}
