// Package match implements the matcher of spec §4.G: given a concrete
// published topic, enumerate every subscriber whose filter matches it,
// with per-client QoS deduplicated to the maximum granted level. The
// walk is iterative, not recursive, per the §9 design note against
// unbounded call-stack growth over long or wide filters.
//
// Registration places a reserved END counter on the FULL level path a
// literal (non-#-terminated) filter resolves to, sibling to the normal
// per-level edge counters a "#"/"+" filter uses. This lets the walk
// detect "sport" matching "sport/#" (the MQTT zero-extra-levels rule)
// by checking for a "#" edge one level past the topic's own length, in
// addition to checking it at every intermediate depth the walk visits.
// internal/subscription.Store.incrementTrie/decrementTrie implement the
// matching convention on the write side.
package match

import (
	"context"
	"strconv"

	"github.com/life-stream-dev/mqtt-cluster-store/internal/database"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/subscription"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/topic"
)

// Matcher walks a subscription.Store's trie for concrete published
// topics.
type Matcher struct {
	subs *subscription.Store
}

func NewMatcher(subs *subscription.Store) *Matcher {
	return &Matcher{subs: subs}
}

// pathState is one branch of the walk: state is a full n-length copy of
// the topic with zero or more of its levels at index < depth replaced by
// "+", and depth is how many levels have been confirmed to traverse a
// real trie edge so far.
type pathState struct {
	state []string
	depth int
}

// Match returns the clientId -> max granted QoS mapping for every
// subscriber whose topic_name or topic_filter subscription matches
// levels (spec §4.G, §8 property 4).
func (m *Matcher) Match(ctx context.Context, levels []string) (map[string]int, error) {
	result := make(map[string]int)

	exact, err := m.subs.GetTopicSubscribers(ctx, levels)
	if err != nil {
		return nil, err
	}
	mergeInto(result, exact)

	if topic.IsSystem(levels) {
		return result, nil
	}

	n := len(levels)
	worklist := []pathState{{state: append([]string(nil), levels...), depth: 0}}

	for len(worklist) > 0 {
		item := worklist[0]
		worklist = worklist[1:]

		prefix := item.state[:item.depth]

		if item.depth == n {
			vals, err := m.subs.TrieChildren(ctx, prefix, subscription.End, "#")
			if err != nil {
				return nil, err
			}
			if count(vals[0]) > 0 {
				subs, err := m.subs.GetTopicSubscribers(ctx, prefix)
				if err != nil {
					return nil, err
				}
				mergeInto(result, subs)
			}
			if count(vals[1]) > 0 {
				subs, err := m.subs.GetTopicSubscribers(ctx, withHash(prefix))
				if err != nil {
					return nil, err
				}
				mergeInto(result, subs)
			}
			continue
		}

		literal := item.state[item.depth]
		vals, err := m.subs.TrieChildren(ctx, prefix, literal, "#", "+")
		if err != nil {
			return nil, err
		}

		if count(vals[1]) > 0 {
			subs, err := m.subs.GetTopicSubscribers(ctx, withHash(prefix))
			if err != nil {
				return nil, err
			}
			mergeInto(result, subs)
		}
		if count(vals[0]) > 0 {
			worklist = append(worklist, pathState{state: item.state, depth: item.depth + 1})
		}
		if count(vals[2]) > 0 {
			plusState := append([]string(nil), item.state...)
			plusState[item.depth] = "+"
			worklist = append(worklist, pathState{state: plusState, depth: item.depth + 1})
		}
	}

	return result, nil
}

func withHash(prefix []string) []string {
	return append(append([]string(nil), prefix...), "#")
}

func mergeInto(result map[string]int, subs map[string]string) {
	for clientID, qosStr := range subs {
		q := qosOf(qosStr)
		if existing, ok := result[clientID]; !ok || q > existing {
			result[clientID] = q
		}
	}
}

func qosOf(s string) int {
	switch s {
	case "1":
		return 1
	case "2":
		return 2
	default:
		return 0
	}
}

// count reads a trie child counter field, treating an absent or
// non-numeric value as zero refcount rather than erroring — a missing
// field is the expected steady state for an edge nobody has taken.
func count(opt database.Optional[string]) int {
	if !opt.Valid {
		return 0
	}
	n, err := strconv.Atoi(opt.Value)
	if err != nil {
		return 0
	}
	return n
}
