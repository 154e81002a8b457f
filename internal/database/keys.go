package database

import (
	"strconv"

	"github.com/life-stream-dev/mqtt-cluster-store/internal/topic"
)

// KeySchema produces the deterministic key for every logical entity of
// spec §3/§4.B, namespaced so several clusters can share one keyspace.
// Names are stable strings every broker node agrees on — changing them
// is a breaking wire-format change for the cluster.
type KeySchema struct {
	Namespace string
}

func NewKeySchema(namespace string) KeySchema {
	return KeySchema{Namespace: namespace}
}

func (k KeySchema) key(parts ...string) string {
	s := k.Namespace
	for _, p := range parts {
		s += ":" + p
	}
	return s
}

func (k KeySchema) ConnectedClients(node string) string {
	return k.key("connected_clients", node)
}

func (k KeySchema) ConnectedNode(clientID string) string {
	return k.key("connected_node", clientID)
}

func (k KeySchema) Session(clientID string) string {
	return k.key("session", clientID)
}

func (k KeySchema) NextPacketID(clientID string) string {
	return k.key("next_packet_id", clientID)
}

func (k KeySchema) QoS2Set(clientID string) string {
	return k.key("qos2_set", clientID)
}

func (k KeySchema) InFlightList(clientID string) string {
	return k.key("in_flight_list", clientID)
}

func (k KeySchema) InFlightMessage(clientID string, packetID uint16) string {
	return k.key("in_flight_msg", clientID, strconv.Itoa(int(packetID)))
}

func (k KeySchema) Subscription(clientID string) string {
	return k.key("subscription", clientID)
}

func (k KeySchema) TopicName(levels []string) string {
	return k.key("topic_name", topic.Join(levels))
}

func (k KeySchema) TopicFilter(levels []string) string {
	return k.key("topic_filter", topic.Join(levels))
}

// TopicFilterChild keys the child-counter map for a prefix. The level
// count is encoded alongside the joined levels: topic.Join alone cannot
// tell the root prefix (zero levels) apart from a one-level prefix whose
// single level is empty (the second level of a filter starting with a
// leading slash, e.g. "/a/+"), since strings.Join of both is "". Without
// the count, those two distinct prefixes would alias to the same key and
// corrupt each other's child counters.
func (k KeySchema) TopicFilterChild(prefix []string) string {
	return k.key("topic_filter_child", strconv.Itoa(len(prefix)), topic.Join(prefix))
}

func (k KeySchema) TopicRetainList(levels []string) string {
	return k.key("topic_retain_list", topic.Join(levels))
}

func (k KeySchema) TopicRetainMessage(levels []string, packetID uint16) string {
	return k.key("topic_retain_msg", topic.Join(levels), strconv.Itoa(int(packetID)))
}
