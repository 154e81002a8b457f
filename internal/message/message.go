// Package message is the record↔fields codec for in-flight and retained
// messages, grounded in RedisStorage.mapToMqtt/mqttToMap: only the two
// packet types a session ever needs to replay unacknowledged are
// representable, PUBLISH and PUBREL. Go's string/[]byte are raw byte
// sequences, so unlike the Java original there is no ISO-8859-1
// transcoding step to keep a PUBLISH payload binary-safe.
package message

import (
	"strconv"

	"github.com/life-stream-dev/mqtt-cluster-store/internal/errs"
)

// Type mirrors the MQTT control packet type values relevant to a stored
// in-flight record.
type Type int

const (
	TypePublish Type = 3
	TypePubrel  Type = 6
)

// Record is one in-flight or retained message as the store persists it.
type Record struct {
	Type      Type
	Retain    bool
	QoS       int
	Dup       bool
	TopicName string
	PacketID  uint16
	Payload   []byte
}

// ToFields flattens a Record into the hash fields RedisStorage wrote,
// field-for-field, so an operator reading the keyspace directly sees the
// same shape as the original implementation.
func ToFields(r Record) map[string]string {
	fields := map[string]string{
		"type":     strconv.Itoa(int(r.Type)),
		"packetId": strconv.Itoa(int(r.PacketID)),
	}
	switch r.Type {
	case TypePublish:
		fields["retain"] = boolField(r.Retain)
		fields["qos"] = strconv.Itoa(r.QoS)
		fields["dup"] = boolField(r.Dup)
		fields["topicName"] = r.TopicName
		if r.Payload != nil {
			fields["payload"] = string(r.Payload)
		}
	case TypePubrel:
		fields["qos"] = "1"
	}
	return fields
}

// FromFields rebuilds a Record from stored hash fields, reporting a
// Contract error for a missing or unrecognized type rather than
// guessing — a malformed in-flight record must never be replayed as if
// it were valid.
func FromFields(fields map[string]string) (Record, error) {
	raw, ok := fields["type"]
	if !ok {
		return Record{}, errs.Contract("message.FromFields", errMissingType)
	}
	typ, err := strconv.Atoi(raw)
	if err != nil {
		return Record{}, errs.Contract("message.FromFields", err)
	}

	packetID, _ := strconv.Atoi(fields["packetId"])
	r := Record{Type: Type(typ), PacketID: uint16(packetID)}

	switch r.Type {
	case TypePublish:
		r.Retain = fields["retain"] == "1"
		r.Dup = fields["dup"] == "1"
		r.QoS, _ = strconv.Atoi(fields["qos"])
		r.TopicName = fields["topicName"]
		if payload, ok := fields["payload"]; ok {
			r.Payload = []byte(payload)
		}
		return r, nil
	case TypePubrel:
		r.QoS = 1
		return r, nil
	default:
		return Record{}, errs.Contract("message.FromFields", errUnknownType)
	}
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

var (
	errMissingType = errMsg("record has no type field")
	errUnknownType = errMsg("unrecognized in-flight message type")
)

type errMsg string

func (e errMsg) Error() string { return string(e) }
