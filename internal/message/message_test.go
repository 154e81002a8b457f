package message

import (
	"reflect"
	"testing"

	"github.com/life-stream-dev/mqtt-cluster-store/internal/errs"
)

func TestPublishRoundTrip(t *testing.T) {
	r := Record{
		Type:      TypePublish,
		Retain:    true,
		QoS:       1,
		Dup:       false,
		TopicName: "a/b/c",
		PacketID:  42,
		Payload:   []byte{0x00, 0xff, 'h', 'i'},
	}
	fields := ToFields(r)
	got, err := FromFields(fields)
	if err != nil {
		t.Fatalf("FromFields: %v", err)
	}
	if !reflect.DeepEqual(got, r) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
}

func TestPubrelRoundTrip(t *testing.T) {
	r := Record{Type: TypePubrel, PacketID: 7, QoS: 1}
	fields := ToFields(r)
	got, err := FromFields(fields)
	if err != nil {
		t.Fatalf("FromFields: %v", err)
	}
	if !reflect.DeepEqual(got, r) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
}

func TestFromFieldsMissingType(t *testing.T) {
	_, err := FromFields(map[string]string{"packetId": "1"})
	if !errs.IsContract(err) {
		t.Fatalf("expected contract error, got %v", err)
	}
}

func TestFromFieldsUnknownType(t *testing.T) {
	_, err := FromFields(map[string]string{"type": "99"})
	if !errs.IsContract(err) {
		t.Fatalf("expected contract error, got %v", err)
	}
}

func TestFromFieldsEmptyPayloadOmitted(t *testing.T) {
	r := Record{Type: TypePublish, TopicName: "x", PacketID: 1}
	fields := ToFields(r)
	if _, ok := fields["payload"]; ok {
		t.Fatalf("expected no payload field for nil payload")
	}
	got, err := FromFields(fields)
	if err != nil {
		t.Fatalf("FromFields: %v", err)
	}
	if got.Payload != nil {
		t.Fatalf("expected nil payload, got %v", got.Payload)
	}
}
