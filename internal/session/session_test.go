package session

import (
	"context"
	"testing"

	"github.com/life-stream-dev/mqtt-cluster-store/internal/database"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/database/dbtest"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/message"
)

func newTestStore() *Store {
	return NewStore(dbtest.NewFakeClient(), database.NewKeySchema("test"))
}

func TestPresenceHandoff(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	const client = "c1"

	if err := s.UpdateConnectedNode(ctx, client, "n1"); err != nil {
		t.Fatalf("update n1: %v", err)
	}
	if err := s.UpdateConnectedNode(ctx, client, "n2"); err != nil {
		t.Fatalf("update n2: %v", err)
	}
	if err := s.RemoveConnectedNode(ctx, client, "n1"); err != nil {
		t.Fatalf("remove n1: %v", err)
	}

	node, err := s.GetConnectedNode(ctx, client)
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if !node.Valid || node.Value != "n2" {
		t.Fatalf("expected connected node n2, got %+v", node)
	}
}

func TestRemoveConnectedNodeStaleNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	const client = "c1"

	if err := s.UpdateConnectedNode(ctx, client, "n1"); err != nil {
		t.Fatalf("update n1: %v", err)
	}
	if err := s.RemoveConnectedNode(ctx, client, "n2"); err != nil {
		t.Fatalf("remove stale n2: %v", err)
	}

	node, err := s.GetConnectedNode(ctx, client)
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if !node.Valid || node.Value != "n1" {
		t.Fatalf("expected connected node still n1, got %+v", node)
	}
}

func TestNextPacketIDWraps(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	const client = "c1"

	var first uint16
	for i := 0; i < maxPacketID; i++ {
		id, err := s.NextPacketID(ctx, client)
		if err != nil {
			t.Fatalf("NextPacketID: %v", err)
		}
		if i == 0 {
			first = id
		}
		if id == 0 {
			t.Fatalf("packet id must never be 0")
		}
	}
	if first != 1 {
		t.Fatalf("expected first allocated id to be 1, got %d", first)
	}
	wrapped, err := s.NextPacketID(ctx, client)
	if err != nil {
		t.Fatalf("NextPacketID: %v", err)
	}
	if wrapped != 1 {
		t.Fatalf("expected wraparound to 1, got %d", wrapped)
	}
}

func TestInFlightLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	const client = "c1"

	rec := message.Record{Type: message.TypePublish, QoS: 1, TopicName: "a/b", PacketID: 7, Payload: []byte("hi")}
	if err := s.AddInFlight(ctx, client, 7, rec); err != nil {
		t.Fatalf("AddInFlight: %v", err)
	}

	ids, err := s.GetAllInFlightIDs(ctx, client)
	if err != nil || len(ids) != 1 || ids[0] != "7" {
		t.Fatalf("expected in-flight ids [7], got %v err=%v", ids, err)
	}

	got, err := s.GetInFlight(ctx, client, 7)
	if err != nil {
		t.Fatalf("GetInFlight: %v", err)
	}
	if got.TopicName != "a/b" || got.PacketID != 7 {
		t.Fatalf("unexpected record: %+v", got)
	}

	if err := s.RemoveInFlight(ctx, client, 7); err != nil {
		t.Fatalf("RemoveInFlight: %v", err)
	}
	ids, err = s.GetAllInFlightIDs(ctx, client)
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected empty in-flight list, got %v err=%v", ids, err)
	}
}

func TestClearAllInFlightDrains(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	const client = "c1"

	for pid := uint16(1); pid <= 5; pid++ {
		rec := message.Record{Type: message.TypePubrel, QoS: 1, PacketID: pid}
		if err := s.AddInFlight(ctx, client, pid, rec); err != nil {
			t.Fatalf("AddInFlight(%d): %v", pid, err)
		}
	}
	if err := s.ClearAllInFlight(ctx, client); err != nil {
		t.Fatalf("ClearAllInFlight: %v", err)
	}
	ids, err := s.GetAllInFlightIDs(ctx, client)
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected drained list, got %v err=%v", ids, err)
	}
	for pid := uint16(1); pid <= 5; pid++ {
		if _, err := s.GetInFlight(ctx, client, pid); err == nil {
			t.Fatalf("expected record %d to be gone", pid)
		}
	}
}

func TestQoS2SetMembership(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	const client = "c1"

	if err := s.AddQoS2MessageID(ctx, client, 11); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.RemoveQoS2MessageID(ctx, client, 11); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.ClearQoS2(ctx, client); err != nil {
		t.Fatalf("Clear: %v", err)
	}
}
