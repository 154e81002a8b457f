package database

import "testing"

func TestKeySchemaNamespacing(t *testing.T) {
	k := NewKeySchema("cluster1")
	if got, want := k.Session("c1"), "cluster1:session:c1"; got != want {
		t.Fatalf("Session: got %q, want %q", got, want)
	}
	if got, want := k.ConnectedClients("node-a"), "cluster1:connected_clients:node-a"; got != want {
		t.Fatalf("ConnectedClients: got %q, want %q", got, want)
	}
}

func TestKeySchemaTopicJoinUnambiguous(t *testing.T) {
	k := NewKeySchema("ns")
	a := k.TopicName([]string{"a", "b"})
	b := k.TopicName([]string{"a", "", "b"})
	if a == b {
		t.Fatalf("expected 'a/b' and 'a//b' to key differently, both got %q", a)
	}
}

func TestKeySchemaTopicFilterChildRootVsLeadingSlash(t *testing.T) {
	k := NewKeySchema("ns")
	root := k.TopicFilterChild([]string{})
	leadingSlash := k.TopicFilterChild([]string{""})
	if root == leadingSlash {
		t.Fatalf("root prefix and a leading-empty-level prefix must key differently, both got %q", root)
	}
}

func TestKeySchemaInFlightMessagePerPacket(t *testing.T) {
	k := NewKeySchema("ns")
	k1 := k.InFlightMessage("c1", 1)
	k2 := k.InFlightMessage("c1", 2)
	if k1 == k2 {
		t.Fatalf("expected distinct keys per packet id, both got %q", k1)
	}
}
