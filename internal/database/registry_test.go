package database

import (
	"testing"

	c "github.com/life-stream-dev/mqtt-cluster-store/internal/config"
)

func TestOpenUnknownBindingErrors(t *testing.T) {
	if _, err := Open("does-not-exist", c.Config{}); err == nil {
		t.Fatal("expected an error for an unregistered binding")
	}
}

func TestRegisterBindingPanicsOnDuplicate(t *testing.T) {
	RegisterBinding("test-dup-binding", func(c.Config) (Client, error) { return nil, nil })

	defer func() {
		if recover() == nil {
			t.Fatal("expected RegisterBinding to panic on a duplicate name")
		}
	}()
	RegisterBinding("test-dup-binding", func(c.Config) (Client, error) { return nil, nil })
}

func TestRedisBindingIsRegisteredByDefault(t *testing.T) {
	registryMu.Lock()
	_, ok := registry["redis"]
	registryMu.Unlock()
	if !ok {
		t.Fatal("expected the \"redis\" binding to self-register via init()")
	}
}
