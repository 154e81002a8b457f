// Command sessiond wires the shared session/subscription/retained store to
// a KVS connection and keeps the process alive until it receives a
// shutdown signal. It has no TCP accept loop or packet codec — the
// MQTT front-end that would drive these stores over the wire is outside
// this repository's scope (spec §1) — but the ambient stack (config,
// logging, graceful shutdown) needs a concrete, compilable home, and the
// stores need something that actually imports and starts them.
package main

import (
	"github.com/life-stream-dev/mqtt-cluster-store/internal/config"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/database"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/event"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/logger"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/match"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/retained"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/session"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/subscription"
)

// stores bundles every public surface spec §4.H exposes, the shape a
// front-end process would import and call into on CONNECT/SUBSCRIBE/
// PUBLISH/DISCONNECT.
type stores struct {
	Session      *session.Store
	Subscription *subscription.Store
	Retained     *retained.Store
	Matcher      *match.Matcher
}

func main() {
	cfg, err := config.ReadConfig()
	if err != nil {
		logger.FatalF("error occurred while reading config: %v", err)
		return
	}

	loggerCallback := logger.Init()
	logger.Debug("sessiond initializing...")

	cleaner := event.NewCleaner()
	cleaner.Init(loggerCallback)

	binding := cfg.KVS.Binding
	if binding == "" {
		binding = "redis"
	}
	db, err := database.Open(binding, cfg)
	if err != nil {
		logger.FatalF("error occurred while connecting to KVS: %v", err)
		return
	}

	keys := database.NewKeySchema(cfg.Namespace)
	subs := subscription.NewStore(db, keys)
	_ = stores{
		Session:      session.NewStore(db, keys),
		Subscription: subs,
		Retained:     retained.NewStore(db, keys),
		Matcher:      match.NewMatcher(subs),
	}

	logger.InfoF("sessiond ready: node=%s namespace=%s kvs=%s", cfg.NodeID, cfg.Namespace, cfg.KVS.Addr)

	// No accept loop of our own: block until the Cleaner's signal handler
	// runs the registered shutdown hooks (KVS close, logger flush) and
	// exits the process.
	select {}
}
