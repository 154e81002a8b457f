// Package session is the per-client durable state store of spec §4.D:
// cluster presence (which node a client is connected to), the clean/
// persistent session flag, the packet-id allocator, the QoS 2 inbound
// set, and the in-flight message list. Grounded in RedisStorage's
// updateConnectedNode/removeConnectedNodes/getNextPacketId/session/
// QoS2/in-flight CRUD.
package session

import (
	"context"

	"github.com/life-stream-dev/mqtt-cluster-store/internal/database"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/errs"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/message"
)

// maxPacketID is the packet-id allocator's wraparound limit (spec §4.C):
// MQTT packet ids are 16-bit and 0 is reserved, so the range is 1..65535.
const maxPacketID = 65535

// SubscriptionRemover is the narrow view of internal/subscription.Store
// RemoveAllSessionState needs, kept here to avoid an import cycle
// between session and subscription (subscription never depends back on
// session).
type SubscriptionRemover interface {
	RemoveAllSubscriptions(ctx context.Context, clientID string) error
}

type Store struct {
	db   database.Client
	keys database.KeySchema
}

func NewStore(db database.Client, keys database.KeySchema) *Store {
	return &Store{db: db, keys: keys}
}

// UpdateConnectedNode binds clientID to node, recording presence both
// directions: the node's client set, and the client's current node.
func (s *Store) UpdateConnectedNode(ctx context.Context, clientID, node string) error {
	return database.AwaitAll(ctx,
		s.db.SAdd(ctx, s.keys.ConnectedClients(node), clientID),
		s.db.Set(ctx, s.keys.ConnectedNode(clientID), node),
	)
}

// RemoveConnectedNode unbinds clientID from node. The connected_node key
// is only cleared if it still names node (CHECKDEL), so a disconnect
// event racing behind a newer reconnect to a different node can never
// clobber the live binding (spec §5 concurrency).
func (s *Store) RemoveConnectedNode(ctx context.Context, clientID, node string) error {
	return database.AwaitAll(ctx,
		s.db.SRem(ctx, s.keys.ConnectedClients(node), clientID),
		s.db.CheckDel(ctx, s.keys.ConnectedNode(clientID), node),
	)
}

// GetConnectedNode reports which node clientID is presently bound to, if
// any.
func (s *Store) GetConnectedNode(ctx context.Context, clientID string) (database.Optional[string], error) {
	return s.db.Get(ctx, s.keys.ConnectedNode(clientID)).Await(ctx)
}

// ScanConnectedClients pages through the clients a node believes are
// connected to it, for reconciliation after a node restart.
func (s *Store) ScanConnectedClients(ctx context.Context, node string, cursor uint64, count int64) (database.ScanPage, error) {
	return s.db.SScan(ctx, s.keys.ConnectedClients(node), cursor, count).Await(ctx)
}

// GetSession reports whether clientID has a persistent session and
// whether one exists at all (absent vs. clean vs. persistent, spec §3).
func (s *Store) GetSession(ctx context.Context, clientID string) (database.Optional[string], error) {
	return s.db.Get(ctx, s.keys.Session(clientID)).Await(ctx)
}

// UpdateSession records whether clientID's session is clean or
// persistent.
func (s *Store) UpdateSession(ctx context.Context, clientID string, cleanSession bool) error {
	value := "0"
	if cleanSession {
		value = "1"
	}
	return s.db.Set(ctx, s.keys.Session(clientID), value).Err(ctx)
}

// RemoveSession deletes the session flag only, leaving subscriptions and
// in-flight state untouched — used on disconnect of a persistent
// session, where state must survive until the client returns or asks to
// clean.
func (s *Store) RemoveSession(ctx context.Context, clientID string) error {
	return s.db.Del(ctx, s.keys.Session(clientID)).Err(ctx)
}

// RemoveAllSessionState tears down every piece of durable state a client
// owns: the session flag, its subscriptions (via remover, to avoid an
// import cycle), its QoS 2 set, and its in-flight list. Used when a
// clean session disconnects or a persistent session is explicitly
// discarded.
func (s *Store) RemoveAllSessionState(ctx context.Context, clientID string, remover SubscriptionRemover) error {
	if err := s.RemoveSession(ctx, clientID); err != nil {
		return err
	}
	if err := remover.RemoveAllSubscriptions(ctx, clientID); err != nil {
		return err
	}
	if err := s.ClearQoS2(ctx, clientID); err != nil {
		return err
	}
	return s.ClearAllInFlight(ctx, clientID)
}

// NextPacketID allocates the next packet id for clientID via the
// INCRLIMIT script, wrapping from 65535 back to 1 (0 is reserved by
// MQTT).
func (s *Store) NextPacketID(ctx context.Context, clientID string) (uint16, error) {
	n, err := s.db.IncrLimit(ctx, s.keys.NextPacketID(clientID), maxPacketID).Await(ctx)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}

// AddQoS2MessageID records an inbound QoS 2 PUBLISH packet id not yet
// acknowledged with PUBCOMP.
func (s *Store) AddQoS2MessageID(ctx context.Context, clientID string, packetID uint16) error {
	return s.db.SAdd(ctx, s.keys.QoS2Set(clientID), itoa(packetID)).Err(ctx)
}

func (s *Store) RemoveQoS2MessageID(ctx context.Context, clientID string, packetID uint16) error {
	return s.db.SRem(ctx, s.keys.QoS2Set(clientID), itoa(packetID)).Err(ctx)
}

func (s *Store) ClearQoS2(ctx context.Context, clientID string) error {
	return s.db.Del(ctx, s.keys.QoS2Set(clientID)).Err(ctx)
}

// GetAllInFlightIDs lists every packet id pending delivery or
// acknowledgement for clientID, in send order.
func (s *Store) GetAllInFlightIDs(ctx context.Context, clientID string) ([]string, error) {
	return s.db.LRange(ctx, s.keys.InFlightList(clientID), 0, -1).Await(ctx)
}

// GetInFlight fetches and decodes one in-flight record.
func (s *Store) GetInFlight(ctx context.Context, clientID string, packetID uint16) (message.Record, error) {
	fields, err := s.db.HGetAll(ctx, s.keys.InFlightMessage(clientID, packetID)).Await(ctx)
	if err != nil {
		return message.Record{}, err
	}
	if len(fields) == 0 {
		return message.Record{}, errs.Drift("session.GetInFlight", errOrphanInFlightID)
	}
	return message.FromFields(fields)
}

// AddInFlight appends packetID to the in-flight list and stores its
// record, matching RedisStorage.addInFlightMessage. The two writes are
// issued concurrently and awaited together; neither is ordered before
// the other.
func (s *Store) AddInFlight(ctx context.Context, clientID string, packetID uint16, rec message.Record) error {
	return database.AwaitAll(ctx,
		s.db.RPush(ctx, s.keys.InFlightList(clientID), itoa(packetID)),
		s.db.HSetMap(ctx, s.keys.InFlightMessage(clientID, packetID), message.ToFields(rec)),
	)
}

// RemoveInFlight drops one acknowledged packet id from the list and
// deletes its record.
func (s *Store) RemoveInFlight(ctx context.Context, clientID string, packetID uint16) error {
	return database.AwaitAll(ctx,
		s.db.LRem(ctx, s.keys.InFlightList(clientID), 0, itoa(packetID)),
		s.db.Del(ctx, s.keys.InFlightMessage(clientID, packetID)),
	)
}

// ClearAllInFlight drains the in-flight list iteratively, popping one id
// at a time and deleting its record, until the list is empty. Iterative
// rather than the Java original's recursive thenAccept chain, per the
// design note against unbounded call-stack recursion over long lists
// (spec §9).
func (s *Store) ClearAllInFlight(ctx context.Context, clientID string) error {
	for {
		popped, err := s.db.LPop(ctx, s.keys.InFlightList(clientID)).Await(ctx)
		if err != nil {
			return err
		}
		if !popped.Valid {
			return nil
		}
		packetID, err := parsePacketID(popped.Value)
		if err != nil {
			return errs.Contract("session.ClearAllInFlight", err)
		}
		if err := s.db.Del(ctx, s.keys.InFlightMessage(clientID, packetID)).Err(ctx); err != nil {
			return err
		}
	}
}

var errOrphanInFlightID = errString("in-flight id has no backing record")

type errString string

func (e errString) Error() string { return string(e) }
