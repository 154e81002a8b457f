// Package retained is the per-topic retained-message store of spec §4.F,
// mirroring the in-flight list+record shape of internal/session but
// keyed by topic levels instead of clientId. Grounded in RedisStorage's
// getAllRetainMessageIds/addRetainMessage/getRetainMessage/
// removeAllRetainMessage.
package retained

import (
	"context"

	"github.com/life-stream-dev/mqtt-cluster-store/internal/database"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/errs"
	"github.com/life-stream-dev/mqtt-cluster-store/internal/message"
)

type Store struct {
	db   database.Client
	keys database.KeySchema
}

func NewStore(db database.Client, keys database.KeySchema) *Store {
	return &Store{db: db, keys: keys}
}

// GetAllIDs lists the packet ids retained at this exact topic, in
// insertion order.
func (s *Store) GetAllIDs(ctx context.Context, levels []string) ([]string, error) {
	return s.db.LRange(ctx, s.keys.TopicRetainList(levels), 0, -1).Await(ctx)
}

// GetMessage fetches and decodes one retained record.
func (s *Store) GetMessage(ctx context.Context, levels []string, packetID uint16) (message.Record, error) {
	fields, err := s.db.HGetAll(ctx, s.keys.TopicRetainMessage(levels, packetID)).Await(ctx)
	if err != nil {
		return message.Record{}, err
	}
	if len(fields) == 0 {
		return message.Record{}, errs.Drift("retained.GetMessage", errOrphanRetainedID)
	}
	return message.FromFields(fields)
}

// AddMessage appends a retained record. The broker policy is "keep all":
// a RETAIN=1 PUBLISH with a non-empty payload is appended here, never
// overwriting an earlier retained message at the same topic. The
// front-end is responsible for calling ClearAll first if "overwrite
// last" semantics are desired, and always on a RETAIN=1,
// zero-length-payload PUBLISH (the MQTT retained-clear convention).
func (s *Store) AddMessage(ctx context.Context, levels []string, packetID uint16, rec message.Record) error {
	return database.AwaitAll(ctx,
		s.db.RPush(ctx, s.keys.TopicRetainList(levels), itoa(packetID)),
		s.db.HSetMap(ctx, s.keys.TopicRetainMessage(levels, packetID), message.ToFields(rec)),
	)
}

// ClearAll drains the retained list iteratively, popping one id at a
// time and deleting its record, until the list is empty.
func (s *Store) ClearAll(ctx context.Context, levels []string) error {
	for {
		popped, err := s.db.LPop(ctx, s.keys.TopicRetainList(levels)).Await(ctx)
		if err != nil {
			return err
		}
		if !popped.Valid {
			return nil
		}
		packetID, err := parsePacketID(popped.Value)
		if err != nil {
			return errs.Contract("retained.ClearAll", err)
		}
		if err := s.db.Del(ctx, s.keys.TopicRetainMessage(levels, packetID)).Err(ctx); err != nil {
			return err
		}
	}
}

var errOrphanRetainedID = errString("retained id has no backing record")

type errString string

func (e errString) Error() string { return string(e) }
