package database

import "github.com/redis/go-redis/v9"

// checkDelScript deletes KEYS[1] iff its current value equals ARGV[1],
// returning 1 on delete and 0 otherwise (spec §4.C CHECKDEL). Used to
// release connected_node only when it still names this node, so a stale
// disconnect can never clobber a newer connection already rebound to
// another node.
var checkDelScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// incrLimitScript increments KEYS[1] and, if the post-increment value
// exceeds ARGV[1], resets it to 1 and returns 1 (spec §4.C INCRLIMIT).
// Used as the packet-id allocator with limit=65535; MQTT reserves 0, so
// wrapping always lands on 1, never 0.
var incrLimitScript = redis.NewScript(`
local v = redis.call("INCR", KEYS[1])
local limit = tonumber(ARGV[1])
if v > limit then
	redis.call("SET", KEYS[1], 1)
	return 1
end
return v
`)
