// Package cache provides the response cache used to memoize classification
// results and tool payloads. Keys are stable across parameter field order;
// expiry is pure TTL with lazy deletion on read.
package cache

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
	"time"
)

// Default TTLs by operation type. Callers may override per Set.
var defaultTTLs = map[string]time.Duration{
	"classify":    20 * time.Minute,
	"market_data": 5 * time.Minute,
	"etf_compare": 30 * time.Minute,
	"etf_details": 30 * time.Minute,
	"screener":    15 * time.Minute,
	"rankings":    15 * time.Minute,
	"news":        10 * time.Minute,
	"synthesis":   60 * time.Minute,
}

// FallbackTTL applies to operation types without a table entry.
const FallbackTTL = 10 * time.Minute

// TTLFor returns the default TTL for an operation type.
func TTLFor(opType string) time.Duration {
	if ttl, ok := defaultTTLs[opType]; ok {
		return ttl
	}
	return FallbackTTL
}

// Key builds the cache key "<type>:<base36-hash>" from the canonical JSON of
// params. Maps and structs with the same field values produce the same key
// regardless of field order.
func Key(opType string, params any) string {
	canonical, err := canonicalJSON(params)
	if err != nil {
		// Unencodable params still need a deterministic key.
		canonical = []byte(fmt.Sprintf("%#v", params))
	}

	h := fnv.New64a()
	h.Write([]byte(opType))
	h.Write([]byte{':'})
	h.Write(canonical)

	return opType + ":" + strconv.FormatUint(h.Sum64(), 36)
}

// canonicalJSON re-encodes params through a generic value so that object keys
// come out sorted (encoding/json sorts map keys on marshal).
func canonicalJSON(params any) ([]byte, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	return json.Marshal(generic)
}
