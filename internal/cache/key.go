package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// GenerateKey derives a deterministic key from data's canonical JSON form:
// object keys sorted, arrays in order. Values that cannot be encoded (cycles,
// channels, NaN) get a unique fallback key, which never produces a hit.
func GenerateKey(data any) string {
	canonical, err := canonicalJSON(data)
	if err != nil {
		key := fmt.Sprintf("fallback-%d-%s", time.Now().UnixNano(), uuid.NewString())
		slog.Default().Warn("cache key generation failed, using fallback key",
			slog.String("component", "cache"),
			slog.String("key", key),
			slog.String("error", err.Error()))
		return key
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(canonical))
}

// canonicalJSON round-trips data through a generic value so that structs and
// maps with the same content encode identically.
func canonicalJSON(data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
