package redis

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	if got := key("65f0c2"); got != "lms:identity:65f0c2" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestCachedIdentity_OmitsPasswordHash(t *testing.T) {
	raw, err := json.Marshal(cachedIdentity{ID: "u-1", Email: "a@x.com", Role: "ADMIN", CreatedAt: time.Unix(0, 0).UTC()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(strings.ToLower(string(raw)), "password") {
		t.Fatalf("cached payload carries a password field: %s", raw)
	}
}

func TestInvalidatedKey(t *testing.T) {
	if got := invalidatedKey("65f0c2"); got != "lms:identity:65f0c2:invalidated" {
		t.Fatalf("unexpected key %q", got)
	}
	if invalidatedKey("65f0c2") == key("65f0c2") {
		t.Fatalf("tombstone must not share the identity key")
	}
}
