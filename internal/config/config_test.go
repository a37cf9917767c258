package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("ADDR", "")
	t.Setenv("ROUTING_PROFILE", "")
	t.Setenv("INGEST_HOUR", "")
	t.Setenv("QUERY_CACHE_TTL_S", "")
	t.Setenv("RESOLVER_DISTANCE_CAP_KM", "")
	t.Setenv("PG_STATEMENT_TIMEOUT_MS", "")
	c := FromEnv()
	if c.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", c.Addr)
	}
	if c.Resolver.DistanceCapKm != 5000 {
		t.Errorf("DistanceCapKm = %v, want 5000", c.Resolver.DistanceCapKm)
	}
	if c.Database.StatementTimeout != 15*time.Second {
		t.Errorf("StatementTimeout = %v, want 15s", c.Database.StatementTimeout)
	}
	if c.Resolver.EnableKnownCategory {
		t.Error("known category resolution should be off by default")
	}
	if c.Routing.Profile != "car" || c.Ingest.Hour != 3 || c.QueryCacheTTL != 5*time.Minute {
		t.Errorf("routing/ingest/cache defaults = %q %d %v", c.Routing.Profile, c.Ingest.Hour, c.QueryCacheTTL)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("RESOLVER_DISTANCE_CAP_KM", "250.5")
	t.Setenv("RESOLVER_KNOWN_CATEGORY", "true")
	t.Setenv("RATE_LIMIT_QPS", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	c := FromEnv()
	if c.Resolver.DistanceCapKm != 250.5 {
		t.Errorf("DistanceCapKm = %v, want 250.5", c.Resolver.DistanceCapKm)
	}
	if !c.Resolver.EnableKnownCategory {
		t.Error("expected known category resolution enabled")
	}
	if c.RateLimit.QPS != 50 {
		t.Errorf("QPS = %d, want fallback 50", c.RateLimit.QPS)
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", c.CORSOrigins)
	}
}
