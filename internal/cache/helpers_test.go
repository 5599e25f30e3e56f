package cache

import (
	"os"
	"testing"
)

func lookupTestRedis(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("AGENDA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("AGENDA_TEST_REDIS_ADDR not set")
	}
	return addr
}
