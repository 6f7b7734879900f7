package testutil

import (
	"net/http/httptest"
	"testing"

	"taxclient/internal/backend"
)

// StartBackend serves mem over HTTP for the lifetime of the test and
// returns its base URL.
func StartBackend(t *testing.T, mem *backend.Memory) string {
	t.Helper()
	if mem == nil {
		mem = backend.NewMemory(backend.MemoryConfig{})
	}
	server := httptest.NewServer(backend.NewHandler(mem, nil))
	t.Cleanup(server.Close)
	return server.URL
}
