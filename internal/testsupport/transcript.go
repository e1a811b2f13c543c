package testsupport

import (
	"context"
	"testing"

	"sockpoke/internal/config"
	"sockpoke/internal/transcript"
)

// MustOpenTranscript opens the transcript store named by cfg and registers cleanup.
func MustOpenTranscript(t testing.TB, cfg *config.Config) *transcript.Store {
	t.Helper()

	store, err := transcript.Open(context.Background(), cfg.Transcript.Path)
	if err != nil {
		t.Fatalf("transcript.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
