package testsupport

import (
	"path/filepath"
	"testing"

	"sockpoke/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique socket path and temp
// directories per test, then applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Session.Socket = SocketPath(t)
	cfgVal.Transcript.Path = filepath.Join(base, "transcript.db")
	cfgVal.Logging.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithTranscript enables frame recording on the test config.
func WithTranscript() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcript.Enabled = true
	}
}

// WithoutLock disables the listener lock file.
func WithoutLock() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Session.Lock = false
	}
}
