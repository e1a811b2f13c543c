package config

const (
	defaultSocketPath     = "/tmp/sockpoke.sock"
	defaultSessionLock    = true
	defaultDisplayColor   = "auto"
	defaultTranscriptPath = "~/.local/share/sockpoke/transcript.db"
	defaultLogFormat      = "console"
	defaultLogLevel       = "warn"
)

// SocketEnvVar names the environment fallback for the default endpoint path.
const SocketEnvVar = "SOCKPOKE_SOCKET"

// Default returns a Config populated with repository defaults. Session.Socket
// is left empty so normalize can apply the environment fallback first.
func Default() Config {
	return Config{
		Session: Session{
			Lock: defaultSessionLock,
		},
		Display: Display{
			Color: defaultDisplayColor,
		},
		Transcript: Transcript{
			Path: defaultTranscriptPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
