package config

type (
	NET struct {
		// Port is the TCP port the listener is bound to on all interfaces. Zero is
		// replaced by the default, so in order to let the kernel pick a free port, use
		// AnyPort.
		Port int
		// Backlog is the maximal length of the queue of pending connections.
		Backlog int
		// MaxEvents limits how many readiness events are fetched by a single wait.
		MaxEvents int
		// ReadBufferSize is how many bytes are read from a socket at most per a single
		// receive call. The pending request buffer grows in steps of this size.
		ReadBufferSize int
		// MaxRequestSize is the hard cap for a request line to be framed. A connection
		// whose buffer exceeds it without containing a request line is dropped.
		MaxRequestSize int
	}

	Send struct {
		// ChunkSize is how many bytes of a file are read and offered to the socket at once.
		ChunkSize int
	}

	FS struct {
		// Root is the directory all the request targets are resolved under.
		Root string
		// Index is the file served for the "/" target.
		Index string
	}
)

// AnyPort lets the kernel choose an ephemeral port. Useful mostly in tests.
const AnyPort = -1

// Config holds settings used across the server.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually. Otherwise, use Fill in order to complete missing values.
type Config struct {
	NET  NET
	Send Send
	FS   FS
}

// Default returns default config.
func Default() *Config {
	return &Config{
		NET: NET{
			Port:           80,
			Backlog:        10,
			MaxEvents:      64,
			ReadBufferSize: 1024,
			// 1mb without a request line means the peer is either broken or hostile.
			MaxRequestSize: 1024 * 1024,
		},
		Send: Send{
			ChunkSize: 1024 * 1024,
		},
		FS: FS{
			Root:  "./resources",
			Index: "index.html",
		},
	}
}

// Fill replaces zero-valued fields of the passed config with defaults.
func Fill(cfg *Config) *Config {
	if cfg == nil {
		return Default()
	}

	def := Default()
	filled := *cfg
	fill(&filled.NET.Port, def.NET.Port)
	fill(&filled.NET.Backlog, def.NET.Backlog)
	fill(&filled.NET.MaxEvents, def.NET.MaxEvents)
	fill(&filled.NET.ReadBufferSize, def.NET.ReadBufferSize)
	fill(&filled.NET.MaxRequestSize, def.NET.MaxRequestSize)
	fill(&filled.Send.ChunkSize, def.Send.ChunkSize)
	fill(&filled.FS.Root, def.FS.Root)
	fill(&filled.FS.Index, def.FS.Index)

	return &filled
}

func fill[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}

// ListenPort returns the port in the form it must be passed to bind(2).
func (n NET) ListenPort() int {
	if n.Port == AnyPort {
		return 0
	}

	return n.Port
}
