package engine

// Logger is the sink the engine writes diagnostics to. It is passed in
// explicitly instead of using a process-wide logger so that batch pipelines
// stay free of shared mutable state. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
