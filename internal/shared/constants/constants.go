package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// DefaultConcurrency bounds how many tool subprocesses run at once.
	DefaultConcurrency = 2
	// DefaultLaunchRate caps tool launches per second.
	DefaultLaunchRate = 4
	// LogDrainSlice is how long the scheduler waits for a completion before
	// draining queued log lines again.
	LogDrainSlice = 200 * time.Millisecond
)

const (
	// DefaultAnalystURL is the local inference server the AI engine talks to.
	DefaultAnalystURL = "http://127.0.0.1:11434"
	// DefaultAnalystModel is the model requested from the local server.
	DefaultAnalystModel = "llama3"
	// AnalystTimeout bounds one summarization round trip.
	AnalystTimeout = 60 * time.Second
)
