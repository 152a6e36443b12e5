// Package logger builds the zerolog loggers handed to the engine's
// components. Every component accepts an injected zerolog.Logger and defaults
// to zerolog.Nop(), so embedders that want silence pay nothing.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const permission = 0664

// Build accumulates logger options.
type Build struct {
	writer io.Writer
	path   string
	level  zerolog.Level
}

// Output bundles the configured logger with the file it may own.
type Output struct {
	writer  io.Writer
	LogFile *os.File
	Logger  zerolog.Logger
}

// New starts a logger build writing to stdout at info level.
func New() *Build {
	return &Build{writer: os.Stdout, level: zerolog.InfoLevel}
}

// FromPath appends log lines to the file at path, creating it if needed.
func (build *Build) FromPath(path string) *Build {
	build.path = path
	return build
}

// FromBuffer writes log lines to w instead of a file.
func (build *Build) FromBuffer(w io.Writer) *Build {
	build.writer = w
	return build
}

// WithLevel sets the minimum emitted level.
func (build *Build) WithLevel(level zerolog.Level) *Build {
	build.level = level
	return build
}

// Make materializes the logger.
func (build *Build) Make() (out *Output, err error) {
	out = new(Output)
	out.writer = build.writer
	if build.path != "" {
		out.LogFile, err = os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		out.writer = zerolog.SyncWriter(out.LogFile)
	}
	out.Logger = zerolog.New(out.writer).Level(build.level).With().Timestamp().Logger()
	return
}

// Close releases the log file when the build opened one.
func (out *Output) Close() error {
	if out.LogFile == nil {
		return nil
	}
	return out.LogFile.Close()
}
