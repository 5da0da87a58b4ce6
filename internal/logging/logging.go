// Package logging provides the leveled loggers shared by the archiver.
// Everything goes to the diagnostic stream; stdout is reserved for the document.
package logging

import (
	"io"
	"log"
)

// Logger groups an info, error and debug logger
type Logger struct {
	Info  *log.Logger
	Error *log.Logger
	Debug *log.Logger
}

// New creates loggers writing to w. Debug output is discarded unless verbose,
// info output is discarded when quiet.
func New(w io.Writer, verbose, quiet bool) *Logger {
	l := &Logger{
		Info:  log.New(w, "INFO: ", log.Ltime),
		Error: log.New(w, "ERROR: ", log.Ltime),
		Debug: log.New(io.Discard, "", 0),
	}
	if verbose {
		l.Debug = log.New(w, "DEBUG: ", log.Ltime|log.Lshortfile)
	}
	if quiet {
		l.Info = log.New(io.Discard, "", 0)
	}
	return l
}

// Discard returns a Logger that drops everything
func Discard() *Logger {
	return New(io.Discard, false, true)
}
