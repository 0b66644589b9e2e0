// Package logging holds the process-wide leveled loggers. InitLogging
// must run during boot, before any handler or service logs; Infof and
// Errorf stay safe no-ops until then, which keeps test bootstrap order
// forgiving.
package logging

import (
	"log"
	"os"
)

var (
	infoLogger  *log.Logger
	errorLogger *log.Logger
)

// InitLogging wires the info stream to stdout and the error stream to
// stderr, both with source locations for tracing reconciliation paths.
func InitLogging() {
	infoLogger = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	errorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
}

// Infof logs an informational message
func Infof(format string, v ...interface{}) {
	if infoLogger != nil {
		infoLogger.Printf(format, v...)
	}
}

// Errorf logs an error message
func Errorf(format string, v ...interface{}) {
	if errorLogger != nil {
		errorLogger.Printf(format, v...)
	}
}
