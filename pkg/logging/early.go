package logging

import (
	"fmt"
	"os"
)

// EarlyLog writes to stderr/stdout before the structured logger is configured.
type EarlyLog struct {
	prefix string
}

func NewEarlyLog() *EarlyLog {
	return &EarlyLog{prefix: "monitorss"}
}

func (l *EarlyLog) Error(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s ERROR: "+msg+"\n", append([]interface{}{l.prefix}, args...)...)
}

func (l *EarlyLog) Fatal(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s FATAL: "+msg+"\n", append([]interface{}{l.prefix}, args...)...)
	os.Exit(1)
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s WARN: "+msg+"\n", append([]interface{}{l.prefix}, args...)...)
}

func (l *EarlyLog) Info(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, "%s INFO: "+msg+"\n", append([]interface{}{l.prefix}, args...)...)
}
