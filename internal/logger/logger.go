// Package logger prints verbose progress for sercha-dedup.
// Debug, info and warning lines only appear with --verbose; errors always
// do. Output goes to stderr unless redirected.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr

	// now is swapped in tests.
	now = time.Now

	tags = map[level]func(a ...any) string{
		levelDebug: fmt.Sprint,
		levelInfo:  fmt.Sprint,
		levelWarn:  color.New(color.FgYellow).SprintFunc(),
		levelError: color.New(color.FgRed, color.Bold).SprintFunc(),
	}
	labels = map[level]string{
		levelDebug: "[DEBUG]",
		levelInfo:  "[INFO]",
		levelWarn:  "[WARN]",
		levelError: "[ERROR]",
	}
)

func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects log lines, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func logf(l level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if l < levelError && !verbose {
		return
	}
	fmt.Fprintf(output, "%s %s\n", tags[l](labels[l]), fmt.Sprintf(format, args...))
}

func Debug(format string, args ...any) { logf(levelDebug, format, args...) }
func Info(format string, args ...any) { logf(levelInfo, format, args...) }
func Warn(format string, args ...any) { logf(levelWarn, format, args...) }

// Error is printed regardless of verbose mode.
func Error(format string, args ...any) { logf(levelError, format, args...) }

// Section prints a stage header in verbose mode.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Timed returns a func that logs how long name took once called:
//
//	defer logger.Timed("ingest")()
func Timed(name string) func() {
	start := now()
	return func() {
		Debug("%s took %s", name, now().Sub(start).Round(time.Millisecond))
	}
}
