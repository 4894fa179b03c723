package logger

import (
	"bytes"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// capture redirects output for the duration of the test.
func capture(t *testing.T, verboseMode bool) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	SetOutput(buf)
	SetVerbose(verboseMode)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
		now = time.Now
	})
	return buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name    string
		log     func()
		verbose string
		quiet   string
	}{
		{
			name:    "debug",
			log:     func() { Debug("content hash %s", "abc") },
			verbose: "[DEBUG] content hash abc\n",
		},
		{
			name:    "info",
			log:     func() { Info("%d chunks", 42) },
			verbose: "[INFO] 42 chunks\n",
		},
		{
			name:    "warn",
			log:     func() { Warn("vector index unavailable") },
			verbose: "[WARN] vector index unavailable\n",
		},
		{
			name:    "error",
			log:     func() { Error("restore failed: %s", "missing object") },
			verbose: "[ERROR] restore failed: missing object\n",
			quiet:   "[ERROR] restore failed: missing object\n",
		},
		{
			name:    "section",
			log:     func() { Section("Similarity check: a.txt") },
			verbose: "\n=== Similarity check: a.txt ===\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/verbose", func(t *testing.T) {
			buf := capture(t, true)
			tt.log()
			assert.Equal(t, tt.verbose, buf.String())
		})
		t.Run(tt.name+"/quiet", func(t *testing.T) {
			buf := capture(t, false)
			tt.log()
			assert.Equal(t, tt.quiet, buf.String())
		})
	}
}

func TestFormatVerbsInArgsAreNotExpanded(t *testing.T) {
	buf := capture(t, true)

	Info("file %s", "100%done.txt")

	assert.Equal(t, "[INFO] file 100%done.txt\n", buf.String())
}

func TestTimed(t *testing.T) {
	buf := capture(t, true)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	now = func() time.Time {
		calls++
		return start.Add(time.Duration(calls-1) * 1500 * time.Millisecond)
	}

	done := Timed("ingest")
	done()

	assert.Equal(t, "[DEBUG] ingest took 1.5s\n", buf.String())
}

func TestConcurrentAccess(t *testing.T) {
	buf := capture(t, true)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Debug("worker %d", i)
			_ = IsVerbose()
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, bytes.Count(buf.Bytes(), []byte("[DEBUG] worker")))
}
