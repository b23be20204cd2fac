package logger

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestSpecificLevelWriterFilters(t *testing.T) {
	var buf bytes.Buffer
	w := SpecificLevelWriter{Writer: &buf, Levels: []zerolog.Level{zerolog.WarnLevel}}
	if _, err := w.WriteLevel(zerolog.InfoLevel, []byte("info\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := w.WriteLevel(zerolog.WarnLevel, []byte("warn\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "warn\n" {
		t.Fatalf("got %q, want only the warn line", got)
	}
}

func TestSetOutputWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(zerolog.DebugLevel)
	Warnf("time limit %d", 5)
	if !strings.Contains(buf.String(), `"level":"warn"`) || !strings.Contains(buf.String(), "time limit 5") {
		t.Fatalf("unexpected log output: %s", buf.String())
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func TestReconfigureWhileLogging(t *testing.T) {
	var out lockedBuffer
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					Infof("tick")
					L().Debug().Msg("tock")
				}
			}
		}()
	}
	for i := 0; i < 100; i++ {
		SetOutput(&out)
		SetLevel(zerolog.DebugLevel)
		SetLevel(zerolog.InfoLevel)
	}
	close(stop)
	wg.Wait()
	SetOutput(io.Discard)
	if get().GetLevel() != zerolog.InfoLevel {
		t.Fatalf("level: %v", get().GetLevel())
	}
}
