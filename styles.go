package main

import (
	"bytes"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"venom-connect-tui/styles"
)

// -------------------- THEME (Lip Gloss) --------------------
// Palettes come from the styles package, one per connector theme

// logStyles styles the log panel with palette p
func logStyles(p styles.Palette) *log.Styles {
	s := log.DefaultStyles()
	s.Timestamp = lipgloss.NewStyle().Foreground(p.Muted)
	s.Caller = lipgloss.NewStyle().Faint(true)
	s.Prefix = lipgloss.NewStyle().Bold(true).Foreground(p.Accent2)
	s.Message = lipgloss.NewStyle().Foreground(p.Text)
	s.Key = lipgloss.NewStyle().Foreground(p.Accent)
	s.Value = lipgloss.NewStyle().Foreground(p.Text)
	s.Separator = lipgloss.NewStyle().Faint(true)
	s.Levels = map[log.Level]lipgloss.Style{
		log.DebugLevel: lipgloss.NewStyle().Foreground(p.Muted).SetString("DEBUG"),
		log.InfoLevel:  lipgloss.NewStyle().Foreground(p.Accent2).SetString("INFO"),
		log.WarnLevel:  lipgloss.NewStyle().Foreground(p.Warn).SetString("WARN"),
		log.ErrorLevel: lipgloss.NewStyle().Foreground(p.Error).SetString("ERROR"),
	}
	return s
}

// -------------------- LOG SINK --------------------

const maxLogBytes = 64 << 10

// logSink collects log output for the log panel. The controller logs from its
// own goroutines, so writes are serialized.
type logSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.buf.Write(p)
	if s.buf.Len() > maxLogBytes {
		// drop whole lines from the front
		data := s.buf.Bytes()
		cut := len(data) - maxLogBytes
		if i := bytes.IndexByte(data[cut:], '\n'); i >= 0 {
			cut += i + 1
		}
		s.buf.Next(cut)
	}
	return n, err
}

func (s *logSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func (s *logSink) Reset() {
	s.mu.Lock()
	s.buf.Reset()
	s.mu.Unlock()
}
