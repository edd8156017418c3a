// Package logbuf implements the bounded eval log file. Formatted result
// blocks are appended and the oldest lines are evicted whenever the
// configured bound would be exceeded. Every append replaces the file
// atomically so a concurrent reader never observes a torn write.
package logbuf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/replbridge/replbridge/src/bridge/entity"
)

const (
	_configKeyPath     = "logbuf.path"
	_configKeyMaxLines = "logbuf.maxLines"

	_timestampFormat = "15:04:05 Jan 02 2006"

	_prefixOut       = ";"
	_prefixErr       = ";✖ "
	_prefixException = ";  "
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// LogBuf is the output sink for evaluation results.
type LogBuf interface {
	// Message appends a timestamped comment line.
	Message(msg string) error
	// AppendEval appends one formatted result block for a completed or
	// discarded eval.
	AppendEval(p *entity.PendingEval) error
	// AppendLines appends raw lines, enforcing the size bound.
	AppendLines(lines []string) error
	// Path returns the log file path for discovery by the editor layer.
	Path() string
	// LineCount returns the current number of lines held.
	LineCount() int
}

type module struct {
	path     string
	maxLines int

	mu     sync.Mutex
	lines  []string
	logger *zap.SugaredLogger
}

// Params define values to be used by LogBuf.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
}

// New creates the LogBuf backing file handler.
func New(p Params) (LogBuf, error) {
	m := module{
		logger: p.Logger,
	}

	if err := m.processConfig(p.Config); err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: m.OnStart,
	})

	return &m, nil
}

// OnStart truncates the log file so every bridge run starts with a fresh
// session log.
func (m *module) OnStart(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = nil
	return m.flushLocked()
}

func (m *module) Path() string {
	return m.path
}

func (m *module) LineCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines)
}

func (m *module) Message(msg string) error {
	line := fmt.Sprintf(";; [%s] %s", time.Now().Format(_timestampFormat), msg)
	return m.AppendLines([]string{line})
}

func (m *module) AppendEval(p *entity.PendingEval) error {
	return m.AppendLines(formatEval(p))
}

func (m *module) AppendLines(lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lines = append(m.lines, lines...)
	if over := len(m.lines) - m.maxLines; over > 0 {
		// Evict exactly the oldest lines over the bound so every retained
		// line survives as long as the bound allows.
		m.lines = m.lines[over:]
	}

	return m.flushLocked()
}

// flushLocked rewrites the whole file through a temp file and rename so
// external readers never see a partially written log.
func (m *module) flushLocked() error {
	content := strings.Join(m.lines, "\n")
	if len(m.lines) > 0 {
		content += "\n"
	}

	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, ".logbuf-*")
	if err != nil {
		return fmt.Errorf("creating temp log file: %w", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing log file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp log file: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing log file: %w", err)
	}
	return nil
}

func (m *module) processConfig(cfg config.Provider) error {
	if err := cfg.Get(_configKeyPath).Populate(&m.path); err != nil {
		return fmt.Errorf("getting config field %q: %w", _configKeyPath, err)
	}
	if m.path == "" {
		return fmt.Errorf("missing field %q in config", _configKeyPath)
	}
	if err := cfg.Get(_configKeyMaxLines).Populate(&m.maxLines); err != nil {
		return fmt.Errorf("getting config field %q: %w", _configKeyMaxLines, err)
	}
	if m.maxLines <= 0 {
		return fmt.Errorf("field %q must be positive", _configKeyMaxLines)
	}
	return nil
}

// formatEval renders one result block: a location header, output chunks in
// arrival order, then the exception trace or final value.
func formatEval(p *entity.PendingEval) []string {
	var lines []string
	if p.Request.File != "" {
		lines = append(lines, fmt.Sprintf(";; %s:%d:%d", p.Request.File, p.Request.Line, p.Request.Column))
	}
	for _, chunk := range p.Chunks {
		prefix := _prefixOut
		if chunk.Kind == entity.FragmentErr {
			prefix = _prefixErr
		}
		lines = append(lines, prefixLines(chunk.Text, prefix)...)
	}
	if p.Exception != "" {
		lines = append(lines, prefixLines(p.Exception, _prefixException)...)
	} else if p.Value != "" {
		lines = append(lines, strings.Split(strings.TrimRight(p.Value, "\n"), "\n")...)
	}
	return lines
}

func prefixLines(text, prefix string) []string {
	trimmed := strings.TrimRight(text, "\n")
	if trimmed == "" {
		return nil
	}
	split := strings.Split(trimmed, "\n")
	out := make([]string, 0, len(split))
	for _, s := range split {
		out = append(out, prefix+s)
	}
	return out
}
