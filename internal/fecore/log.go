package fecore

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LogStream is the application's output channel: levelled records go
// through logrus, raw lines (banners, tabular output) bypass the formatter.
// An optional file duplicates everything written to the screen.
type LogStream struct {
	mu     sync.Mutex
	logger *log.Logger
	screen io.Writer
	file   *os.File
}

// NewLogStream returns a stream writing to out, usually os.Stdout.
func NewLogStream(out io.Writer) *LogStream {
	logger := log.New()
	logger.SetOutput(out)
	return &LogStream{logger: logger, screen: out}
}

// SetLevel adjusts the threshold for levelled records. Raw prints are
// unaffected.
func (s *LogStream) SetLevel(level log.Level) { s.logger.SetLevel(level) }

// AttachFile opens path and duplicates all further output into it.
func (s *LogStream) AttachFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		return errors.Errorf("fecore: log file already attached")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrapf(err, "attach log file %s", path)
	}
	s.file = f
	s.logger.SetOutput(io.MultiWriter(s.screen, f))
	return nil
}

// Close detaches and closes the log file, if any.
func (s *LogStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.logger.SetOutput(s.screen)
	return errors.Wrap(err, "close log file")
}

// Print writes one raw line, bypassing level filtering and formatting.
func (s *LogStream) Print(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(s.logger.Out, msg)
}

// Printf formats and writes one raw line.
func (s *LogStream) Printf(format string, args ...interface{}) {
	s.Print(fmt.Sprintf(format, args...))
}

// Debugf writes a debug-level record.
func (s *LogStream) Debugf(format string, args ...interface{}) {
	s.logger.Debugf(format, args...)
}

// Infof writes an info-level record.
func (s *LogStream) Infof(format string, args ...interface{}) {
	s.logger.Infof(format, args...)
}

// Warnf writes a warning-level record.
func (s *LogStream) Warnf(format string, args ...interface{}) {
	s.logger.Warnf(format, args...)
}

// Errorf writes an error-level record.
func (s *LogStream) Errorf(format string, args ...interface{}) {
	s.logger.Errorf(format, args...)
}
