package stream

import (
	"fmt"
	"os"
)

// FileSink appends one row per record to a flat file, the original CSV-style
// destination. The file is opened per send so a rotated or removed file is
// simply recreated on the next invocation.
type FileSink struct {
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) SendRecord(_ Context, frame RecordFrame) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output %s: %w", s.path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(frame.Row + "\n"); err != nil {
		return fmt.Errorf("append record to %s: %w", s.path, err)
	}
	return nil
}

func (s *FileSink) Close(_ Context) error {
	return nil
}
