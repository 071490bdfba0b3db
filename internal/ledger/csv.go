package ledger

import (
	"bufio"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Store is the durable trade log. Append must be serialized by the
// implementation: the ledger is the sole source of truth for recovery.
type Store interface {
	Append(row Row) error
	ReadAll() ([]Row, error)
}

// CSV is a flat-file Store: one header row followed by one line per trade
// event, append-only. A dashboard process may read the file concurrently
// without locking; ReadAll ignores a partially written trailing line.
type CSV struct {
	path string
	log  *zap.Logger

	mu sync.Mutex
}

func NewCSV(path string, log *zap.Logger) *CSV {
	return &CSV{path: path, log: log}
}

func (s *CSV) Append(row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFile(); err != nil {
		return err
	}
	file, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	w := csv.NewWriter(file)
	if err := w.Write(row.record()); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return file.Sync()
}

// ReadAll returns every parseable row in append order. Malformed lines are
// logged and skipped; they never fail the read.
func (s *CSV) ReadAll() ([]Row, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var rows []Row
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if first {
			first = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		record, err := csv.NewReader(strings.NewReader(line)).Read()
		if err != nil {
			s.warnSkip(line, err)
			continue
		}
		row, err := parseRow(record)
		if err != nil {
			s.warnSkip(line, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, scanner.Err()
}

func (s *CSV) warnSkip(line string, err error) {
	if s.log == nil {
		return
	}
	s.log.Warn("skipping unreadable ledger row", zap.String("line", line), zap.Error(err))
}

func (s *CSV) ensureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()
	w := csv.NewWriter(file)
	if err := w.Write(Header); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return file.Sync()
}
