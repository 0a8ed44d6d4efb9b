package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database backing the message queue. Writer is a
// single-connection handle so writes serialize; Reader may run concurrent
// queries against the WAL.
type Store struct {
	Writer *sql.DB
	Reader *sql.DB
}

func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)

	writer, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite3", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open db reader: %w", err)
	}

	s := &Store{Writer: writer, Reader: reader}
	if err := s.createSchema(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	var firstErr error
	if err := s.Reader.Close(); err != nil {
		firstErr = err
	}
	if err := s.Writer.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
