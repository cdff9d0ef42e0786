package queue

import (
	"database/sql"
	"time"
)

// SetClock replaces the store's time source.
func SetClock(s *Store, now func() time.Time) { s.now = now }

// DB exposes the underlying handle for direct assertions.
func DB(s *Store) *sql.DB { return s.db }
