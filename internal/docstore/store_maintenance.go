package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DatabaseHealth describes the state of the document database.
type DatabaseHealth struct {
	DBPath         string
	DatabaseExists bool
	SchemaVersion  string
	IntegrityCheck bool
	TotalDocuments int64
	Error          string
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping document database: %w", err)
	}
	return nil
}

// CheckHealth returns diagnostic information about the document database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("document database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat document database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("document database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		health.Error = err.Error()
		return health, nil
	}
	health.SchemaVersion = version

	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		health.Error = fmt.Sprintf("integrity check: %v", err)
		return health, nil
	}
	health.IntegrityCheck = strings.EqualFold(result, "ok")
	if !health.IntegrityCheck {
		health.Error = result
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM documents").Scan(&health.TotalDocuments); err != nil {
		health.Error = fmt.Sprintf("count documents: %v", err)
	}
	return health, nil
}
