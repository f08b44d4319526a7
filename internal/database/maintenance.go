package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const backupPrefix = "trading_"

// Backup writes a consistent copy of the database into dir and keeps only
// the newest keep backups. It returns the path of the new file.
func (s *Store) Backup(ctx context.Context, dir string, keep int) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}

	path := filepath.Join(dir, backupPrefix+s.now().Format("20060102_150405.000000000")+".db")
	stmt := fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(path, "'", "''"))
	if err := s.db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return "", fmt.Errorf("failed to back up database: %w", err)
	}
	s.log.Info("Database backed up", zap.String("path", path))

	if keep > 0 {
		if err := s.pruneBackups(dir, keep); err != nil {
			return path, err
		}
	}
	return path, nil
}

func (s *Store) pruneBackups(dir string, keep int) error {
	files, err := filepath.Glob(filepath.Join(dir, backupPrefix+"*.db"))
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(files) <= keep {
		return nil
	}
	// Timestamped names sort chronologically.
	sort.Strings(files)
	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", f, err)
		}
		s.log.Debug("Old backup removed", zap.String("path", f))
	}
	return nil
}

// Vacuum rebuilds the database file to reclaim free pages.
func (s *Store) Vacuum(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Exec("VACUUM").Error; err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}
