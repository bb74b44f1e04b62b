package migration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Runner orchestrates scanning, sequencing and applying migrations.
type Runner struct {
	scanner  *Scanner
	executor Executor
	logger   *slog.Logger
}

// NewRunner wires a runner. A nil logger discards output.
func NewRunner(scanner *Scanner, executor Executor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		scanner:  scanner,
		executor: executor,
		logger:   logger.With(slog.String("component", "migration")),
	}
}

// Run applies every pending migration in version order. It stops at the first failure;
// earlier migrations stay applied.
func (r *Runner) Run(ctx context.Context) error {
	started := time.Now()

	status, err := r.Status(ctx)
	if err != nil {
		return err
	}

	if status.PendingCount == 0 {
		r.logger.InfoContext(ctx, "schema up to date", slog.String("version", status.CurrentVersion))
		return nil
	}

	r.logger.InfoContext(ctx, "applying migrations",
		slog.String("from_version", status.CurrentVersion),
		slog.Int("pending", status.PendingCount),
	)

	for i, migration := range status.PendingMigrations {
		migrationStarted := time.Now()
		if err := r.executor.ExecuteMigration(ctx, migration); err != nil {
			r.logger.ErrorContext(ctx, "migration failed",
				slog.String("version", migration.Version),
				slog.String("file", migration.FilePath),
				slog.Any("error", err),
			)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}

		elapsed := time.Since(migrationStarted)
		if err := r.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			return NewMigrationError(migration.Version, migration.FilePath, "record migration", err)
		}

		r.logger.InfoContext(ctx, "migration applied",
			slog.String("version", migration.Version),
			slog.String("description", migration.Description),
			slog.Int("position", i+1),
			slog.Duration("duration", elapsed),
		)
	}

	r.logger.InfoContext(ctx, "migrations complete",
		slog.Int("applied", status.PendingCount),
		slog.Duration("duration", time.Since(started)),
	)
	return nil
}

// Status compares the files on disk with schema_migrations.
func (r *Runner) Status(ctx context.Context) (*Status, error) {
	if err := r.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := r.scanner.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := r.executor.AppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, err
	}

	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	current := ""
	for _, a := range applied {
		appliedByVersion[a.Version] = a
		if current == "" || versionNumber(a.Version) > versionNumber(current) {
			current = a.Version
		}
	}

	var pending []Migration
	for _, m := range available {
		a, ok := appliedByVersion[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if a.Checksum != "" && a.Checksum != m.Checksum {
			return nil, NewMigrationError(m.Version, m.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}

	return &Status{
		CurrentVersion:    current,
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}, nil
}

// validateSequence rejects gaps in the file versions and applied versions with no file.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	present := make(map[int]bool, len(available))
	for _, m := range available {
		present[versionNumber(m.Version)] = true
	}

	if len(available) > 0 {
		first := versionNumber(available[0].Version)
		last := versionNumber(available[len(available)-1].Version)
		for v := first; v <= last; v++ {
			if !present[v] {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, v)
			}
		}
	}

	for _, a := range applied {
		if !present[versionNumber(a.Version)] {
			return fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, a.Version)
		}
	}
	return nil
}
