// Package catalog reads the scraped title catalog from the scraper's SQLite
// output.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/domain"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/errors"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/validation"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Catalog is a read handle on a scraped catalog database.
type Catalog struct {
	db        *sql.DB
	validator *validation.Validator
	logger    *slog.Logger
}

// Open opens the catalog at path. The titles table must already exist.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(2)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec pragma: %w", err)
	}

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'titles'`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		db.Close()
		return nil, errors.NotFoundf("catalog %s has no titles table", path)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("inspect schema: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Catalog{db: db, validator: validation.New(), logger: logger}, nil
}

// Create creates an empty catalog at path. It is used by the scraper side
// and by tests.
func Create(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}
	return db, nil
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Load returns every title ordered by id. Rows that fail validation abort the
// load with a validation error naming the row.
func (c *Catalog) Load(ctx context.Context) ([]*domain.Title, error) {
	start := time.Now()

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, name, partition_key, COALESCE(genres, ''), COALESCE(type, ''),
		       main, extras, completionist
		FROM titles
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query titles: %w", err)
	}
	defer rows.Close()

	var titles []*domain.Title
	for rows.Next() {
		var (
			t             domain.Title
			genres, kind  string
			main, extras  sql.NullInt64
			completionist sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.PartitionKey, &genres, &kind, &main, &extras, &completionist); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}

		t.Genres = splitGenres(genres)
		t.Type = domain.ParseTitleType(kind)
		t.Main = field(main)
		t.Extras = field(extras)
		t.Completionist = field(completionist)

		if err := c.validator.Validate(&t); err != nil {
			var domainErr *errors.Error
			if errors.As(err, &domainErr) {
				return nil, errors.ValidationWithDetails(
					fmt.Sprintf("title %d is invalid", t.ID), domainErr.Details)
			}
			return nil, err
		}
		titles = append(titles, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}

	c.logger.Info("catalog loaded",
		slog.Int("titles", len(titles)),
		slog.Duration("duration", time.Since(start)),
	)
	return titles, nil
}

// field maps a scraped column to a TTB field. NULL and non-positive values
// were not scraped.
func field(v sql.NullInt64) domain.TTB {
	if !v.Valid || v.Int64 <= 0 {
		return domain.Missing()
	}
	return domain.Observed(int(v.Int64))
}

func splitGenres(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	genres := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			genres = append(genres, p)
		}
	}
	return genres
}
