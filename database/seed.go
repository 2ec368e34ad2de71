package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"

	"github.com/NguyenNhuTu09/TIT-Shop/config"
	_ "github.com/lib/pq"
)

//go:embed seeds/*.sql
var seedFiles embed.FS

// SeedFiles returns the bundled demo data.
func SeedFiles() fs.FS {
	sub, err := fs.Sub(seedFiles, "seeds")
	if err != nil {
		panic(err)
	}
	return sub
}

// OpenSQL opens a plain database/sql handle on postgres for running seed files.
func OpenSQL(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.PostgresDSN())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Seed executes every .sql file in files in name order. It stops at the first
// failing file and returns how many files were applied before it.
func Seed(ctx context.Context, db *sql.DB, files fs.FS) (int, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return 0, err
	}
	sort.Strings(names)

	applied := 0
	for _, name := range names {
		content, err := fs.ReadFile(files, name)
		if err != nil {
			return applied, err
		}
		if strings.TrimSpace(string(content)) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return applied, fmt.Errorf("seed %s: %w", name, err)
		}
		log.Printf("✅ Applied seed: %s", name)
		applied++
	}
	log.Printf("✅ Applied %d of %d seed files", applied, len(names))
	return applied, nil
}
