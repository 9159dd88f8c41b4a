package postgres

import (
	"bytes"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"text/template"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrationParams is the data each migration file is rendered with.
type migrationParams struct {
	Dimensions int
}

// templateFS renders every .sql file of an underlying filesystem as a
// text/template before handing it to the migration source.
type templateFS struct {
	fsys   fs.FS
	params migrationParams
}

var _ fs.ReadDirFS = templateFS{}

func (t templateFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(t.fsys, name)
}

func (t templateFS) Open(name string) (fs.File, error) {
	if path.Ext(name) != ".sql" {
		return t.fsys.Open(name)
	}

	raw, err := fs.ReadFile(t.fsys, name)
	if err != nil {
		return nil, err
	}
	info, err := fs.Stat(t.fsys, name)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(path.Base(name)).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, &fs.PathError{Op: "parse", Path: name, Err: err}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, t.params); err != nil {
		return nil, &fs.PathError{Op: "render", Path: name, Err: err}
	}

	return &renderedFile{
		Reader: bytes.NewReader(buf.Bytes()),
		info:   renderedInfo{FileInfo: info, size: int64(buf.Len())},
	}, nil
}

// renderedFile is an in-memory fs.File holding a rendered migration.
type renderedFile struct {
	*bytes.Reader
	info renderedInfo
}

func (f *renderedFile) Stat() (fs.FileInfo, error) {
	return f.info, nil
}

func (f *renderedFile) Close() error {
	return nil
}

var _ io.ReadCloser = (*renderedFile)(nil)

type renderedInfo struct {
	fs.FileInfo
	size int64
}

func (i renderedInfo) Size() int64 {
	return i.size
}

// migrationFS returns the embedded migrations rendered for dims.
func migrationFS(dims int) fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		// the directory is embedded at build time
		panic(err)
	}
	return templateFS{fsys: sub, params: migrationParams{Dimensions: dims}}
}

// Migrate applies the embedded schema migrations to the database at dsn.
// The chunk embedding column is created as vector(dims). Running Migrate on
// an up-to-date database is a no-op.
func Migrate(dsn string, dims int, logger *slog.Logger) error {
	if dims < 1 {
		return fmt.Errorf("migrate: dimensions must be positive, got %d", dims)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "postgres-migrate")

	// The migrate driver closes the handle it is given, so it gets its own.
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		db.Close()
		return mapError(fmt.Errorf("migrate driver: %w", err))
	}

	source, err := iofs.New(migrationFS(dims), ".")
	if err != nil {
		driver.Close()
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		source.Close()
		driver.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("failed to close migrator", "source_err", srcErr, "db_err", dbErr)
		}
	}()

	start := time.Now()
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("schema up to date")
			return nil
		}
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("schema migrated", "version", version, "dirty", dirty, "elapsed", time.Since(start))
	return nil
}
