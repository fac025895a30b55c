package sqliteutil

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	devenv "courserank-backend/dev/env"

	"github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config selects either a local sqlite file or a remote libsql database,
// `url` takes precedence when set.
type Config struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

func (c Config) OpenDB() (*sql.DB, error) {
	if c.Url != "" {
		var opts []libsql.Option
		if c.AuthToken != "" {
			opts = append(opts, libsql.WithAuthToken(c.AuthToken))
		}
		connector, err := libsql.NewConnector(c.Url, opts...)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		return sql.OpenDB(connector), nil
	}
	if c.File == "" {
		return nil, wrapOpenDB(fmt.Errorf("neither a file nor a url was specified"))
	}
	path := c.File
	if path != ":memory:" {
		var err error
		path, err = devenv.ResolvePath(path)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}
	return OpenDB(path)
}

// OpenDB opens a local sqlite database, creating its parent directory if
// needed.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		_, err = db.Exec(pragma)
		if err != nil {
			db.Close()
			return nil, wrapOpenDB(err)
		}
	}

	return db, nil
}

// Migrate applies an idempotent schema (CREATE ... IF NOT EXISTS).
func Migrate(db *sql.DB, schema string) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
