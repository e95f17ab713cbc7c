package db

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config selects between a local sqlite file and a remote libsql database.
type Config struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config Config) OpenDB() (*sql.DB, error) {
	if config.Url != "" {
		dsn := config.Url
		if config.AuthToken != "" {
			dsn = fmt.Sprintf("%s?authToken=%s", config.Url, config.AuthToken)
		}
		db, err := sql.Open("libsql", dsn)
		if err != nil {
			return nil, err
		}
		_, err = db.Exec("PRAGMA foreign_keys=ON")
		if err != nil {
			return nil, err
		}
		_, err = db.Exec(Schema)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	if config.File == "" {
		return nil, fmt.Errorf("neither a database file nor url was specified")
	}
	return OpenSqlite(config.File)
}

// OpenSqlite opens (creating if needed) a sqlite database and applies the
// schema. ":memory:" is accepted for tests.
func OpenSqlite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		_, statErr := os.Stat(path)
		if os.IsNotExist(statErr) {
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	// sqlite only tolerates a single writer
	db.SetMaxOpenConns(1)
	_, err = db.Exec(Schema)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// sqliteDSN puts the pragmas in the dsn so that every connection the pool
// opens has them, not only the first.
func sqliteDSN(path string) string {
	dsn := path + "?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	return dsn
}
