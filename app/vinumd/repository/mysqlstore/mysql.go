package mysqlstore

import (
	"database/sql"
	"fmt"

	"github.com/chanyoung/vinum/pkg/util/config"
	_ "github.com/go-sql-driver/mysql"
)

// mySQL is the handle of MySQL client.
type mySQL struct {
	db *sql.DB
}

// dsn returns the data source name of the configured database.
func dsn(cfg config.Store) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s",
		cfg.MySQLUser,
		cfg.MySQLPassword,
		cfg.MySQLHost,
		cfg.MySQLPort,
		cfg.MySQLDatabase,
	)
}

// newMySQL returns MySQL handle with the opened db.
func newMySQL(cfg config.Store) (*mySQL, error) {
	db, err := sql.Open("mysql", dsn(cfg))
	if err != nil {
		return nil, err
	}

	m := &mySQL{
		db: db,
	}
	if err = m.init(); err != nil {
		m.db.Close()
		return nil, err
	}

	return m, nil
}

func (m *mySQL) init() error {
	// Generates base tables.
	for _, q := range generateSQLBase {
		if _, err := m.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

func (m *mySQL) close() error {
	return m.db.Close()
}
