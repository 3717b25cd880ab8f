package db

import (
	"strings"

	"github.com/go-sql-driver/mysql"
)

type Database struct {
	DriverName string
	DSN        string
}

// GetConnection derives driver name and DSN from a database URL.
//
// For mysql, input 'username:password@tcp(localhost:3306)/funnelmon'
// returns DriverName "mysql" with parseTime enabled; postgres URLs pass
// through unchanged.
func GetConnection(dbURL string) (*Database, error) {
	database := &Database{DriverName: detectDriver(dbURL)}

	switch database.DriverName {
	case MysqlDriverName:
		cfg, err := mysql.ParseDSN(dbURL)
		if err != nil {
			return nil, err
		}
		cfg.ParseTime = true
		database.DSN = cfg.FormatDSN()
	case PostgresDriverName:
		database.DSN = dbURL
	}
	return database, nil
}

func detectDriver(dbURL string) string {
	if strings.Contains(dbURL, "postgres") {
		return PostgresDriverName
	}
	return MysqlDriverName
}
