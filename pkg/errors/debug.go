package errors

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrorDump is the log-only view of an error chain, including the driver
// fields that explain lock timeouts, deadlocks and constraint violations.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`
	Driver     string   `json:"driver,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`

	MySQLNumber  uint16 `json:"mysql_number,omitempty"`
	MySQLMessage string `json:"mysql_message,omitempty"`

	SQLiteCode     int `json:"sqlite_code,omitempty"`
	SQLiteExtended int `json:"sqlite_extended,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var (
		pgxErr  *pgconn.PgError
		pqErr   *pq.Error
		myErr   *mysql.MySQLError
		liteErr sqlite3.Error
	)
	switch {
	case errors.As(err, &pgxErr):
		d.Driver = "pgx"
		d.PGCode, d.PGMessage, d.PGDetail = pgxErr.Code, pgxErr.Message, pgxErr.Detail
		d.PGConstraint, d.PGTable, d.PGColumn = pgxErr.ConstraintName, pgxErr.TableName, pgxErr.ColumnName
	case errors.As(err, &pqErr):
		d.Driver = "pq"
		d.PGCode, d.PGMessage, d.PGDetail = string(pqErr.Code), pqErr.Message, pqErr.Detail
		d.PGConstraint, d.PGTable, d.PGColumn = pqErr.Constraint, pqErr.Table, pqErr.Column
	case errors.As(err, &myErr):
		d.Driver = "mysql"
		d.MySQLNumber, d.MySQLMessage = myErr.Number, myErr.Message
	case errors.As(err, &liteErr):
		d.Driver = "sqlite"
		d.SQLiteCode, d.SQLiteExtended = int(liteErr.Code), int(liteErr.ExtendedCode)
	}
	return d
}

// Fields flattens the dump into log fields, skipping driver fields that are unset.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	add := func(key string, value any, set bool) {
		if set {
			fields[key] = value
		}
	}
	add("db_driver", d.Driver, d.Driver != "")
	add("pg_code", d.PGCode, d.PGCode != "")
	add("pg_message", d.PGMessage, d.PGMessage != "")
	add("pg_detail", d.PGDetail, d.PGDetail != "")
	add("pg_table", d.PGTable, d.PGTable != "")
	add("pg_column", d.PGColumn, d.PGColumn != "")
	add("pg_constraint", d.PGConstraint, d.PGConstraint != "")
	add("mysql_number", d.MySQLNumber, d.MySQLNumber != 0)
	add("mysql_message", d.MySQLMessage, d.MySQLMessage != "")
	add("sqlite_code", d.SQLiteCode, d.SQLiteCode != 0)
	add("sqlite_extended", d.SQLiteExtended, d.SQLiteExtended != 0)
	return fields
}
