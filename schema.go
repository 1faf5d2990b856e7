package main

import (
	"fmt"
	"strings"
)

var createTablesSql = `
CREATE TABLE IF NOT EXISTS metadata(
    key         char(24)    NOT NULL PRIMARY KEY,
    value       text        NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    id               char(36)    NOT NULL,
    version          integer     NOT NULL PRIMARY KEY AUTOINCREMENT,
    created          datetime    NOT NULL,
    UNIQUE (id)
);

CREATE TABLE IF NOT EXISTS messages_2 (
    id               char(36)    NOT NULL,
    version          integer     NOT NULL PRIMARY KEY AUTOINCREMENT,
    created          datetime    NOT NULL
);`

var dropTablesSql = `
DROP TABLE IF EXISTS messages;

DROP TABLE IF EXISTS metadata;
`

var insertMessageSql = `
INSERT INTO messages_2 (id, created)
VALUES (?, ?)
`

// Statements is the SQL text a scenario runs. It is checked once with
// Validate before the scenario touches the database.
type Statements struct {
	Create string
	Drop   string
	Insert string
	// Table is where Insert writes, used to verify row counts.
	Table string
}

func DefaultStatements() Statements {
	return Statements{
		Create: createTablesSql,
		Drop:   dropTablesSql,
		Insert: insertMessageSql,
		Table:  "messages_2",
	}
}

func (s Statements) Validate() error {
	if strings.TrimSpace(s.Create) == "" {
		return fmt.Errorf("%w: empty create script", ErrInvalidConfig)
	}
	if strings.TrimSpace(s.Drop) == "" {
		return fmt.Errorf("%w: empty drop script", ErrInvalidConfig)
	}
	if strings.TrimSpace(s.Insert) == "" {
		return fmt.Errorf("%w: empty insert statement", ErrInvalidConfig)
	}
	// id and created
	if n := strings.Count(s.Insert, "?"); n != 2 {
		return fmt.Errorf("%w: insert statement binds %v parameters, expected 2", ErrInvalidConfig, n)
	}
	if strings.TrimSpace(s.Table) == "" {
		return fmt.Errorf("%w: empty insert table", ErrInvalidConfig)
	}
	return nil
}
