package store

import (
	"fmt"
	"strings"

	"github.com/sells-group/listing-etl/internal/model"
)

// dialect holds the per-driver SQL fragments the schema and queries are
// generated from.
type dialect struct {
	name      string
	serialKey string // surrogate key column definition
	text      string // free-text attribute
	keyText   string // indexed text (listing URL)
	bigint    string
	date      string
	timestamp string // nullable timestamp
	now       string
	bind      func(n int) string
	// insertIgnore follows INSERT ... VALUES (...) for dimension members; a
	// conflicting business key must insert nothing.
	insertIgnore string
	upsert       func(key string, cols []string) string
}

func (d dialect) createdAt() string {
	return fmt.Sprintf("%s NOT NULL DEFAULT %s", d.timestamp, d.nowDefault())
}

func (d dialect) nowDefault() string {
	if d.name == "sqlite" {
		return "(" + d.now + ")"
	}
	return d.now
}

func (d dialect) binds(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = d.bind(from + i)
	}
	return strings.Join(parts, ", ")
}

func dollarBind(n int) string   { return fmt.Sprintf("$%d", n) }
func questionBind(_ int) string { return "?" }

func onConflictUpdate(key string, cols []string) string {
	var sets []string
	for _, c := range cols {
		if c != key {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", key, strings.Join(sets, ", "))
}

func onDuplicateKeyUpdate(key string, cols []string) string {
	var sets []string
	for _, c := range cols {
		if c != key {
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", c, c))
		}
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}

var (
	postgresDialect = dialect{
		name:         "postgres",
		serialKey:    "BIGSERIAL PRIMARY KEY",
		text:         "TEXT",
		keyText:      "TEXT",
		bigint:       "BIGINT",
		date:         "DATE",
		timestamp:    "TIMESTAMPTZ",
		now:          "now()",
		bind:         dollarBind,
		insertIgnore: "ON CONFLICT (business_key) DO NOTHING RETURNING surrogate_key",
		upsert:       onConflictUpdate,
	}
	sqliteDialect = dialect{
		name:         "sqlite",
		serialKey:    "INTEGER PRIMARY KEY AUTOINCREMENT",
		text:         "TEXT",
		keyText:      "TEXT",
		bigint:       "INTEGER",
		date:         "TEXT",
		timestamp:    "DATETIME",
		now:          "datetime('now')",
		bind:         questionBind,
		insertIgnore: "ON CONFLICT (business_key) DO NOTHING",
		upsert:       onConflictUpdate,
	}
	mysqlDialect = dialect{
		name:         "mysql",
		serialKey:    "BIGINT AUTO_INCREMENT PRIMARY KEY",
		text:         "TEXT",
		keyText:      "VARCHAR(512)",
		bigint:       "BIGINT",
		date:         "DATE",
		timestamp:    "DATETIME(6)",
		now:          "CURRENT_TIMESTAMP(6)",
		bind:         questionBind,
		insertIgnore: "ON DUPLICATE KEY UPDATE business_key = business_key",
		upsert:       onDuplicateKeyUpdate,
	}
)

// stagingTypes maps non-text staging columns to their kind.
var stagingTypes = map[string]model.ColumnKind{
	"production_year": model.KindInt,
	"price":           model.KindInt,
	"mileage":         model.KindInt,
	"view_count":      model.KindInt,
	"seats":           model.KindInt,
	"doors":           model.KindInt,
}

func (d dialect) columnType(k model.ColumnKind) string {
	if k == model.KindInt {
		return d.bigint
	}
	return d.text
}

func (d dialect) migrations() []string {
	var stmts []string
	for _, dim := range model.Dimensions() {
		stmts = append(stmts, d.dimensionDDL(dim))
	}
	return append(stmts, d.factDDL(), d.stagingDDL(), d.runsDDL())
}

func (d dialect) dimensionDDL(dim *model.Dimension) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", dim.Table)
	fmt.Fprintf(&b, "\tsurrogate_key %s,\n", d.serialKey)
	b.WriteString("\tbusiness_key  CHAR(32) NOT NULL UNIQUE,\n")
	for _, c := range dim.Columns {
		fmt.Fprintf(&b, "\t%s %s,\n", c.Name, d.columnType(c.Kind))
	}
	fmt.Fprintf(&b, "\tupdated_at %s\n)", d.createdAt())
	return b.String()
}

func (d dialect) factDDL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", factTable)
	fmt.Fprintf(&b, "\tfact_id %s,\n", d.serialKey)
	for _, dim := range model.Dimensions() {
		fmt.Fprintf(&b, "\t%s_key %s NOT NULL REFERENCES %s(surrogate_key),\n", dim.Name, d.bigint, dim.Table)
	}
	fmt.Fprintf(&b, "\tprice %s,\n\tmileage %s,\n\tposting_date %s,\n\tview_count %s,\n",
		d.bigint, d.bigint, d.date, d.bigint)
	fmt.Fprintf(&b, "\tlisting_url %s NOT NULL,\n", d.text)
	b.WriteString("\trun_id CHAR(36),\n")
	fmt.Fprintf(&b, "\tloaded_at %s\n)", d.createdAt())
	return b.String()
}

func (d dialect) stagingDDL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", stagingTable)
	for _, c := range model.StagingColumns {
		switch {
		case c == "listing_url":
			fmt.Fprintf(&b, "\t%s %s PRIMARY KEY,\n", c, d.keyText)
		case c == "posting_date":
			fmt.Fprintf(&b, "\t%s %s,\n", c, d.date)
		default:
			fmt.Fprintf(&b, "\t%s %s,\n", c, d.columnType(stagingTypes[c]))
		}
	}
	fmt.Fprintf(&b, "\tstaged_at %s\n)", d.createdAt())
	return b.String()
}

func (d dialect) runsDDL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id             CHAR(36) PRIMARY KEY,
	status         VARCHAR(16) NOT NULL,
	started_at     %s NOT NULL,
	finished_at    %s,
	rows_read      %s NOT NULL DEFAULT 0,
	rows_processed %s NOT NULL DEFAULT 0,
	rows_skipped   %s NOT NULL DEFAULT 0,
	error          %s
)`, runsTable, d.timestamp, d.timestamp, d.bigint, d.bigint, d.bigint, d.text)
}

func (d dialect) lookupSQL(dim *model.Dimension) string {
	cols := append([]string{"surrogate_key", "business_key"}, dim.ColumnNames()...)
	return fmt.Sprintf("SELECT %s FROM %s WHERE business_key = %s",
		strings.Join(cols, ", "), dim.Table, d.bind(1))
}

func (d dialect) insertDimensionSQL(dim *model.Dimension) string {
	cols := append([]string{"business_key"}, dim.ColumnNames()...)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s",
		dim.Table, strings.Join(cols, ", "), d.binds(1, len(cols)), d.insertIgnore)
}

func (d dialect) updateDimensionSQL(dim *model.Dimension) string {
	sets := make([]string, 0, len(dim.Columns)+1)
	for i, c := range dim.Columns {
		sets = append(sets, fmt.Sprintf("%s = %s", c.Name, d.bind(i+1)))
	}
	sets = append(sets, "updated_at = "+d.now)
	return fmt.Sprintf("UPDATE %s SET %s WHERE surrogate_key = %s",
		dim.Table, strings.Join(sets, ", "), d.bind(len(dim.Columns)+1))
}

func (d dialect) insertFactSQL() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		factTable, strings.Join(model.FactColumns, ", "), d.binds(1, len(model.FactColumns)))
}

func (d dialect) stageSQL() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s",
		stagingTable, strings.Join(model.StagingColumns, ", "),
		d.binds(1, len(model.StagingColumns)), d.upsert("listing_url", model.StagingColumns))
}

func (d dialect) startRunSQL() string {
	return fmt.Sprintf("INSERT INTO %s (id, status, started_at, rows_read, rows_processed, rows_skipped) VALUES (%s)",
		runsTable, d.binds(1, 6))
}

func (d dialect) finishRunSQL() string {
	return fmt.Sprintf("UPDATE %s SET status = %s, finished_at = %s, rows_read = %s, rows_processed = %s, rows_skipped = %s, error = %s WHERE id = %s",
		runsTable, d.bind(1), d.bind(2), d.bind(3), d.bind(4), d.bind(5), d.bind(6), d.bind(7))
}

func (d dialect) listRunsSQL() string {
	return fmt.Sprintf("SELECT id, status, started_at, finished_at, rows_read, rows_processed, rows_skipped, error FROM %s ORDER BY started_at DESC LIMIT %s",
		runsTable, d.bind(1))
}
