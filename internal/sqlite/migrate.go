package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// migrate makes the live schema match target declaratively.
//
// The target schema is created in a scratch in-memory database that is attached as schemaTarget. Tables missing from
// the target are dropped, new ones created and changed ones rebuilt under a temporary name with their common columns
// copied over, following https://www.sqlite.org/lang_altertable.html#otheralter. Indexes and triggers are recreated
// whenever their SQL differs.
func (db *Database) migrate(ctx context.Context, target string) (err error) {
	start := time.Now()

	detach, err := db.attachTarget(ctx, target)
	if err != nil {
		return fmt.Errorf("attach target schema: %w", err)
	}
	defer detach()

	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			err = errors.Join(err, fmt.Errorf("enable foreign keys: %w", fkErr))
		}
	}()

	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer db.rollback(ctx, tx)

	if err = db.migrateTables(ctx, tx); err != nil {
		return fmt.Errorf("migrate tables: %w", err)
	}
	for _, typ := range []string{"trigger", "index"} {
		if err = db.migrateObjects(ctx, tx, typ); err != nil {
			return fmt.Errorf("migrate %ss: %w", typ, err)
		}
	}
	if _, err = tx.ExecContext(ctx, "PRAGMA foreign_key_check"); err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database", slog.Duration("duration", time.Since(start)))
	return nil
}

// attachTarget creates the target schema in a scratch database and attaches it. The returned function detaches it.
func (db *Database) attachTarget(ctx context.Context, target string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	scratch, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open scratch database: %w", err)
	}
	defer func() {
		if closeErr := scratch.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close scratch database", slog.Any("error", closeErr))
		}
	}()
	if _, err = scratch.ExecContext(ctx, target); err != nil {
		return nil, fmt.Errorf("create target schema: %w", err)
	}
	// The shared cache keeps the scratch database alive while it is attached.
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", dsn); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach target schema", slog.Any("error", detachErr))
		}
	}, nil
}

func (db *Database) rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to roll back transaction", slog.Any("error", err))
	}
}

// schemaDiff lists the objects of one type that differ between the live and the target schema.
type schemaDiff struct {
	removed []string
	added   []string
	changed []string
}

// diffSchema compares the objects of typ by name and SQL. normalise is applied to the SQL before comparing.
func diffSchema(ctx context.Context, tx *sql.Tx, typ string, normalise func(string) string) (schemaDiff, error) {
	var d schemaDiff
	live, err := querySchema(ctx, tx, "main", typ)
	if err != nil {
		return d, fmt.Errorf("query live schema: %w", err)
	}
	target, err := querySchema(ctx, tx, "schemaTarget", typ)
	if err != nil {
		return d, fmt.Errorf("query target schema: %w", err)
	}
	for _, obj := range live {
		if _, ok := lookup(target, obj.name); !ok {
			d.removed = append(d.removed, obj.name)
		}
	}
	for _, obj := range target {
		liveObj, ok := lookup(live, obj.name)
		switch {
		case !ok:
			d.added = append(d.added, obj.sql)
		case normalise(liveObj.sql) != normalise(obj.sql):
			d.changed = append(d.changed, obj.name)
		}
	}
	return d, nil
}

type schemaObject struct {
	name string
	sql  string
}

func lookup(objects []schemaObject, name string) (schemaObject, bool) {
	for _, obj := range objects {
		if obj.name == name {
			return obj, true
		}
	}
	return schemaObject{}, false
}

// querySchema lists the user-defined objects of typ in the given schema. Automatic indexes have no SQL and are
// skipped.
func querySchema(ctx context.Context, tx *sql.Tx, schema, typ string) ([]schemaObject, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT name, sql FROM %s.sqlite_schema
WHERE type = ? AND sql IS NOT NULL AND name NOT LIKE 'sqlite_%%' AND name NOT LIKE '_litestream_%%'
ORDER BY name`, schema), typ)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	var objects []schemaObject
	for rows.Next() {
		var obj schemaObject
		if err = rows.Scan(&obj.name, &obj.sql); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		objects = append(objects, obj)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return objects, nil
}

func (db *Database) migrateTables(ctx context.Context, tx *sql.Tx) error {
	// Renaming a table quotes its name in the stored SQL.
	unquote := func(s string) string { return strings.ReplaceAll(s, `"`, "") }
	d, err := diffSchema(ctx, tx, "table", unquote)
	if err != nil {
		return err
	}

	for _, name := range d.removed {
		if err = db.exec(ctx, tx, fmt.Sprintf("DROP TABLE %s", name)); err != nil {
			return err
		}
	}
	for _, createSQL := range d.added {
		if err = db.exec(ctx, tx, createSQL); err != nil {
			return err
		}
	}
	for _, name := range d.changed {
		if err = db.rebuildTable(ctx, tx, name); err != nil {
			return fmt.Errorf("rebuild %s: %w", name, err)
		}
	}
	return nil
}

// rebuildTable recreates a changed table from its target definition and copies the columns both versions share.
func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, name string) error {
	var targetSQL string
	if err := tx.QueryRowContext(ctx, `SELECT sql FROM schemaTarget.sqlite_schema WHERE type = 'table' AND name = ?`,
		name).Scan(&targetSQL); err != nil {
		return fmt.Errorf("query target sql: %w", err)
	}
	temp := name + "_migration_temp"
	if err := db.exec(ctx, tx, strings.Replace(targetSQL, name, temp, 1)); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `SELECT '"' || target.name || '"'
FROM PRAGMA_TABLE_INFO(:table) AS live
JOIN PRAGMA_TABLE_INFO(:table, 'schemaTarget') AS target ON target.name = live.name`, sql.Named("table", name))
	if err != nil {
		return fmt.Errorf("query common columns: %w", err)
	}
	var columns []string
	for rows.Next() {
		var column string
		if err = rows.Scan(&column); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, column)
	}
	if err = errors.Join(rows.Err(), rows.Close()); err != nil {
		return fmt.Errorf("common columns: %w", err)
	}

	common := strings.Join(columns, ", ")
	statements := []string{
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", temp, common, common, name),
		fmt.Sprintf("DROP TABLE %s", name),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", temp, name),
	}
	if len(columns) == 0 {
		statements = statements[1:]
	}
	for _, stmt := range statements {
		if err = db.exec(ctx, tx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// migrateObjects synchronises indexes or triggers. Changed objects are dropped and created again.
func (db *Database) migrateObjects(ctx context.Context, tx *sql.Tx, typ string) error {
	d, err := diffSchema(ctx, tx, typ, strings.TrimSpace)
	if err != nil {
		return err
	}
	drop := func(name string) string { return fmt.Sprintf("DROP %s IF EXISTS %s", strings.ToUpper(typ), name) }

	for _, name := range d.removed {
		if err = db.exec(ctx, tx, drop(name)); err != nil {
			return err
		}
	}
	for _, name := range d.changed {
		var createSQL string
		if err = tx.QueryRowContext(ctx, `SELECT sql FROM schemaTarget.sqlite_schema WHERE type = ? AND name = ?`,
			typ, name).Scan(&createSQL); err != nil {
			return fmt.Errorf("query target sql: %w", err)
		}
		if err = db.exec(ctx, tx, drop(name)); err != nil {
			return err
		}
		d.added = append(d.added, createSQL)
	}
	for _, createSQL := range d.added {
		if err = db.exec(ctx, tx, createSQL); err != nil {
			return err
		}
	}
	return nil
}

func (db *Database) exec(ctx context.Context, tx *sql.Tx, query string) error {
	db.logger.LogAttrs(ctx, slog.LevelInfo, "migration step", slog.String("query", query))
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("exec %q: %w", query, err)
	}
	return nil
}
