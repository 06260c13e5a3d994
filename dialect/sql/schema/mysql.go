package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/tidegate/sqlgen/dialect/sql"
)

// MySQL is the statement generator for the MySQL dialect. Every method
// is a pure function from dialect-neutral descriptors to statement text:
// no I/O, no shared state, deterministic for identical inputs. All
// validation failures are raised before any text is produced.
//
// The dialect set of this module is closed; MySQL is selected once at
// construction of the orchestrator (see NewMigrate) rather than through
// a runtime registry.
type MySQL struct{}

// referencesRe splits a column definition into the inline part and the
// trailing REFERENCES clause.
var referencesRe = regexp.MustCompile(`^(.+?) (REFERENCES.*)$`)

// CreateTable builds a CREATE TABLE statement from pre-compiled column
// fragments. Columns carrying PRIMARY KEY are collected into a single
// trailing clause, and REFERENCES clauses are cut out of the inline
// definition and re-emitted as trailing FOREIGN KEY clauses in column
// order; MySQL rejects an inline REFERENCES combined with PRIMARY KEY.
func (g MySQL) CreateTable(t Table, columns []Fragment, opts *TableOptions) (string, error) {
	if err := validateColumns(columns); err != nil {
		return "", err
	}
	if opts == nil {
		opts = &TableOptions{}
	}
	var (
		defs []string
		pks  []string
		fks  []string
	)
	for _, c := range columns {
		def := c.Definition
		if strings.Contains(def, "PRIMARY KEY") {
			pks = append(pks, g.quote(c.Name))
			def = strings.TrimSpace(strings.ReplaceAll(strings.Replace(def, "PRIMARY KEY", "", 1), "  ", " "))
		}
		// A column can be both a primary key and a foreign key, so the
		// REFERENCES clause is checked independently.
		if m := referencesRe.FindStringSubmatch(def); m != nil {
			defs = append(defs, g.quote(c.Name)+" "+strings.TrimSpace(m[1]))
			fks = append(fks, fmt.Sprintf("FOREIGN KEY (%s) %s", g.quote(c.Name), m[2]))
		} else {
			defs = append(defs, g.quote(c.Name)+" "+def)
		}
	}
	for _, uk := range opts.UniqueKeys {
		name := uk.Name
		if name == "" {
			name = "uniq_" + t.Name + "_" + strings.Join(uk.Columns, "_")
		}
		defs = append(defs, fmt.Sprintf("UNIQUE %s (%s)", g.quote(name), g.quoteList(uk.Columns)))
	}
	if len(pks) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	defs = append(defs, fks...)
	b := &strings.Builder{}
	fmt.Fprintf(b, "CREATE TABLE IF NOT EXISTS %s (%s)", g.quoteTable(t), strings.Join(defs, ", "))
	engine := opts.Engine
	if engine == "" {
		engine = "InnoDB"
	}
	fmt.Fprintf(b, " ENGINE=%s", engine)
	if opts.AutoIncrement > 0 {
		fmt.Fprintf(b, " AUTO_INCREMENT=%d", opts.AutoIncrement)
	}
	if opts.Charset != "" {
		fmt.Fprintf(b, " DEFAULT CHARSET=%s", opts.Charset)
	}
	if opts.Collate != "" {
		fmt.Fprintf(b, " COLLATE %s", opts.Collate)
	}
	if opts.RowFormat != "" {
		fmt.Fprintf(b, " ROW_FORMAT=%s", opts.RowFormat)
	}
	return b.String(), nil
}

// DropTable builds a DROP TABLE IF EXISTS statement.
func (g MySQL) DropTable(t Table) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", g.quoteTable(t))
}

// RenameTable builds a RENAME TABLE statement.
func (g MySQL) RenameTable(from, to Table) string {
	return fmt.Sprintf("RENAME TABLE %s TO %s", g.quoteTable(from), g.quoteTable(to))
}

// AddColumn builds an ALTER TABLE ... ADD statement for a single column.
// When the column carries a reference, the generated definition includes
// an ADD CONSTRAINT clause with the derived foreign-key name.
func (g MySQL) AddColumn(t Table, name string, c Column) (string, error) {
	def, err := g.columnFragment(c, &fkHint{table: t, column: name})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD %s %s", g.quoteTable(t), g.quote(name), def), nil
}

// ChangeColumn builds one ALTER TABLE statement from the given column
// fragments. Fragments containing a REFERENCES clause become ADD
// CONSTRAINT ... FOREIGN KEY clauses named <table>_<column>_foreign_idx;
// the rest become CHANGE clauses. CHANGE clauses come first.
func (g MySQL) ChangeColumn(t Table, columns []Fragment) (string, error) {
	if len(columns) == 0 {
		return "", parameterErrorf("changeColumn requires at least one column")
	}
	var changes, constraints []string
	for _, c := range columns {
		if i := strings.Index(c.Definition, "REFERENCES"); i >= 0 {
			name := g.quote(fmt.Sprintf("%s_%s_foreign_idx", t.Name, c.Name))
			constraints = append(constraints, fmt.Sprintf("ADD CONSTRAINT %s FOREIGN KEY (%s) %s", name, g.quote(c.Name), c.Definition[i:]))
		} else {
			changes = append(changes, fmt.Sprintf("CHANGE %s %s %s", g.quote(c.Name), g.quote(c.Name), c.Definition))
		}
	}
	return fmt.Sprintf("ALTER TABLE %s %s", g.quoteTable(t), strings.Join(append(changes, constraints...), ", ")), nil
}

// RenameColumn builds one ALTER TABLE statement with a CHANGE clause per
// rename, mapping the prior name to the new name and its definition.
func (g MySQL) RenameColumn(t Table, renames []Rename) (string, error) {
	if len(renames) == 0 {
		return "", parameterErrorf("renameColumn requires at least one column")
	}
	changes := make([]string, 0, len(renames))
	for _, r := range renames {
		changes = append(changes, fmt.Sprintf("CHANGE %s %s %s", g.quote(r.From), g.quote(r.To), r.Definition))
	}
	return fmt.Sprintf("ALTER TABLE %s %s", g.quoteTable(t), strings.Join(changes, ", ")), nil
}

// RemoveColumn builds an ALTER TABLE ... DROP statement.
func (g MySQL) RemoveColumn(t Table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP %s", g.quoteTable(t), g.quote(column))
}

// TruncateTable builds a TRUNCATE statement.
func (g MySQL) TruncateTable(t Table) string {
	return fmt.Sprintf("TRUNCATE %s", g.quoteTable(t))
}

// ShowTables lists the tables of the current database, optionally
// filtered by a LIKE pattern.
func (g MySQL) ShowTables(like string) string {
	if like != "" {
		return fmt.Sprintf("SHOW TABLES LIKE %s", g.escape(like))
	}
	return "SHOW TABLES"
}

// DescribeTable builds the column introspection statement. A schema
// qualifier is joined with the table's schema delimiter when one is set.
func (g MySQL) DescribeTable(t Table) string {
	return fmt.Sprintf("SHOW FULL COLUMNS FROM %s", g.describeTarget(t))
}

// ShowIndexes builds the index introspection statement.
func (g MySQL) ShowIndexes(t Table) string {
	s := fmt.Sprintf("SHOW INDEX FROM %s", g.quote(t.Name))
	if t.Schema != "" {
		s += fmt.Sprintf(" FROM %s", g.quote(t.Schema))
	}
	return s
}

// AddIndex builds a CREATE INDEX statement. An empty index name is
// derived from the underscored join of the table and column names.
func (g MySQL) AddIndex(t Table, idx Index) (string, error) {
	if len(idx.Columns) == 0 {
		return "", parameterErrorf("addIndex requires at least one column")
	}
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, g.quote(g.indexName(t, idx.Name, idx.Columns)), g.quoteTable(t), g.quoteList(idx.Columns)), nil
}

// RemoveIndex builds a DROP INDEX statement. Either an explicit index
// name or a column list to derive it from must be given.
func (g MySQL) RemoveIndex(t Table, name string, columns []string) (string, error) {
	if name == "" && len(columns) == 0 {
		return "", parameterErrorf("removeIndex requires an index name or a column list")
	}
	return fmt.Sprintf("DROP INDEX %s ON %s", g.quote(g.indexName(t, name, columns)), g.quoteTable(t)), nil
}

// indexName returns name, or derives it from the table and columns.
func (g MySQL) indexName(t Table, name string, columns []string) string {
	if name != "" {
		return name
	}
	return inflect.Underscore(strings.Join(append([]string{t.Name}, columns...), "_"))
}

// Delete builds a DELETE statement with an optional WHERE condition and
// LIMIT suffix. A limit of zero means no limit.
func (g MySQL) Delete(t Table, where Cond, limit int) (string, error) {
	b := &strings.Builder{}
	fmt.Fprintf(b, "DELETE FROM %s", g.quoteTable(t))
	if where != nil {
		cond, err := where.Cond()
		if err != nil {
			return "", err
		}
		fmt.Fprintf(b, " WHERE %s", cond)
	}
	if limit > 0 {
		fmt.Fprintf(b, " LIMIT %d", limit)
	}
	return b.String(), nil
}

// Assign pairs a column with its inserted value.
type Assign struct {
	Column string
	Value  any
}

// InsertOptions carries the optional ON DUPLICATE KEY UPDATE fragment.
type InsertOptions struct {
	OnDuplicate string
}

// Insert builds an INSERT statement with escaped literal values.
func (g MySQL) Insert(t Table, columns []Assign, opts *InsertOptions) (string, error) {
	if len(columns) == 0 {
		return "", parameterErrorf("insert requires at least one column")
	}
	names := make([]string, 0, len(columns))
	values := make([]string, 0, len(columns))
	for _, c := range columns {
		names = append(names, g.quote(c.Column))
		values = append(values, g.escape(c.Value))
	}
	s := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", g.quoteTable(t), strings.Join(names, ", "), strings.Join(values, ", "))
	if opts != nil && opts.OnDuplicate != "" {
		s += " ON DUPLICATE KEY UPDATE " + opts.OnDuplicate
	}
	return s, nil
}

// Upsert builds an INSERT ... ON DUPLICATE KEY UPDATE statement by
// delegating to Insert with a pre-populated col=VALUES(col) fragment
// built from the update column list.
func (g MySQL) Upsert(t Table, columns []Assign, updateColumns []string) (string, error) {
	if len(updateColumns) == 0 {
		return "", parameterErrorf("upsert requires at least one update column")
	}
	pairs := make([]string, 0, len(updateColumns))
	for _, c := range updateColumns {
		pairs = append(pairs, fmt.Sprintf("%s=VALUES(%s)", g.quote(c), g.quote(c)))
	}
	return g.Insert(t, columns, &InsertOptions{OnDuplicate: strings.Join(pairs, ", ")})
}

// ShowConstraints builds the constraint-metadata introspection query,
// filtered by table name and optionally by constraint name and schema.
func (g MySQL) ShowConstraints(t Table, constraint string) string {
	b := &strings.Builder{}
	b.WriteString("SELECT CONSTRAINT_CATALOG AS constraintCatalog, ")
	b.WriteString("CONSTRAINT_NAME AS constraintName, ")
	b.WriteString("CONSTRAINT_SCHEMA AS constraintSchema, ")
	b.WriteString("CONSTRAINT_TYPE AS constraintType, ")
	b.WriteString("TABLE_NAME AS tableName, ")
	b.WriteString("TABLE_SCHEMA AS tableSchema ")
	b.WriteString("FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS ")
	fmt.Fprintf(b, "WHERE table_name = %s", g.escape(t.Name))
	if constraint != "" {
		fmt.Fprintf(b, " AND constraint_name = %s", g.escape(constraint))
	}
	if t.Schema != "" {
		fmt.Fprintf(b, " AND table_schema = %s", g.escape(t.Schema))
	}
	return b.String()
}

// foreignKeySelect is the shared column list of the foreign-key
// introspection queries.
const foreignKeySelect = "SELECT CONSTRAINT_NAME AS constraint_name, " +
	"TABLE_NAME AS table_name, " +
	"COLUMN_NAME AS column_name, " +
	"REFERENCED_TABLE_NAME AS referenced_table_name, " +
	"REFERENCED_COLUMN_NAME AS referenced_column_name " +
	"FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE "

// ForeignKeys builds the introspection query for all foreign keys of a
// table, excluding the implicit primary-key constraint and requiring a
// non-null referenced table.
func (g MySQL) ForeignKeys(t Table) string {
	b := &strings.Builder{}
	b.WriteString(foreignKeySelect)
	fmt.Fprintf(b, "WHERE TABLE_NAME = %s", g.escape(t.Name))
	if t.Schema != "" {
		fmt.Fprintf(b, " AND TABLE_SCHEMA = %s", g.escape(t.Schema))
	}
	b.WriteString(" AND CONSTRAINT_NAME != 'PRIMARY' AND REFERENCED_TABLE_NAME IS NOT NULL")
	return b.String()
}

// ForeignKey builds the introspection query for the foreign keys that
// involve a single column, matching rows where the column is either the
// referencing or the referenced side.
func (g MySQL) ForeignKey(t Table, column string) string {
	b := &strings.Builder{}
	b.WriteString(foreignKeySelect)
	fmt.Fprintf(b, "WHERE (TABLE_NAME = %s", g.escape(t.Name))
	if t.Schema != "" {
		fmt.Fprintf(b, " AND TABLE_SCHEMA = %s", g.escape(t.Schema))
	}
	fmt.Fprintf(b, " AND COLUMN_NAME = %s", g.escape(column))
	b.WriteString(" AND CONSTRAINT_NAME != 'PRIMARY' AND REFERENCED_TABLE_NAME IS NOT NULL)")
	fmt.Fprintf(b, " OR (REFERENCED_TABLE_NAME = %s", g.escape(t.Name))
	if t.Schema != "" {
		fmt.Fprintf(b, " AND REFERENCED_TABLE_SCHEMA = %s", g.escape(t.Schema))
	}
	fmt.Fprintf(b, " AND REFERENCED_COLUMN_NAME = %s)", g.escape(column))
	return b.String()
}

// DropForeignKey builds an ALTER TABLE ... DROP FOREIGN KEY statement.
func (g MySQL) DropForeignKey(t Table, constraint string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", g.quoteTable(t), g.quote(constraint))
}

// CreateFunction builds a CREATE FUNCTION statement with the routine
// body indented inside a BEGIN ... END block. Name, return type,
// language and body are all required.
func (g MySQL) CreateFunction(r Routine) (string, error) {
	if err := validateRoutine(r); err != nil {
		return "", err
	}
	params, err := g.ExpandFunctionParams(r.Params)
	if err != nil {
		return "", err
	}
	b := &strings.Builder{}
	fmt.Fprintf(b, "CREATE FUNCTION %s(%s)\n", g.quote(r.Name), params)
	fmt.Fprintf(b, "RETURNS %s\n", r.Returns)
	fmt.Fprintf(b, "LANGUAGE %s\n", strings.ToUpper(r.Language))
	if len(r.Options) > 0 {
		fmt.Fprintf(b, "%s\n", strings.Join(r.Options, " "))
	}
	b.WriteString("BEGIN\n")
	for _, line := range strings.Split(r.Body, "\n") {
		b.WriteString("\t" + line + "\n")
	}
	b.WriteString("END")
	return b.String(), nil
}

// DropFunction builds a DROP FUNCTION IF EXISTS statement.
func (g MySQL) DropFunction(name string) (string, error) {
	if name == "" {
		return "", parameterErrorf("functionName required")
	}
	return fmt.Sprintf("DROP FUNCTION IF EXISTS %s", g.quote(name)), nil
}

// RenameFunction always fails: MySQL has no native routine-rename
// syntax, and renaming through the system catalogs would require
// editing the grant tables, which this generator refuses to attempt.
func (g MySQL) RenameFunction(from, to string) (string, error) {
	return "", &UnsupportedOperationError{
		Op:     "renameFunction",
		Reason: "renaming a routine requires modifying the mysql grant tables",
	}
}

// ExpandFunctionParams compiles the routine parameter list. Every
// parameter requires a type; the direction is included only when it is
// not the implicit IN default, and the name only when present.
func (g MySQL) ExpandFunctionParams(params []Param) (string, error) {
	list := make([]string, 0, len(params))
	for _, p := range params {
		if p.Type == "" {
			return "", parameterErrorf("function parameter %q requires a type", p.Name)
		}
		var parts []string
		if d := strings.ToUpper(p.Direction); d != "" && d != "IN" {
			parts = append(parts, d)
		}
		if p.Name != "" {
			parts = append(parts, p.Name)
		}
		parts = append(parts, p.Type)
		list = append(list, strings.Join(parts, " "))
	}
	return strings.Join(list, ", "), nil
}

// fkHint marks a fragment compiled for an add-column statement, where
// the reference needs an explicit ADD CONSTRAINT clause.
type fkHint struct {
	table  Table
	column string
}

// noDefaultTypes are the native type families that cannot carry a
// DEFAULT clause in MySQL.
var noDefaultTypes = []string{
	"TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BLOB",
	"TINYTEXT", "MEDIUMTEXT", "LONGTEXT", "TEXT",
	"GEOMETRYCOLLECTION", "GEOMETRY", "POINT", "LINESTRING", "POLYGON",
	"MULTIPOINT", "MULTILINESTRING", "MULTIPOLYGON", "JSON",
}

// ColumnFragment compiles a column definition into its SQL fragment,
// composing the clauses in fixed order: type, NOT NULL, auto_increment,
// DEFAULT, UNIQUE, PRIMARY KEY, COMMENT, FIRST/AFTER, REFERENCES.
func (g MySQL) ColumnFragment(c Column) (string, error) {
	return g.columnFragment(c, nil)
}

func (g MySQL) columnFragment(c Column, hint *fkHint) (string, error) {
	if c.Type == "" {
		return "", parameterErrorf("column requires a native type")
	}
	b := &strings.Builder{}
	b.WriteString(c.Type)
	if !c.Null {
		b.WriteString(" NOT NULL")
	}
	if c.AutoIncrement {
		b.WriteString(" auto_increment")
	}
	if c.Default != nil && g.supportsDefault(c.Type) {
		fmt.Fprintf(b, " DEFAULT %s", g.escape(c.Default))
	}
	if c.Unique {
		b.WriteString(" UNIQUE")
	}
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if c.Comment != "" {
		fmt.Fprintf(b, " COMMENT %s", g.escape(c.Comment))
	}
	if c.First {
		b.WriteString(" FIRST")
	} else if c.After != "" {
		fmt.Fprintf(b, " AFTER %s", g.quote(c.After))
	}
	if r := c.References; r != nil {
		if hint != nil {
			name := fmt.Sprintf("%s_%s_foreign_idx", hint.table.Name, hint.column)
			fmt.Fprintf(b, ", ADD CONSTRAINT %s FOREIGN KEY (%s)", g.quote(name), g.quote(hint.column))
		}
		key := r.Key
		if key == "" {
			key = "id"
		}
		fmt.Fprintf(b, " REFERENCES %s (%s)", g.quoteTable(r.Table), g.quote(key))
		if r.OnDelete != "" {
			fmt.Fprintf(b, " ON DELETE %s", strings.ToUpper(string(r.OnDelete)))
		}
		if r.OnUpdate != "" {
			fmt.Fprintf(b, " ON UPDATE %s", strings.ToUpper(string(r.OnUpdate)))
		}
	}
	return b.String(), nil
}

// supportsDefault reports if the native type can carry a DEFAULT clause.
func (g MySQL) supportsDefault(typ string) bool {
	up := strings.ToUpper(typ)
	for _, p := range noDefaultTypes {
		if strings.HasPrefix(up, p) {
			return false
		}
	}
	return true
}

// quote quotes an identifier with backticks, doubling embedded ones.
func (g MySQL) quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// quoteList quotes and comma-joins a list of identifiers.
func (g MySQL) quoteList(idents []string) string {
	quoted := make([]string, 0, len(idents))
	for _, id := range idents {
		quoted = append(quoted, g.quote(id))
	}
	return strings.Join(quoted, ", ")
}

// quoteTable quotes a table reference with its optional schema.
func (g MySQL) quoteTable(t Table) string {
	if t.Schema != "" {
		return g.quote(t.Schema) + "." + g.quote(t.Name)
	}
	return g.quote(t.Name)
}

// describeTarget renders the table reference for SHOW FULL COLUMNS.
// A custom schema delimiter joins schema and table into one identifier.
func (g MySQL) describeTarget(t Table) string {
	switch {
	case t.Schema == "":
		return g.quote(t.Name)
	case t.SchemaDelimiter != "":
		return g.quote(t.Schema + t.SchemaDelimiter + t.Name)
	default:
		return g.quoteTable(t)
	}
}

// escape renders a Go value as an escaped SQL literal.
func (g MySQL) escape(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + sql.EscapeString(v) + "'"
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}
