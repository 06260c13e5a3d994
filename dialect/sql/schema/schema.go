// Package schema contains the MySQL statement generator and the
// multi-statement schema operations built on top of it.
package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Table is a reference to a table, optionally qualified by a schema.
// Its identity is the (schema, name) pair. When SchemaDelimiter is set,
// introspection statements join schema and name into a single identifier
// using it instead of the regular dotted qualification.
type Table struct {
	Name            string
	Schema          string
	SchemaDelimiter string
}

// String returns the dotted identity of the table.
func (t Table) String() string {
	if t.Schema != "" {
		return t.Schema + "." + t.Name
	}
	return t.Name
}

// ReferenceAction is a foreign-key ON DELETE/ON UPDATE action.
type ReferenceAction string

// Reference actions.
const (
	Cascade    ReferenceAction = "CASCADE"
	SetNull    ReferenceAction = "SET NULL"
	Restrict   ReferenceAction = "RESTRICT"
	SetDefault ReferenceAction = "SET DEFAULT"
	NoAction   ReferenceAction = "NO ACTION"
)

// Reference describes the foreign-key side of a column definition.
// Key defaults to "id" when empty.
type Reference struct {
	Table    Table
	Key      string
	OnDelete ReferenceAction
	OnUpdate ReferenceAction
}

// Column describes a single column. Type holds the native SQL type text
// produced by the caller's type compiler (e.g. "VARCHAR(255)").
type Column struct {
	Type          string
	Null          bool
	AutoIncrement bool
	// Default is the column default. A nil Default means no DEFAULT
	// clause; defaults are dropped silently for column types that
	// cannot carry one (BLOB/TEXT/GEOMETRY/JSON families).
	Default    any
	Unique     bool
	PrimaryKey bool
	Comment    string
	// First and After position the column in ALTER TABLE statements.
	First bool
	After string
	// References, when set, is emitted as a trailing foreign-key
	// clause and never inline next to a PRIMARY KEY.
	References *Reference
}

// Fragment is a named, pre-compiled column definition, the unit consumed
// by CreateTable and ChangeColumn. The definition text is typically the
// output of ColumnFragment.
type Fragment struct {
	Name       string
	Definition string
}

// Rename maps a column to its new name together with its full definition.
type Rename struct {
	From       string
	To         string
	Definition string
}

// Index describes a (possibly unique) index. When Name is empty it is
// derived from the table and column names.
type Index struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
}

// Constraint is a single row of the constraint introspection query.
// Instances are produced only by introspection and are never cached;
// every orchestrated operation re-derives them.
type Constraint struct {
	Catalog     string
	Name        string
	Schema      string
	Type        string
	Table       string
	TableSchema string
}

// Param is a single routine parameter. Direction defaults to IN and is
// omitted from the generated parameter list when it is the default.
type Param struct {
	Name      string
	Type      string
	Direction string
}

// Routine describes a stored function.
type Routine struct {
	Name     string
	Params   []Param
	Returns  string
	Language string
	Body     string
	// Options holds dialect-specific routine characteristics, e.g.
	// "DETERMINISTIC" or "READS SQL DATA". A nil slice means none.
	Options []string
}

// TableOptions configures the CREATE TABLE suffix modifiers and the
// table-level unique keys. The zero value applies the documented
// defaults: engine InnoDB, everything else absent.
type TableOptions struct {
	Engine        string  `yaml:"engine"`
	Charset       string  `yaml:"charset"`
	Collate       string  `yaml:"collate"`
	RowFormat     string  `yaml:"row_format"`
	AutoIncrement int64   `yaml:"auto_increment"`
	UniqueKeys    []Index `yaml:"unique_keys"`
}

// ParseTableOptions reads TableOptions from YAML. It allows projects to
// keep their DDL defaults (engine, charset, collation) in configuration
// instead of spreading them across call sites.
func ParseTableOptions(data []byte) (*TableOptions, error) {
	opts := &TableOptions{}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("sqlgen: parse table options: %w", err)
	}
	return opts, nil
}

// Cond is a compiled WHERE condition. The condition compiler itself is
// external to this package; Raw adapts already-compiled text.
type Cond interface {
	Cond() (string, error)
}

// Raw is a pre-compiled condition used as-is.
type Raw string

// Cond implements the Cond interface.
func (r Raw) Cond() (string, error) { return string(r), nil }
