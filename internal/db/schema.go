package db

import (
	"context"
	"encoding/json"
	"fmt"
)

// Schema is the structured description of the reflected database.
type Schema struct {
	Tables []Table `json:"tables"`
}

// Table groups a table's columns with its foreign-key constraints.
type Table struct {
	Name        string          `json:"name"`
	Columns     []Column        `json:"columns"`
	ForeignKeys []ForeignKeyRef `json:"foreign_keys"`
}

// Column describes one column as the catalog reports it. IsForeignKey is
// always false here: foreign-key facts are reported only through the table's
// foreign_keys list and are never cross-linked back into the column record.
type Column struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	IsPrimaryKey bool   `json:"is_primary_key"`
	IsForeignKey bool   `json:"is_foreign_key"`
}

// ForeignKeyRef names the local column participating in a foreign-key
// constraint. Composite constraints are truncated to their first column.
type ForeignKeyRef struct {
	Column string `json:"column"`
}

// SchemaString reflects the configured database — table names, per-table
// column metadata and foreign-key constraints — into a JSON document with
// stable two-space indentation. It requires an already-established session:
// unlike the query paths there is no implicit reconnect here. Every call
// re-queries the live catalog; nothing is cached. Catalog failures
// propagate as errors rather than degrading to an empty document.
func (h *Handler) SchemaString(ctx context.Context) (string, error) {
	if h.engine == nil {
		return "", fmt.Errorf("%w: not connected to database", ErrConnection)
	}

	names, err := h.tableNames(ctx)
	if err != nil {
		return "", fmt.Errorf("listing tables: %w", err)
	}

	schema := Schema{Tables: make([]Table, 0, len(names))}
	for _, name := range names {
		columns, err := h.tableColumns(ctx, name)
		if err != nil {
			return "", fmt.Errorf("describing table %s: %w", name, err)
		}
		fks, err := h.tableForeignKeys(ctx, name)
		if err != nil {
			return "", fmt.Errorf("reading foreign keys of %s: %w", name, err)
		}
		schema.Tables = append(schema.Tables, Table{
			Name:        name,
			Columns:     columns,
			ForeignKeys: fks,
		})
	}

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h *Handler) tableNames(ctx context.Context) ([]string, error) {
	const q = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = ?
  AND table_type = 'BASE TABLE'
ORDER BY table_name`
	rows, err := h.engine.QueryContext(ctx, q, h.Database)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (h *Handler) tableColumns(ctx context.Context, table string) ([]Column, error) {
	const q = `
SELECT column_name, column_type, column_key
FROM information_schema.columns
WHERE table_schema = ?
  AND table_name = ?
ORDER BY ordinal_position`
	rows, err := h.engine.QueryContext(ctx, q, h.Database, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make([]Column, 0)
	for rows.Next() {
		var name, colType, key string
		if err := rows.Scan(&name, &colType, &key); err != nil {
			return nil, err
		}
		columns = append(columns, Column{
			Name:         name,
			Type:         colType,
			IsPrimaryKey: key == "PRI",
		})
	}
	return columns, rows.Err()
}

// fkColumn is one (constraint, column) row from key_column_usage, in
// ordinal order within its constraint.
type fkColumn struct {
	Constraint string
	Column     string
}

func (h *Handler) tableForeignKeys(ctx context.Context, table string) ([]ForeignKeyRef, error) {
	const q = `
SELECT constraint_name, column_name
FROM information_schema.key_column_usage
WHERE table_schema = ?
  AND table_name = ?
  AND referenced_table_name IS NOT NULL
ORDER BY constraint_name, ordinal_position`
	rows, err := h.engine.QueryContext(ctx, q, h.Database, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var constrained []fkColumn
	for rows.Next() {
		var fk fkColumn
		if err := rows.Scan(&fk.Constraint, &fk.Column); err != nil {
			return nil, err
		}
		constrained = append(constrained, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return foreignKeyRefs(constrained), nil
}

// foreignKeyRefs emits one ForeignKeyRef per constraint, keeping only the
// first constrained column of each.
func foreignKeyRefs(constrained []fkColumn) []ForeignKeyRef {
	refs := make([]ForeignKeyRef, 0)
	seen := make(map[string]bool)
	for _, fk := range constrained {
		if seen[fk.Constraint] {
			continue
		}
		seen[fk.Constraint] = true
		refs = append(refs, ForeignKeyRef{Column: fk.Column})
	}
	return refs
}
