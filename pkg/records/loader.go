package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrInvalidTable is returned when a table name is not a plain identifier.
var ErrInvalidTable = errors.New("records: invalid table name")

// Loader reads records from a database.
type Loader struct {
	db *sql.DB
}

// NewLoader returns a Loader reading from db.
func NewLoader(db *sql.DB) *Loader {
	return &Loader{db: db}
}

// Table loads every row of table as a record of the given model. An empty
// model is derived from the table name with ModelLabel.
func (l *Loader) Table(ctx context.Context, model, table string) ([]Record, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	if model == "" {
		model = ModelLabel(table)
	}
	// The table name cannot be bound as a parameter; it is validated above.
	return l.Query(ctx, model, "SELECT * FROM "+table)
}

// Query runs query and converts each row to a record of the given model.
// The "id" or "pk" column becomes the primary key; if neither exists the
// first column is used.
func (l *Loader) Query(ctx context.Context, model, query string, args ...any) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", model, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("query for %s returned no columns", model)
	}
	pkIndex := 0
	for i, col := range columns {
		if name := strings.ToLower(col); name == "id" || name == "pk" {
			pkIndex = i
			break
		}
	}

	var out []Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := Record{Model: model, Fields: make(map[string]any, len(columns)-1)}
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if i == pkIndex {
				rec.PK = v
				continue
			}
			rec.Fields[col] = v
		}
		out = append(out, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
