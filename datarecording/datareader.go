package datarecording

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
)

// ErrUnmappedTable is returned when a table is queried before MapTable.
var ErrUnmappedTable = errors.New("table not mapped")

// QueryParams narrows and pages a query.
type QueryParams struct {
	// Where is the condition without the WHERE keyword, for example
	// "Frame > ? AND Module = ?".
	Where string
	Args  []any

	// OrderBy is the ordering without the ORDER BY keywords.
	OrderBy string

	// Limit caps the rows returned. 0 means no limit.
	Limit  int
	Offset int
}

// DataReader reads tables written by a DataRecorder.
type DataReader interface {
	// Tables lists the tables present in the recording.
	Tables(ctx context.Context) ([]string, error)

	// MapTable binds a table to the entry type it was created with.
	MapTable(tableName string, sampleEntry any)

	// Query returns pointers to entries of the mapped type and the number of
	// rows matching params without limit and offset.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type sqliteReader struct {
	*sql.DB

	entries map[string]reflect.Type
}

// NewReader opens an existing recording read-only.
func NewReader(dbFilename string) (DataReader, error) {
	if _, err := os.Stat(dbFilename); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:"+dbFilename+"?mode=ro")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open recording %s: %w", dbFilename, err)
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB reads from an already opened database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		DB:      db,
		entries: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) Tables(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		tables = append(tables, name)
	}

	return tables, rows.Err()
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	t := reflect.TypeOf(sampleEntry)
	if t.Kind() != reflect.Struct {
		panic("entry must be a struct")
	}

	r.entries[tableName] = t
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	entryType, ok := r.entries[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnmappedTable, tableName)
	}

	where := ""
	if params.Where != "" {
		where = " WHERE " + params.Where
	}

	var total int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+tableName+where, params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := "SELECT " + columnList(entryType) + " FROM " + tableName + where
	if params.OrderBy != "" {
		query += " ORDER BY " + params.OrderBy
	}

	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", params.Limit, params.Offset)
	}

	rows, err := r.DB.QueryContext(ctx, query, params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		entry := reflect.New(entryType)
		if err := rows.Scan(fieldPointers(entry.Elem())...); err != nil {
			return nil, 0, err
		}

		results = append(results, entry.Interface())
	}

	return results, total, rows.Err()
}

// columnList names the columns in field order, matching how CreateTable lays
// them out.
func columnList(t reflect.Type) string {
	names := make([]string, t.NumField())
	for i := range names {
		names[i] = t.Field(i).Name
	}

	return strings.Join(names, ", ")
}

func fieldPointers(v reflect.Value) []any {
	ptrs := make([]any, v.NumField())
	for i := range ptrs {
		ptrs[i] = v.Field(i).Addr().Interface()
	}

	return ptrs
}

func (r *sqliteReader) Close() error {
	return r.DB.Close()
}
