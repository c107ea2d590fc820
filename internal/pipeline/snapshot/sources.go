package snapshot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"query-router/internal/common/database"
)

// FileSource reads each key from <Dir>/<key>.txt.
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (f *FileSource) Name() string {
	return "file:" + f.Dir
}

// Path returns the file backing key.
func (f *FileSource) Path(key string) string {
	return filepath.Join(f.Dir, key+".txt")
}

func (f *FileSource) ReadLines(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, f.Path(key))
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path(key), err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path(key), err)
	}
	return lines, nil
}

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresSource reads keys from a table of (config_key, line_no, value) rows.
type PostgresSource struct {
	client *database.PostgresClient
	table  string
	query  string
}

func NewPostgresSource(client *database.PostgresClient, table string) (*PostgresSource, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid config table name %q", table)
	}
	return &PostgresSource{
		client: client,
		table:  table,
		query:  fmt.Sprintf(`SELECT value FROM %s WHERE config_key = $1 ORDER BY line_no`, table),
	}, nil
}

func (p *PostgresSource) Name() string {
	return "postgres:" + p.table
}

func (p *PostgresSource) ReadLines(ctx context.Context, key string) ([]string, error) {
	rows, err := p.client.Query(ctx, p.query, key)
	if err != nil {
		return nil, fmt.Errorf("query %s for %s: %w", p.table, key, err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", p.table, err)
		}
		lines = append(lines, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", p.table, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrKeyNotFound, key, p.table)
	}
	return lines, nil
}

// MapSource serves keys from memory.
type MapSource map[string][]string

func (m MapSource) Name() string {
	return "memory"
}

func (m MapSource) ReadLines(_ context.Context, key string) ([]string, error) {
	lines, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return append([]string(nil), lines...), nil
}
