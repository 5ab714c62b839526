// Package schema embeds the SQL for forecast_runs (PostgreSQL) and
// horizon_points (ClickHouse) and splits it into executable statements.
package schema

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed postgres/*.sql clickhouse/*.sql
var files embed.FS

// ErrSemicolonInString is returned for scripts the statement splitter cannot handle.
var ErrSemicolonInString = errors.New("semicolon inside string literal")

// Migration is one schema file, ready to execute in order.
type Migration struct {
	Name       string
	Statements []string
}

// Postgres returns the PostgreSQL migrations. pgx runs a whole script per Exec,
// so each file is a single statement.
func Postgres() ([]Migration, error) {
	return load("postgres", func(sql string) ([]string, error) {
		if strings.TrimSpace(sql) == "" {
			return nil, nil
		}
		return []string{sql}, nil
	})
}

// Clickhouse returns the ClickHouse migrations split into single statements,
// since the native driver rejects multi-statement Exec.
func Clickhouse() ([]Migration, error) {
	return load("clickhouse", func(sql string) ([]string, error) {
		if err := validateNoSemicolonInStrings(sql); err != nil {
			return nil, err
		}
		return splitStatements(sql), nil
	})
}

func load(dir string, split func(string) ([]string, error)) ([]Migration, error) {
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s schema: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(files, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		stmts, err := split(string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		migrations = append(migrations, Migration{Name: name, Statements: stmts})
	}
	return migrations, nil
}

// splitStatements drops blank and -- comment lines, then splits on semicolons.
// String literals and block comments are not understood.
func splitStatements(input string) []string {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects a semicolon inside a single-quoted literal.
// Doubled quotes ('') are escapes.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("%w at offset %d", ErrSemicolonInString, i)
			}
		}
	}
	return nil
}
