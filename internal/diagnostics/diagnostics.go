// Package diagnostics выводит содержимое таблиц хранилища для отладки.
// Только чтение.
package diagnostics

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/photobot/store/internal/storage/postgresql"
)

var tables = []struct {
	name  string
	query string
}{
	{"users", `SELECT * FROM users ORDER BY user_id`},
	{"photos", `SELECT * FROM photos ORDER BY id`},
	{"user_actions", `SELECT * FROM user_actions ORDER BY id`},
}

// Dump печатает все строки users, photos и user_actions выровненными колонками.
func Dump(ctx context.Context, db *postgresql.Storage, w io.Writer) error {
	const op = "diagnostics.Dump"

	err := db.WithConn(ctx, func(ctx context.Context, q postgresql.Querier) error {
		for i, t := range tables {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if err := dumpTable(ctx, q, w, t.name, t.query); err != nil {
				return fmt.Errorf("table %s: %w", t.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func dumpTable(ctx context.Context, q postgresql.Querier, w io.Writer, name, query string) error {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	if _, err := fmt.Fprintf(w, "=== %s ===\n", strings.ToUpper(name)); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	n := 0
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return err
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
		n++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "(%d rows)\n", n)
	return err
}

// cellEscaper не даёт табуляциям и переводам строк внутри значений ломать колонки.
var cellEscaper = strings.NewReplacer("\t", `\t`, "\n", `\n`, "\r", `\r`)

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case string:
		return cellEscaper.Replace(val)
	default:
		return cellEscaper.Replace(fmt.Sprint(val))
	}
}
