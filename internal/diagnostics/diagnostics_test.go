package diagnostics

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photobot/store/internal/storage/postgresql/postgresqltest"
	"github.com/photobot/store/internal/storage/repository"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: "NULL"},
		{name: "string", in: "pending", want: "pending"},
		{name: "int", in: int64(42), want: "42"},
		{name: "bool", in: true, want: "true"},
		{name: "tab and newline are escaped", in: "a\tb\nc\r", want: `a\tb\nc\r`},
		{name: "escaped in non-string values", in: []string{"x\ty"}, want: `[x\ty]`},
		{
			name: "time is printed in UTC",
			in:   time.Date(2025, 1, 2, 15, 4, 5, 0, time.FixedZone("MSK", 3*3600)),
			want: "2025-01-02T12:04:05Z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.in))
		})
	}
}

func TestIntegration_Dump(t *testing.T) {
	db := postgresqltest.New(t)
	repo := repository.New(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertUser(ctx, 42, nil, "Alice"))
	_, err := repo.CreatePhoto(ctx, 42, "file-1", nil)
	require.NoError(t, err)

	var before int
	require.NoError(t, db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM user_actions`).Scan(&before))

	var buf bytes.Buffer
	require.NoError(t, Dump(ctx, db, &buf))
	out := buf.String()

	assert.Contains(t, out, "=== USERS ===")
	assert.Contains(t, out, "=== PHOTOS ===")
	assert.Contains(t, out, "=== USER_ACTIONS ===")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "file-1")
	assert.Contains(t, out, "photo_uploaded")
	assert.Contains(t, out, "subscription_end")

	var after int
	require.NoError(t, db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM user_actions`).Scan(&after))
	assert.Equal(t, before, after)
}

func TestIntegration_DumpKeepsRowsOnOneLine(t *testing.T) {
	db := postgresqltest.New(t)
	repo := repository.New(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertUser(ctx, 1, nil, "line one\nline\ttwo"))
	_, err := repo.CreatePhoto(ctx, 1, "f", strPtr("my\tphoto.jpg"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Dump(ctx, db, &buf))
	out := buf.String()

	assert.Contains(t, out, `line one\nline\ttwo`)
	assert.Contains(t, out, `my\tphoto.jpg`)
	assert.NotContains(t, out, "\t")
	// на таблицу: название, шапка, одна запись, счётчик; плюс два разделителя
	assert.Equal(t, 3*4+2, strings.Count(out, "\n"))
}

func TestIntegration_DumpEmpty(t *testing.T) {
	db := postgresqltest.New(t)

	var buf bytes.Buffer
	require.NoError(t, Dump(context.Background(), db, &buf))
	assert.Contains(t, buf.String(), "(0 rows)")
}

func strPtr(s string) *string { return &s }
