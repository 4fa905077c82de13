package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestQueryName(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT 1", "SELECT"},
		{"\n\t  insert into photos(user_id) values ($1)", "INSERT"},
		{"", "unknown"},
		{"   ", "unknown"},
		{"abcdefghijklmnopqrstuvwxyz", "ABCDEFGHIJKLMNOPQRST"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, queryName(tt.sql))
	}
}

func TestQueryTracer_CountsErrors(t *testing.T) {
	tracer := &QueryTracer{}
	before := testutil.ToFloat64(DBErrorsTotal.WithLabelValues("DELETE"))

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "DELETE FROM nothing"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("boom")})

	assert.Equal(t, before+1, testutil.ToFloat64(DBErrorsTotal.WithLabelValues("DELETE")))
}

func TestQueryTracer_IgnoresMissingStart(t *testing.T) {
	tracer := &QueryTracer{}
	before := testutil.ToFloat64(DBErrorsTotal.WithLabelValues("UPDATE"))

	tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{Err: errors.New("boom")})

	assert.Equal(t, before, testutil.ToFloat64(DBErrorsTotal.WithLabelValues("UPDATE")))
}
