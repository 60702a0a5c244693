package db

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCollector(t *testing.T) {
	// pgxpool connects lazily, so an unreachable server is fine here.
	pool, err := pgxpool.New(context.Background(), "postgres://narrator:x@127.0.0.1:1/narrator?pool_max_conns=3")
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	p := &Pool{Pool: pool}
	c := p.Collector()
	assert.Equal(t, 8, testutil.CollectAndCount(c))

	expected := `
# HELP narrator_db_pool_max_conns Configured maximum pool size.
# TYPE narrator_db_pool_max_conns gauge
narrator_db_pool_max_conns 3
# HELP narrator_db_pool_total_conns Connections currently open.
# TYPE narrator_db_pool_total_conns gauge
narrator_db_pool_total_conns 0
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"narrator_db_pool_max_conns", "narrator_db_pool_total_conns"))
	assert.Equal(t, int32(3), p.Stats().MaxConns())
}
