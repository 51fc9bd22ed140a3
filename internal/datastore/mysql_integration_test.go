package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/tphakala/dogbreed-go/internal/conf"
)

// TestMySQLStore_Integration runs the store against a disposable MySQL
// container. It needs Docker and is skipped with -short.
func TestMySQLStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping MySQL container test in short mode")
	}

	ctx := t.Context()
	ctr, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("dogbreed"),
		mysql.WithUsername("dogbreed"),
		mysql.WithPassword("dogbreed"),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("MySQL container unavailable: %v", err)
	}

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	store := &MySQLStore{Settings: &conf.Settings{Cache: conf.CacheSettings{
		Backend: conf.CacheBackendMySQL,
		MySQL: conf.MySQLSettings{
			Host:     host,
			Port:     port.Port(),
			Username: "dogbreed",
			Password: "dogbreed",
			Database: "dogbreed",
		},
	}}}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Ping(ctx))

	row, err := store.Lookup(ctx, "1234")
	require.NoError(t, err)
	assert.Nil(t, row)

	require.NoError(t, store.Insert(ctx, &ImageLog{ImageHash: "1234", ImageURL: "u", IsDog: true, BreedLabel: intPtr(17)}))
	require.NoError(t, store.Insert(ctx, &ImageLog{ImageHash: "1234", ImageURL: "u", IsDog: true, BreedLabel: intPtr(17)}))

	row, err = store.Lookup(ctx, "1234")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 17, *row.BreedLabel)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
