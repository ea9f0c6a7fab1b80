package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mkpublisher/showcase/internal/remote"
)

const schema = `
create table profiles (
  id text primary key,
  name text,
  email text,
  created_at timestamptz not null default now()
);
create table projects (
  id text primary key default gen_random_uuid()::text,
  title text not null,
  link text not null,
  image text,
  rating numeric not null default 0,
  category text,
  created_at timestamptz not null default now(),
  user_id text not null
);
`

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "showcase",
				"POSTGRES_USER":     "showcase",
				"POSTGRES_PASSWORD": "test_password",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://showcase:test_password@%s:%s/showcase?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	_, err = pool.Exec(ctx, schema)
	require.NoError(t, err)
	return pool
}

func TestTables_Integration(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	tables := NewTables(pool)
	projects, profiles := tables.Projects(), tables.Profiles()

	t.Run("insert and list newest first", func(t *testing.T) {
		first, err := projects.Insert(ctx, "", remote.NewProject{Title: "Aries App", Link: "https://aries.example", UserID: "u1"})
		require.NoError(t, err)
		assert.NotEmpty(t, first.ID)
		time.Sleep(10 * time.Millisecond)
		_, err = projects.Insert(ctx, "", remote.NewProject{Title: "Consilium", Link: "https://consilium.example", UserID: "u1", Rating: 4.5})
		require.NoError(t, err)

		list, err := projects.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Consilium", list[0].Title)
		assert.Equal(t, 4.5, list[0].Rating)
	})

	t.Run("profile round trip", func(t *testing.T) {
		require.NoError(t, profiles.Insert(ctx, "", remote.Profile{ID: "u1", Name: "Ada", Email: "ada@x.io"}))
		err := profiles.Insert(ctx, "", remote.Profile{ID: "u1", Name: "Ada"})
		assert.True(t, errors.Is(err, remote.ErrConflict))

		name, email := "A", "a@x.com"
		require.NoError(t, profiles.Update(ctx, "", "u1", remote.ProfileUpdate{Name: &name, Email: &email}))
		p, err := profiles.Get(ctx, "", "u1")
		require.NoError(t, err)
		assert.Equal(t, "A", p.Name)
		assert.Equal(t, "a@x.com", p.Email)
	})

	t.Run("delete account rows", func(t *testing.T) {
		n, err := projects.DeleteByUser(ctx, "", "u1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		require.NoError(t, profiles.Delete(ctx, "", "u1"))

		_, err = profiles.Get(ctx, "", "u1")
		assert.True(t, errors.Is(err, remote.ErrNotFound))
	})
}
