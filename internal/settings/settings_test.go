package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, found, err := s.ReadString(ctx, "favorite_stops")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.WriteString(ctx, "favorite_stops", "[]"))
	v, found, err := s.ReadString(ctx, "favorite_stops")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[]", v)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, ":memory:", nil)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, found, err := s.ReadString(ctx, "favorite_stops")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.WriteString(ctx, "favorite_stops", `[{"title":"4, 6"}]`))
	require.NoError(t, s.WriteString(ctx, "favorite_stops", `[]`))

	v, found, err := s.ReadString(ctx, "favorite_stops")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[]`, v, "second write replaces the first")

	var rows int
	require.NoError(t, s.db.Get(&rows, `SELECT COUNT(*) FROM settings`))
	assert.Equal(t, 1, rows)
	assert.NotNil(t, s.DB())
}

func TestSQLiteStore_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/settings.db"

	s, err := OpenSQLite(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.WriteString(ctx, "language", "hu"))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	v, found, err := reopened.ReadString(ctx, "language")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hu", v)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "", nil)
	assert.Error(t, err)
}

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewSQLiteStore(sqlx.NewDb(db, "sqlmock"), nil)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s, mock
}

func TestSQLiteStore_Mocked(t *testing.T) {
	ctx := context.Background()

	t.Run("read hit", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT value FROM settings WHERE key = \?`).
			WithArgs("favorite_stops").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("[]"))

		v, found, err := s.ReadString(ctx, "favorite_stops")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "[]", v)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("read miss is not an error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT value FROM settings`).
			WithArgs("favorite_stops").
			WillReturnRows(sqlmock.NewRows([]string{"value"}))

		_, found, err := s.ReadString(ctx, "favorite_stops")
		require.NoError(t, err)
		assert.False(t, found)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("read error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT value FROM settings`).
			WithArgs("favorite_stops").
			WillReturnError(errors.New("database is locked"))

		_, found, err := s.ReadString(ctx, "favorite_stops")
		assert.False(t, found)
		assert.ErrorContains(t, err, "database is locked")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("write upserts with a timestamp", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO settings .* ON CONFLICT\(key\) DO UPDATE`).
			WithArgs("favorite_stops", "[]", int64(1700000000)).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, s.WriteString(ctx, "favorite_stops", "[]"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("write error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO settings`).
			WithArgs("favorite_stops", "[]", sqlmock.AnyArg()).
			WillReturnError(errors.New("disk I/O error"))

		err := s.WriteString(ctx, "favorite_stops", "[]")
		assert.ErrorContains(t, err, "failed to write setting")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("migrate error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS settings`).
			WillReturnError(errors.New("read-only database"))

		assert.ErrorContains(t, s.Migrate(ctx), "failed to create settings table")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, "127.0.0.1:1", "", 0, nil)
	assert.ErrorContains(t, err, "redis connection failed")

	s := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}), nil)
	defer func() { _ = s.Close() }()

	_, found, err := s.ReadString(ctx, "favorite_stops")
	assert.False(t, found)
	assert.Error(t, err)
	assert.Error(t, s.WriteString(ctx, "favorite_stops", "[]"))
	assert.Equal(t, "futar:settings:favorite_stops", s.key("favorite_stops"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, closer, err := Open(ctx, Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
	assert.NoError(t, closer.Close())

	store, closer, err = Open(ctx, Config{Backend: BackendSQLite, Path: ":memory:"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	assert.NoError(t, closer.Close())

	_, _, err = Open(ctx, Config{Backend: "etcd"}, nil)
	assert.ErrorContains(t, err, `unknown settings backend "etcd"`)
}
