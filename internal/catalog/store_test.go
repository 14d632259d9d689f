package catalog

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true, // Avoids issues with prepared statements in mock
	})
	db, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return NewGormStore(db), mock
}

func TestNextPendingArtist_NewestFirst(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "name", "created_at"}).
		AddRow("artist-uuid-1", "Queen", time.Now())
	mock.ExpectQuery(`SELECT \* FROM "artists" WHERE mbz_searched_at IS NULL ORDER BY created_at DESC,"artists"."id" LIMIT \$1`).
		WithArgs(1).WillReturnRows(rows)

	artist, err := store.NextPendingArtist()
	require.NoError(t, err)
	require.NotNil(t, artist)
	assert.Equal(t, "Queen", artist.Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNextPendingArtist_NonePending(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "artists" WHERE mbz_searched_at IS NULL ORDER BY created_at DESC,"artists"."id" LIMIT \$1`).
		WithArgs(1).WillReturnError(gorm.ErrRecordNotFound)

	artist, err := store.NextPendingArtist()
	require.NoError(t, err)
	assert.Nil(t, artist)
}

func TestNextPendingAlbum_NonePending(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "albums" WHERE external_info_updated_at IS NULL ORDER BY created_at DESC,"albums"."id" LIMIT \$1`).
		WithArgs(1).WillReturnError(gorm.ErrRecordNotFound)

	album, err := store.NextPendingAlbum()
	require.NoError(t, err)
	assert.Nil(t, album)
}

func TestCountPending(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "artists" WHERE mbz_searched_at IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "albums" WHERE external_info_updated_at IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	artists, err := store.CountPendingArtists()
	require.NoError(t, err)
	assert.Equal(t, int64(7), artists)

	albums, err := store.CountPendingAlbums()
	require.NoError(t, err)
	assert.Equal(t, int64(12), albums)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateArtist(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "artists" SET .+ WHERE id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.UpdateArtist("artist-uuid-1", map[string]interface{}{
		"biography":        "A British rock band.",
		"biography_source": "lastfm",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetArtistEnrichment_All(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "artists" SET .+ WHERE mbz_searched_at IS NOT NULL`).
		WillReturnResult(sqlmock.NewResult(0, 42))
	mock.ExpectCommit()

	affected, err := store.ResetArtistEnrichment(false)
	require.NoError(t, err)
	assert.Equal(t, int64(42), affected)
}

func TestResetArtistEnrichment_OnlyWithoutExternalData(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "artists" SET .+ WHERE mbz_searched_at IS NOT NULL AND external_info_updated_at IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	affected, err := store.ResetArtistEnrichment(true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
}

func TestResetAlbumEnrichment_OnlyWithoutExternalData(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "albums" SET .+ WHERE external_info_updated_at IS NOT NULL`).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	affected, err := store.ResetAlbumEnrichment(true)
	require.NoError(t, err)
	assert.Equal(t, int64(5), affected)
}
