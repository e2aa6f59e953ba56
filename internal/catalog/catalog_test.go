package catalog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/domain"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/errors"
)

func setupTestCatalog(t *testing.T, rows ...[]any) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := Create(path)
	require.NoError(t, err)
	defer db.Close()

	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO titles (id, name, partition_key, genres, type, main, extras, completionist)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, r...)
		require.NoError(t, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := setupTestCatalog(t,
		[]any{2, "Portal", "p01", "Puzzle, Platformer", "Game", 180, 240, nil},
		[]any{1, "Portal: Extras", "p00", "", "DLC", 0, nil, 60},
	)

	c, err := Open(path, nil)
	require.NoError(t, err)
	defer c.Close()

	titles, err := c.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, titles, 2)

	dlc := titles[0]
	assert.EqualValues(t, 1, dlc.ID)
	assert.Equal(t, domain.TitleTypeDLC, dlc.Type)
	assert.Nil(t, dlc.Genres)
	assert.Equal(t, domain.Missing(), dlc.Main)
	assert.Equal(t, domain.Missing(), dlc.Extras)
	assert.Equal(t, domain.Observed(60), dlc.Completionist)

	game := titles[1]
	assert.Equal(t, "Portal", game.Name)
	assert.Equal(t, "p01", game.PartitionKey)
	assert.Equal(t, []string{"Puzzle", "Platformer"}, game.Genres)
	assert.True(t, game.IsGame())
	assert.Equal(t, domain.Observed(180), game.Main)
	assert.Equal(t, domain.Observed(240), game.Extras)
	assert.Equal(t, domain.Missing(), game.Completionist)
}

func TestLoad_InvalidRow(t *testing.T) {
	path := setupTestCatalog(t, []any{1, "", "p00", "", "game", 10, 20, 30})

	c, err := Open(path, nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Load(context.Background())

	require.ErrorIs(t, err, errors.ErrValidation)
	assert.Contains(t, err.Error(), "title 1")
}

func TestOpen_MissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE other (id INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path, nil)

	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLoad_ContextCancelled(t *testing.T) {
	c, err := Open(setupTestCatalog(t), nil)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Load(ctx)
	assert.Error(t, err)
}

func TestSplitGenres(t *testing.T) {
	assert.Nil(t, splitGenres("  "))
	assert.Equal(t, []string{"Action", "RPG"}, splitGenres("Action,,RPG ,"))
}
