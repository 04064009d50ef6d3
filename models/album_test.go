package models

import (
	"gallery/db"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlbumCreate(t *testing.T) {
	setupTestDB(t)
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")

	album, err := AlbumCreate(alice.ID, "  Holidays ", " summer ")
	require.NoError(t, err)
	assert.Equal(t, "Holidays", album.Name)
	assert.Equal(t, "summer", album.Description)
	assert.Nil(t, album.CoverImageID)

	_, err = AlbumCreate(alice.ID, "Holidays", "")
	assert.ErrorIs(t, err, ErrConflict)

	// names are unique per owner only
	_, err = AlbumCreate(bob.ID, "Holidays", "")
	assert.NoError(t, err)

	tests := []struct {
		name        string
		albumName   string
		description string
	}{
		{"empty name", "   ", ""},
		{"long name", strings.Repeat("n", 51), ""},
		{"long description", "ok", strings.Repeat("d", 201)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AlbumCreate(alice.ID, tt.albumName, tt.description)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAlbumUpdate(t *testing.T) {
	setupTestDB(t)
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	album := createTestAlbum(t, alice.ID, "A")
	createTestAlbum(t, alice.ID, "Taken")
	other := createTestAlbum(t, alice.ID, "Other")
	i1 := insertImage(t, alice.ID, album.ID, 1000)
	i2 := insertImage(t, alice.ID, album.ID, 2000)
	outsider := insertImage(t, alice.ID, other.ID, 3000)

	updated, err := AlbumUpdate(alice.ID, album.ID, AlbumUpdateInput{Name: strPtr(" Renamed "), CoverImageID: idPtr(i2.ID)})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, &i2.ID, updated.CoverImageID)

	// keeping the own name is not a conflict
	_, err = AlbumUpdate(alice.ID, album.ID, AlbumUpdateInput{Name: strPtr("Renamed")})
	assert.NoError(t, err)

	_, err = AlbumUpdate(alice.ID, album.ID, AlbumUpdateInput{Name: strPtr("Taken")})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = AlbumUpdate(alice.ID, album.ID, AlbumUpdateInput{CoverImageID: idPtr(outsider.ID)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = AlbumUpdate(bob.ID, album.ID, AlbumUpdateInput{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err = AlbumUpdate(alice.ID, album.ID, AlbumUpdateInput{CoverImageID: idPtr(0)})
	require.NoError(t, err)
	assert.Nil(t, updated.CoverImageID)

	updated, err = AlbumUpdate(alice.ID, album.ID, AlbumUpdateInput{})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name, "unchanged album for %d", i1.ID)
}

func TestAlbumSetCover(t *testing.T) {
	setupTestDB(t)
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	album := createTestAlbum(t, alice.ID, "A")
	i1 := insertImage(t, alice.ID, album.ID, 1000)
	loose := insertImage(t, alice.ID, 0, 2000)
	bobsImage := insertImage(t, bob.ID, 0, 3000)

	updated, err := AlbumSetCover(alice.ID, album.ID, i1.ID)
	require.NoError(t, err)
	assert.Equal(t, &i1.ID, updated.CoverImageID)

	for _, imageID := range []uint64{loose.ID, bobsImage.ID, 9999} {
		_, err = AlbumSetCover(alice.ID, album.ID, imageID)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, &i1.ID, reloadAlbum(t, album.ID).CoverImageID)

	updated, err = AlbumSetCover(alice.ID, album.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, updated.CoverImageID)

	_, err = AlbumSetCover(bob.ID, album.ID, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Deleting an album keeps its images, without an album
func TestAlbumDelete(t *testing.T) {
	setupTestDB(t)
	alice := createTestUser(t, "alice")
	bob := createTestUser(t, "bob")
	album := createTestAlbum(t, alice.ID, "A")
	i1, err := ImageCreate(alice.ID, newImageInput(album.ID, "i1"))
	require.NoError(t, err)
	i2, err := ImageCreate(alice.ID, newImageInput(album.ID, "i2"))
	require.NoError(t, err)

	assert.ErrorIs(t, AlbumDelete(bob.ID, album.ID), ErrNotFound)
	require.NoError(t, AlbumDelete(alice.ID, album.ID))

	_, err = AlbumGet(alice.ID, album.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	for _, id := range []uint64{i1.ID, i2.ID} {
		image, err := ImageGet(alice.ID, id)
		require.NoError(t, err)
		assert.Nil(t, image.AlbumID)
	}
	var dangling int64
	require.NoError(t, db.Instance.Model(&Image{}).Where("album_id = ?", album.ID).Count(&dangling).Error)
	assert.Zero(t, dangling)
}
