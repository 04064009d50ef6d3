package models

import (
	"gallery/db"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, db.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")+"?_busy_timeout=5000&_journal_mode=WAL")))
	require.NoError(t, Migrate())
}

func createTestUser(t *testing.T, username string) User {
	t.Helper()
	u, err := UserCreate(username, "secret123")
	require.NoError(t, err)
	return u
}

func createTestAlbum(t *testing.T, ownerID uint64, name string) Album {
	t.Helper()
	album, err := AlbumCreate(ownerID, name, "")
	require.NoError(t, err)
	return album
}

// insertImage writes an image row directly, bypassing the cover repair
func insertImage(t *testing.T, ownerID, albumID uint64, createdAt int64) Image {
	t.Helper()
	image := Image{
		UserID:    ownerID,
		URL:       "/uploads/image.jpg",
		Title:     "image",
		CreatedAt: createdAt,
	}
	if albumID != 0 {
		image.AlbumID = &albumID
	}
	require.NoError(t, db.Instance.Create(&image).Error)
	return image
}

func reloadAlbum(t *testing.T, albumID uint64) Album {
	t.Helper()
	album := Album{}
	require.NoError(t, db.Instance.First(&album, albumID).Error)
	return album
}

func setCoverDirectly(t *testing.T, albumID uint64, imageID uint64) {
	t.Helper()
	require.NoError(t, db.Instance.Model(&Album{}).Where("id = ?", albumID).Update("cover_image_id", imageID).Error)
}

func idPtr(id uint64) *uint64 {
	return &id
}

func strPtr(s string) *string {
	return &s
}

// assertCoverIsMember checks that the album cover is empty or points to one of its images
func assertCoverIsMember(t *testing.T, albumID uint64) {
	t.Helper()
	album := reloadAlbum(t, albumID)
	if album.CoverImageID == nil {
		return
	}
	member, err := gormCoverStore{tx: db.Instance}.IsMember(*album.CoverImageID, albumID)
	require.NoError(t, err)
	require.True(t, member, "album %d cover %d is not a member", albumID, *album.CoverImageID)
}
