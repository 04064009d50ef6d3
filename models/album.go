package models

import (
	"errors"
	"gallery/db"
	"strings"

	"gorm.io/gorm"
)

const (
	albumNameMaxLength        = 50
	albumDescriptionMaxLength = 200
)

// Album groups images of a single user. CoverImageID is a plain column without
// a database constraint: it is kept pointing at a current member image by the
// cover repair functions (see cover.go), called by every membership change.
type Album struct {
	ID           uint64 `gorm:"primaryKey"`
	UserID       uint64 `gorm:"not null;index:uniq_user_album_name,unique,priority:1;index:user_album_created,priority:1"`
	Name         string `gorm:"type:varchar(50);not null;index:uniq_user_album_name,unique,priority:2"`
	Description  string `gorm:"type:varchar(200);not null;default:''"`
	CoverImageID *uint64
	CreatedAt    int64 `gorm:"autoCreateTime:milli;index:user_album_created,priority:2"`
	UpdatedAt    int64 `gorm:"autoUpdateTime:milli"`
}

type AlbumUpdateInput struct {
	Name        *string
	Description *string
	// CoverImageID leaves the cover alone when nil and clears it when pointing to 0
	CoverImageID *uint64
}

func validateAlbumName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationError("album name is required")
	}
	if len([]rune(name)) > albumNameMaxLength {
		return "", validationError("album name must be %d characters or fewer", albumNameMaxLength)
	}
	return name, nil
}

func validateAlbumDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if len([]rune(description)) > albumDescriptionMaxLength {
		return "", validationError("album description must be %d characters or fewer", albumDescriptionMaxLength)
	}
	return description, nil
}

func albumNameTaken(ownerID uint64, name string, exceptID uint64) (bool, error) {
	var count int64
	err := db.Instance.Model(&Album{}).
		Where("user_id = ? AND name = ? AND id <> ?", ownerID, name, exceptID).
		Count(&count).Error
	return count > 0, err
}

// AlbumGet loads an album owned by ownerID
func AlbumGet(ownerID, albumID uint64) (album Album, err error) {
	result := db.Instance.Where("id = ? AND user_id = ?", albumID, ownerID).Limit(1).Find(&album)
	if result.Error != nil {
		return album, result.Error
	}
	if result.RowsAffected != 1 {
		return album, notFoundError("album not found")
	}
	return
}

// ValidateAlbumRef checks that an album referenced by an image operation exists and is owned by ownerID
func ValidateAlbumRef(ownerID, albumID uint64) error {
	if _, err := AlbumGet(ownerID, albumID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return validationError("album not found")
		}
		return err
	}
	return nil
}

func AlbumCreate(ownerID uint64, name, description string) (album Album, err error) {
	if album.Name, err = validateAlbumName(name); err != nil {
		return
	}
	if album.Description, err = validateAlbumDescription(description); err != nil {
		return
	}
	taken, err := albumNameTaken(ownerID, album.Name, 0)
	if err != nil {
		return
	}
	if taken {
		return album, conflictError("album name already exists")
	}
	album.UserID = ownerID
	if err = db.Instance.Create(&album).Error; isDuplicateKey(err) {
		err = conflictError("album name already exists")
	}
	return
}

// validateCover checks that the image can be the cover of the album:
// it must exist, be owned by the same user and be a member of the album
func validateCover(ownerID uint64, album *Album, imageID uint64) error {
	var count int64
	err := db.Instance.Model(&Image{}).
		Where("id = ? AND user_id = ? AND album_id = ?", imageID, ownerID, album.ID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return notFoundError("image not found in this album")
	}
	return nil
}

func AlbumUpdate(ownerID, albumID uint64, in AlbumUpdateInput) (Album, error) {
	album, err := AlbumGet(ownerID, albumID)
	if err != nil {
		return album, err
	}
	updates := map[string]any{}
	if in.Name != nil {
		name, err := validateAlbumName(*in.Name)
		if err != nil {
			return album, err
		}
		taken, err := albumNameTaken(ownerID, name, album.ID)
		if err != nil {
			return album, err
		}
		if taken {
			return album, conflictError("album name already exists")
		}
		updates["name"] = name
	}
	if in.Description != nil {
		description, err := validateAlbumDescription(*in.Description)
		if err != nil {
			return album, err
		}
		updates["description"] = description
	}
	if in.CoverImageID != nil {
		if *in.CoverImageID == 0 {
			updates["cover_image_id"] = nil
		} else {
			if err = validateCover(ownerID, &album, *in.CoverImageID); err != nil {
				if errors.Is(err, ErrNotFound) {
					return album, validationError("cover image not found or not in this album")
				}
				return album, err
			}
			updates["cover_image_id"] = *in.CoverImageID
		}
	}
	if len(updates) == 0 {
		return album, nil
	}
	if err = db.Instance.Model(&album).Updates(updates).Error; err != nil {
		if isDuplicateKey(err) {
			return album, conflictError("album name already exists")
		}
		return album, err
	}
	return AlbumGet(ownerID, albumID)
}

// AlbumSetCover explicitly assigns (or clears, with imageID 0) the album cover.
// It is a validated assignment, not a repair, so the repair functions are not involved.
func AlbumSetCover(ownerID, albumID, imageID uint64) (Album, error) {
	album, err := AlbumGet(ownerID, albumID)
	if err != nil {
		return album, err
	}
	var cover any
	if imageID != 0 {
		if err = validateCover(ownerID, &album, imageID); err != nil {
			return album, err
		}
		cover = imageID
	}
	if err = db.Instance.Model(&album).Update("cover_image_id", cover).Error; err != nil {
		return album, err
	}
	return AlbumGet(ownerID, albumID)
}

// AlbumDelete detaches all member images (they stay, without an album) and removes the album.
// The album is gone afterwards, so there is no cover left to repair.
func AlbumDelete(ownerID, albumID uint64) error {
	album, err := AlbumGet(ownerID, albumID)
	if err != nil {
		return err
	}
	return db.Instance.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Image{}).Where("album_id = ?", album.ID).Update("album_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&album).Error
	})
}
