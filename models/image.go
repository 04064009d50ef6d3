package models

import (
	"gallery/db"
	"gallery/metrics"
	"gallery/storage"
	"log"
	"strings"

	"gorm.io/gorm"
)

const (
	imageTitleMaxLength       = 100
	imageDescriptionMaxLength = 500
	tagNameMaxLength          = 20
)

type Image struct {
	ID           uint64  `gorm:"primaryKey"`
	UserID       uint64  `gorm:"not null;index:user_image_created,priority:1"`
	AlbumID      *uint64 `gorm:"index:album_image_created,priority:1"` // can be null
	BucketID     uint64
	URL          string `gorm:"type:varchar(300);not null"`
	ThumbURL     string `gorm:"type:varchar(300)"`
	OriginalName string `gorm:"type:varchar(300)"`
	MimeType     string `gorm:"type:varchar(50)"`
	Size         int64
	Width        uint16
	Height       uint16
	Title        string     `gorm:"type:varchar(100);not null"`
	Description  string     `gorm:"type:varchar(500);not null;default:''"`
	Tags         []ImageTag `gorm:"foreignKey:ImageID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt    int64      `gorm:"autoCreateTime:milli;index:user_image_created,priority:2;index:album_image_created,priority:2"`
	UpdatedAt    int64      `gorm:"autoUpdateTime:milli"`
}

type ImageTag struct {
	ImageID uint64 `gorm:"primaryKey"`
	Name    string `gorm:"type:varchar(20);primaryKey"`
}

// TagNames returns the plain tag names of a loaded image
func (i *Image) TagNames() []string {
	names := make([]string, 0, len(i.Tags))
	for _, tag := range i.Tags {
		names = append(names, tag.Name)
	}
	return names
}

// ImageInput carries an already stored upload and its metadata
type ImageInput struct {
	AlbumID      uint64 // 0 means no album
	BucketID     uint64
	URL          string
	ThumbURL     string
	OriginalName string
	MimeType     string
	Size         int64
	Width        uint16
	Height       uint16
	Title        string
	Description  string
	Tags         []string
}

// ImageUpdateInput fields left nil are not changed. AlbumID pointing to 0 removes the image from its album.
type ImageUpdateInput struct {
	Title       *string
	Description *string
	Tags        *[]string
	AlbumID     *uint64
}

func validateImageTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", validationError("title is required")
	}
	if len([]rune(title)) > imageTitleMaxLength {
		return "", validationError("title must be %d characters or fewer", imageTitleMaxLength)
	}
	return title, nil
}

func validateImageDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if len([]rune(description)) > imageDescriptionMaxLength {
		return "", validationError("description must be %d characters or fewer", imageDescriptionMaxLength)
	}
	return description, nil
}

// NormalizeTags trims the names, drops empty ones and duplicates, keeping the first occurrence order
func NormalizeTags(tags []string) ([]string, error) {
	result := []string{}
	seen := map[string]bool{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		if len([]rune(tag)) > tagNameMaxLength {
			return nil, validationError("tag %q must be %d characters or fewer", tag, tagNameMaxLength)
		}
		seen[tag] = true
		result = append(result, tag)
	}
	return result, nil
}

func imageTags(imageID uint64, names []string) []ImageTag {
	tags := make([]ImageTag, 0, len(names))
	for _, name := range names {
		tags = append(tags, ImageTag{ImageID: imageID, Name: name})
	}
	return tags
}

func albumValue(albumID uint64) any {
	if albumID == 0 {
		return nil
	}
	return albumID
}

func albumIDOf(image *Image) uint64 {
	if image.AlbumID == nil {
		return 0
	}
	return *image.AlbumID
}

// ImageCreate records a new image. When it is put into an album, that album
// gets it as cover unless it already has a valid one.
func ImageCreate(ownerID uint64, in ImageInput) (image Image, err error) {
	if image.Title, err = validateImageTitle(in.Title); err != nil {
		return
	}
	if image.Description, err = validateImageDescription(in.Description); err != nil {
		return
	}
	tags, err := NormalizeTags(in.Tags)
	if err != nil {
		return
	}
	if in.AlbumID != 0 {
		if err = ValidateAlbumRef(ownerID, in.AlbumID); err != nil {
			return
		}
		albumID := in.AlbumID
		image.AlbumID = &albumID
	}
	image.UserID = ownerID
	image.BucketID = in.BucketID
	image.URL = in.URL
	image.ThumbURL = in.ThumbURL
	image.OriginalName = in.OriginalName
	image.MimeType = in.MimeType
	image.Size = in.Size
	image.Width = in.Width
	image.Height = in.Height
	image.Tags = imageTags(0, tags)
	if err = db.Instance.Create(&image).Error; err != nil {
		return
	}
	log.Printf("Image: %d, created by user %d, album: %d", image.ID, ownerID, in.AlbumID)
	repairCoverPresence(in.AlbumID, image.ID)
	return
}

// ImageGet loads an image owned by ownerID, with its tags
func ImageGet(ownerID, imageID uint64) (image Image, err error) {
	result := db.Instance.Preload("Tags", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("name")
	}).Where("id = ? AND user_id = ?", imageID, ownerID).Limit(1).Find(&image)
	if result.Error != nil {
		return image, result.Error
	}
	if result.RowsAffected != 1 {
		return image, notFoundError("image not found")
	}
	return
}

// ImageUpdate changes the metadata and/or album of an image. The image row is written
// first; the album it left and the album it joined are repaired afterwards.
func ImageUpdate(ownerID, imageID uint64, in ImageUpdateInput) (Image, error) {
	image, err := ImageGet(ownerID, imageID)
	if err != nil {
		return image, err
	}
	previousAlbumID := albumIDOf(&image)
	nextAlbumID := previousAlbumID

	updates := map[string]any{}
	if in.Title != nil {
		title, err := validateImageTitle(*in.Title)
		if err != nil {
			return image, err
		}
		updates["title"] = title
	}
	if in.Description != nil {
		description, err := validateImageDescription(*in.Description)
		if err != nil {
			return image, err
		}
		updates["description"] = description
	}
	var tags []string
	if in.Tags != nil {
		if tags, err = NormalizeTags(*in.Tags); err != nil {
			return image, err
		}
	}
	if in.AlbumID != nil {
		nextAlbumID = *in.AlbumID
		if nextAlbumID != 0 {
			if err = ValidateAlbumRef(ownerID, nextAlbumID); err != nil {
				return image, err
			}
		}
		updates["album_id"] = albumValue(nextAlbumID)
	}

	err = db.Instance.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&image).Updates(updates).Error; err != nil {
				return err
			}
		}
		if in.Tags == nil {
			return nil
		}
		if err := tx.Where("image_id = ?", image.ID).Delete(&ImageTag{}).Error; err != nil {
			return err
		}
		if len(tags) == 0 {
			return nil
		}
		return tx.Create(imageTags(image.ID, tags)).Error
	})
	if err != nil {
		return image, err
	}

	if previousAlbumID != 0 && previousAlbumID != nextAlbumID {
		repairCoverIntegrity(previousAlbumID)
	}
	if nextAlbumID != 0 {
		repairCoverPresence(nextAlbumID, image.ID)
	}
	return ImageGet(ownerID, imageID)
}

func uniqueIDs(ids []uint64) []uint64 {
	result := []uint64{}
	seen := map[uint64]bool{}
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

// ImagesMove puts the owner's images into targetAlbumID (0 takes them out of any album)
// with a single update, then repairs every album they left and the target album.
// Returns the number of images moved; ids not owned by ownerID are ignored.
func ImagesMove(ownerID uint64, ids []uint64, targetAlbumID uint64) (int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, validationError("image ids are required")
	}
	var images []Image
	err := db.Instance.Select("id", "album_id").
		Where("id IN ? AND user_id = ?", ids, ownerID).
		Find(&images).Error
	if err != nil {
		return 0, err
	}
	if len(images) == 0 {
		return 0, notFoundError("no images found")
	}
	if targetAlbumID != 0 {
		if _, err = AlbumGet(ownerID, targetAlbumID); err != nil {
			return 0, err
		}
	}

	found := map[uint64]bool{}
	foundIDs := []uint64{}
	previousAlbums := []uint64{}
	seenAlbum := map[uint64]bool{}
	for _, image := range images {
		found[image.ID] = true
		foundIDs = append(foundIDs, image.ID)
		if albumID := albumIDOf(&image); albumID != 0 && !seenAlbum[albumID] {
			seenAlbum[albumID] = true
			previousAlbums = append(previousAlbums, albumID)
		}
	}
	err = db.Instance.Model(&Image{}).
		Where("id IN ? AND user_id = ?", foundIDs, ownerID).
		Update("album_id", albumValue(targetAlbumID)).Error
	if err != nil {
		return 0, err
	}
	log.Printf("Images: %v, moved by user %d to album %d", foundIDs, ownerID, targetAlbumID)

	for _, albumID := range previousAlbums {
		if albumID != targetAlbumID {
			repairCoverIntegrity(albumID)
		}
	}
	if targetAlbumID != 0 {
		// first requested image that was actually moved
		var candidateID uint64
		for _, id := range ids {
			if found[id] {
				candidateID = id
				break
			}
		}
		repairCoverPresence(targetAlbumID, candidateID)
	}
	return int64(len(images)), nil
}

// ImageDelete removes the image with its tags and stored files, then repairs
// the cover of the album it belonged to
func ImageDelete(ownerID, imageID uint64) error {
	image, err := ImageGet(ownerID, imageID)
	if err != nil {
		return err
	}
	err = db.Instance.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("image_id = ?", image.ID).Delete(&ImageTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Image{}, image.ID).Error
	})
	if err != nil {
		return err
	}
	log.Printf("Image: %d, deleted by user %d", image.ID, ownerID)
	removeStoredFiles(&image)
	repairCoverIntegrity(albumIDOf(&image))
	return nil
}

// removeStoredFiles is best-effort, the image row is already gone
func removeStoredFiles(image *Image) {
	s := storage.StorageFrom(image.BucketID)
	if s == nil {
		log.Printf("Image: %d, bucket %d unavailable, stored files left behind", image.ID, image.BucketID)
		metrics.StorageDeleteErrors.Inc()
		return
	}
	for _, publicURL := range []string{image.URL, image.ThumbURL} {
		if publicURL == "" {
			continue
		}
		name, ok := storage.ResolvePublicURL(publicURL)
		if !ok {
			log.Printf("Image: %d, cannot resolve stored file %q", image.ID, publicURL)
			continue
		}
		if err := s.Delete(name); err != nil {
			log.Printf("Image: %d, error deleting %s: %v", image.ID, name, err)
			metrics.StorageDeleteErrors.Inc()
		}
	}
}

// ImageBucketFor finds the bucket holding a stored file (original or thumbnail) by its public URL
func ImageBucketFor(publicURL string) (bucketID uint64, found bool, err error) {
	image := Image{}
	result := db.Instance.Select("id", "bucket_id").
		Where("url = ? OR thumb_url = ?", publicURL, publicURL).
		Limit(1).Find(&image)
	return image.BucketID, result.RowsAffected == 1, result.Error
}
