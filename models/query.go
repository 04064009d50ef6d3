package models

import (
	"gallery/db"
	"math"
	"strings"

	"gorm.io/gorm"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	// maxPage keeps the offset within 32 bits
	maxPage          = math.MaxInt32 / maxPageLimit
)

// Page is the normalized pagination of a list request
type Page struct {
	Page  int
	Limit int
}

// NewPage clamps page to 1..maxPage and limit to 1..100 (0 or less means the default of 20)
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pages returns the number of pages for total items, at least 1
func (p Page) Pages(total int64) int64 {
	pages := (total + int64(p.Limit) - 1) / int64(p.Limit)
	if pages < 1 {
		return 1
	}
	return pages
}

type ImageQuery struct {
	Page
	Tag       string
	Search    string
	AlbumID   uint64
	SortBy    string
	SortOrder string
}

type AlbumQuery struct {
	Page
	Search    string
	SortBy    string
	SortOrder string
}

type TagCount struct {
	Name  string
	Count int64
}

// AlbumSummary is an album with its image count and cover details
type AlbumSummary struct {
	Album
	ImageCount int64
	CoverURL   string
	CoverTitle string
}

var (
	imageSortColumns = map[string]string{
		"createdAt": "images.created_at",
		"updatedAt": "images.updated_at",
		"title":     "images.title",
	}
	albumSortColumns = map[string]string{
		"createdAt":  "albums.created_at",
		"updatedAt":  "albums.updated_at",
		"name":       "albums.name",
		"imageCount": "image_count",
	}
)

// orderBy maps a sort request to an ORDER BY clause. Unknown fields sort by creation time,
// anything but "asc" sorts descending, ties are always broken by newest first.
func orderBy(columns map[string]string, table, sortBy, sortOrder string) string {
	column, ok := columns[sortBy]
	if !ok {
		column = columns["createdAt"]
	}
	direction := "DESC"
	if sortOrder == "asc" {
		direction = "ASC"
	}
	order := column + " " + direction
	if column != columns["createdAt"] {
		order += ", " + table + ".created_at DESC"
	}
	return order + ", " + table + ".id DESC"
}

func likePattern(search string) string {
	replacer := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + replacer.Replace(search) + "%"
}

func imageFilter(ownerID uint64, q *ImageQuery) *gorm.DB {
	tx := db.Instance.Model(&Image{}).Where("images.user_id = ?", ownerID)
	if q.AlbumID != 0 {
		tx = tx.Where("images.album_id = ?", q.AlbumID)
	}
	if tag := strings.TrimSpace(q.Tag); tag != "" {
		tx = tx.Where("images.id IN (?)", db.Instance.Model(&ImageTag{}).Select("image_id").Where("name = ?", tag))
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := likePattern(strings.ToLower(search))
		tagMatch := db.Instance.Model(&ImageTag{}).Select("image_id").Where("LOWER(name) LIKE ? ESCAPE '!'", pattern)
		tx = tx.Where(
			"LOWER(images.title) LIKE ? ESCAPE '!' OR LOWER(images.description) LIKE ? ESCAPE '!' OR images.id IN (?)",
			pattern, pattern, tagMatch,
		)
	}
	return tx
}

// ImageList returns a page of the owner's images (with tags) and the total number of matches
func ImageList(ownerID uint64, q ImageQuery) (images []Image, total int64, err error) {
	q.Page = NewPage(q.Page.Page, q.Page.Limit)
	if err = imageFilter(ownerID, &q).Count(&total).Error; err != nil {
		return
	}
	err = imageFilter(ownerID, &q).
		Preload("Tags", func(tx *gorm.DB) *gorm.DB { return tx.Order("name") }).
		Order(orderBy(imageSortColumns, "images", q.SortBy, q.SortOrder)).
		Offset(q.Offset()).Limit(q.Limit).
		Find(&images).Error
	return
}

// TagStats counts the owner's images per tag, most used first
func TagStats(ownerID uint64) (tags []TagCount, err error) {
	err = db.Instance.Model(&ImageTag{}).
		Select("image_tags.name AS name, COUNT(*) AS count").
		Joins("JOIN images ON images.id = image_tags.image_id").
		Where("images.user_id = ?", ownerID).
		Group("image_tags.name").
		Order("count DESC, name ASC").
		Scan(&tags).Error
	return
}

func AlbumImageCount(ownerID, albumID uint64) (count int64, err error) {
	err = db.Instance.Model(&Image{}).Where("album_id = ? AND user_id = ?", albumID, ownerID).Count(&count).Error
	return
}

func albumSummaries(ownerID uint64) *gorm.DB {
	imageCount := db.Instance.Model(&Image{}).
		Select("COUNT(*)").
		Where("images.album_id = albums.id AND images.user_id = albums.user_id")
	return db.Instance.Model(&Album{}).
		Select("albums.*, (?) AS image_count, COALESCE(covers.url, '') AS cover_url, COALESCE(covers.title, '') AS cover_title", imageCount).
		Joins("LEFT JOIN images covers ON covers.id = albums.cover_image_id").
		Where("albums.user_id = ?", ownerID)
}

// AlbumList returns a page of the owner's albums with image counts and cover details
func AlbumList(ownerID uint64, q AlbumQuery) (albums []AlbumSummary, total int64, err error) {
	q.Page = NewPage(q.Page.Page, q.Page.Limit)
	filter := func(tx *gorm.DB) *gorm.DB {
		if search := strings.TrimSpace(q.Search); search != "" {
			tx = tx.Where("LOWER(albums.name) LIKE ? ESCAPE '!'", likePattern(strings.ToLower(search)))
		}
		return tx
	}
	if err = filter(db.Instance.Model(&Album{}).Where("user_id = ?", ownerID)).Count(&total).Error; err != nil {
		return
	}
	err = filter(albumSummaries(ownerID)).
		Order(orderBy(albumSortColumns, "albums", q.SortBy, q.SortOrder)).
		Offset(q.Offset()).Limit(q.Limit).
		Scan(&albums).Error
	return
}

// AlbumSummaryGet loads a single album of the owner with its image count and cover details
func AlbumSummaryGet(ownerID, albumID uint64) (summary AlbumSummary, err error) {
	result := albumSummaries(ownerID).Where("albums.id = ?", albumID).Limit(1).Scan(&summary)
	if result.Error != nil {
		return summary, result.Error
	}
	if result.RowsAffected != 1 {
		return summary, notFoundError("album not found")
	}
	return
}
