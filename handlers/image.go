package handlers

import (
	"encoding/json"
	"errors"
	"gallery/models"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type ImageInfo struct {
	ID           uint64   `json:"id"`
	AlbumID      *uint64  `json:"albumId"`
	URL          string   `json:"url"`
	ThumbURL     string   `json:"thumbUrl"`
	OriginalName string   `json:"originalName"`
	MimeType     string   `json:"mimeType"`
	Size         int64    `json:"size"`
	Width        uint16   `json:"width"`
	Height       uint16   `json:"height"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	CreatedAt    int64    `json:"createdAt"`
	UpdatedAt    int64    `json:"updatedAt"`
}

type ImageListResponse struct {
	Images     []ImageInfo `json:"images"`
	Pagination Pagination  `json:"pagination"`
}

type TagInfo struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type ImageListRequest struct {
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	Tag       string `form:"tag"`
	Search    string `form:"search"`
	AlbumID   string `form:"albumId"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

// ImageUpdateRequest uses raw values so that absent fields can be told apart from null ones
type ImageUpdateRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Tags        json.RawMessage `json:"tags"`
	AlbumID     json.RawMessage `json:"albumId"`
}

type ImagesMoveRequest struct {
	ImageIDs      []uint64        `json:"imageIds"`
	TargetAlbumID json.RawMessage `json:"targetAlbumId"`
}

var errInvalidID = errors.New("invalid id")

func newImageInfo(image *models.Image) ImageInfo {
	return ImageInfo{
		ID:           image.ID,
		AlbumID:      image.AlbumID,
		URL:          image.URL,
		ThumbURL:     image.ThumbURL,
		OriginalName: image.OriginalName,
		MimeType:     image.MimeType,
		Size:         image.Size,
		Width:        image.Width,
		Height:       image.Height,
		Title:        image.Title,
		Description:  image.Description,
		Tags:         image.TagNames(),
		CreatedAt:    image.CreatedAt,
		UpdatedAt:    image.UpdatedAt,
	}
}

func newImageInfos(images []models.Image) []ImageInfo {
	result := make([]ImageInfo, 0, len(images))
	for i := range images {
		result = append(result, newImageInfo(&images[i]))
	}
	return result
}

// splitTags accepts "a, b" style lists
func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

// parseTags accepts either a JSON array of strings or a comma separated string
func parseTags(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("tags must be a list or a comma separated string")
	}
	return splitTags(s), nil
}

// parseOptionalID reads an optional reference: null, 0 and "" all mean "none"
func parseOptionalID(raw json.RawMessage) (uint64, error) {
	value := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if value == "" || value == "null" {
		return 0, nil
	}
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errInvalidID
	}
	return id, nil
}

func ImageList(c *gin.Context, user *models.User) {
	r := ImageListRequest{}
	if err := c.ShouldBindQuery(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	albumID, err := parseOptionalID(json.RawMessage(r.AlbumID))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	query := models.ImageQuery{
		Page:      models.NewPage(r.Page, r.Limit),
		Tag:       r.Tag,
		Search:    r.Search,
		AlbumID:   albumID,
		SortBy:    r.SortBy,
		SortOrder: r.SortOrder,
	}
	images, total, err := models.ImageList(user.ID, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ImageListResponse{
		Images:     newImageInfos(images),
		Pagination: newPagination(query.Page, total),
	})
}

func ImageTags(c *gin.Context, user *models.User) {
	tags, err := models.TagStats(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	result := make([]TagInfo, 0, len(tags))
	for _, tag := range tags {
		result = append(result, TagInfo{Name: tag.Name, Count: tag.Count})
	}
	c.JSON(http.StatusOK, gin.H{"tags": result})
}

func ImageGet(c *gin.Context, user *models.User) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	image, err := models.ImageGet(user.ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newImageInfo(&image))
}

// ImageUpload stores the "image" file and records it with the form fields
// title, description, tags (comma separated) and albumId
func ImageUpload(c *gin.Context, user *models.User) {
	albumID, err := parseOptionalID(json.RawMessage(c.PostForm("albumId")))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	upload := receiveUpload(c, "image", true)
	if upload == nil {
		return
	}
	tags := c.PostFormArray("tags")
	if len(tags) == 1 {
		tags = splitTags(tags[0])
	}
	image, err := models.ImageCreate(user.ID, models.ImageInput{
		AlbumID:      albumID,
		BucketID:     upload.BucketID(),
		URL:          upload.URL(),
		ThumbURL:     upload.ThumbURL(),
		OriginalName: upload.OriginalName,
		MimeType:     upload.MimeType,
		Size:         upload.Size,
		Width:        upload.Width,
		Height:       upload.Height,
		Title:        c.PostForm("title"),
		Description:  c.PostForm("description"),
		Tags:         tags,
	})
	if err != nil {
		upload.discard()
		respondError(c, err)
		return
	}
	image, err = models.ImageGet(user.ID, image.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newImageInfo(&image))
}

func ImageUpdate(c *gin.Context, user *models.User) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	r := ImageUpdateRequest{}
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	in := models.ImageUpdateInput{
		Title:       r.Title,
		Description: r.Description,
	}
	if r.Tags != nil {
		tags, err := parseTags(r.Tags)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{err.Error()})
			return
		}
		in.Tags = &tags
	}
	if r.AlbumID != nil {
		albumID, err := parseOptionalID(r.AlbumID)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{err.Error()})
			return
		}
		in.AlbumID = &albumID
	}
	image, err := models.ImageUpdate(user.ID, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newImageInfo(&image))
}

func ImagesMove(c *gin.Context, user *models.User) {
	r := ImagesMoveRequest{}
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	targetAlbumID, err := parseOptionalID(r.TargetAlbumID)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	moved, err := models.ImagesMove(user.ID, r.ImageIDs, targetAlbumID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: moved})
}

func ImageDelete(c *gin.Context, user *models.User) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := models.ImageDelete(user.ID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}
