package handlers

import (
	"encoding/json"
	"gallery/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AlbumInfo struct {
	ID           uint64  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	CoverImageID *uint64 `json:"coverImageId"`
	CoverURL     string  `json:"coverUrl,omitempty"`
	CoverTitle   string  `json:"coverTitle,omitempty"`
	ImageCount   int64   `json:"imageCount"`
	CreatedAt    int64   `json:"createdAt"`
	UpdatedAt    int64   `json:"updatedAt"`
}

type AlbumListResponse struct {
	Albums     []AlbumInfo `json:"albums"`
	Pagination Pagination  `json:"pagination"`
}

type AlbumImagesResponse struct {
	Album      AlbumInfo   `json:"album"`
	Images     []ImageInfo `json:"images"`
	Pagination Pagination  `json:"pagination"`
}

type AlbumListRequest struct {
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	Search    string `form:"search"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

type AlbumCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type AlbumUpdateRequest struct {
	Name         *string         `json:"name"`
	Description  *string         `json:"description"`
	CoverImageID json.RawMessage `json:"coverImageId"`
}

type AlbumCoverRequest struct {
	ImageID json.RawMessage `json:"imageId"`
}

func newAlbumInfo(album *models.Album) AlbumInfo {
	return AlbumInfo{
		ID:           album.ID,
		Name:         album.Name,
		Description:  album.Description,
		CoverImageID: album.CoverImageID,
		CreatedAt:    album.CreatedAt,
		UpdatedAt:    album.UpdatedAt,
	}
}

func newAlbumSummaryInfo(summary *models.AlbumSummary) AlbumInfo {
	info := newAlbumInfo(&summary.Album)
	info.ImageCount = summary.ImageCount
	info.CoverURL = summary.CoverURL
	info.CoverTitle = summary.CoverTitle
	return info
}

// respondAlbum writes the album with its image count and cover details
func respondAlbum(c *gin.Context, user *models.User, albumID uint64, status int) {
	summary, err := models.AlbumSummaryGet(user.ID, albumID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, newAlbumSummaryInfo(&summary))
}

func AlbumList(c *gin.Context, user *models.User) {
	r := AlbumListRequest{}
	if err := c.ShouldBindQuery(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	query := models.AlbumQuery{
		Page:      models.NewPage(r.Page, r.Limit),
		Search:    r.Search,
		SortBy:    r.SortBy,
		SortOrder: r.SortOrder,
	}
	albums, total, err := models.AlbumList(user.ID, query)
	if err != nil {
		respondError(c, err)
		return
	}
	result := make([]AlbumInfo, 0, len(albums))
	for i := range albums {
		result = append(result, newAlbumSummaryInfo(&albums[i]))
	}
	c.JSON(http.StatusOK, AlbumListResponse{
		Albums:     result,
		Pagination: newPagination(query.Page, total),
	})
}

func AlbumGet(c *gin.Context, user *models.User) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	respondAlbum(c, user, id, http.StatusOK)
}

func AlbumImages(c *gin.Context, user *models.User) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	r := ImageListRequest{}
	if err := c.ShouldBindQuery(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	summary, err := models.AlbumSummaryGet(user.ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	query := models.ImageQuery{
		Page:      models.NewPage(r.Page, r.Limit),
		Search:    r.Search,
		AlbumID:   id,
		SortBy:    r.SortBy,
		SortOrder: r.SortOrder,
	}
	images, total, err := models.ImageList(user.ID, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, AlbumImagesResponse{
		Album:      newAlbumSummaryInfo(&summary),
		Images:     newImageInfos(images),
		Pagination: newPagination(query.Page, total),
	})
}

func AlbumCreate(c *gin.Context, user *models.User) {
	r := AlbumCreateRequest{}
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	album, err := models.AlbumCreate(user.ID, r.Name, r.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAlbumInfo(&album))
}

func AlbumUpdate(c *gin.Context, user *models.User) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	r := AlbumUpdateRequest{}
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	in := models.AlbumUpdateInput{
		Name:        r.Name,
		Description: r.Description,
	}
	if r.CoverImageID != nil {
		coverID, err := parseOptionalID(r.CoverImageID)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{"invalid cover image id"})
			return
		}
		in.CoverImageID = &coverID
	}
	if _, err := models.AlbumUpdate(user.ID, id, in); err != nil {
		respondError(c, err)
		return
	}
	respondAlbum(c, user, id, http.StatusOK)
}

func AlbumDelete(c *gin.Context, user *models.User) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := models.AlbumDelete(user.ID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

// AlbumSetCover sets the cover to {"imageId": id} or clears it with a null/0 imageId
func AlbumSetCover(c *gin.Context, user *models.User) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	r := AlbumCoverRequest{}
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	imageID, err := parseOptionalID(r.ImageID)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{"invalid image id"})
		return
	}
	if _, err = models.AlbumSetCover(user.ID, id, imageID); err != nil {
		respondError(c, err)
		return
	}
	respondAlbum(c, user, id, http.StatusOK)
}
