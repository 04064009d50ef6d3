package handlers

import (
	"bytes"
	"gallery/config"
	"gallery/metrics"
	"gallery/storage"
	"gallery/utils"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
)

const uploadField = "image"

// storedUpload is a file received from a multipart form and already saved to a bucket
type storedUpload struct {
	storage      storage.StorageAPI
	name         string
	thumbName    string
	OriginalName string
	MimeType     string
	Size         int64
	Width        uint16
	Height       uint16
}

func (u *storedUpload) URL() string {
	return storage.PublicURL(u.name)
}

func (u *storedUpload) ThumbURL() string {
	if u.thumbName == "" {
		return ""
	}
	return storage.PublicURL(u.thumbName)
}

func (u *storedUpload) BucketID() uint64 {
	return u.storage.GetBucket().ID
}

// discard removes the stored files again, e.g. after the metadata was rejected
func (u *storedUpload) discard() {
	for _, name := range []string{u.name, u.thumbName} {
		if name == "" {
			continue
		}
		if err := u.storage.Delete(name); err != nil {
			log.Printf("Upload: %s, delete error: %v", name, err)
		}
	}
}

func rejectUpload(c *gin.Context, status int, message string) {
	metrics.Uploads.WithLabelValues("rejected").Inc()
	c.JSON(status, Response{message})
}

// receiveUpload validates and stores the uploaded image file. On failure the
// response is already written and nil is returned.
func receiveUpload(c *gin.Context, prefix string, withThumb bool) *storedUpload {
	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		rejectUpload(c, http.StatusBadRequest, "please select an image file to upload")
		return nil
	}
	if fileHeader.Size > config.MAX_FILE_SIZE {
		rejectUpload(c, http.StatusBadRequest, "file size exceeds the limit")
		return nil
	}
	mimeType := fileHeader.Header.Get("Content-Type")
	if !utils.IsImageMimeType(mimeType) {
		rejectUpload(c, http.StatusBadRequest, "only image files are allowed")
		return nil
	}
	s := storage.GetDefaultStorage()
	if s == nil {
		metrics.Uploads.WithLabelValues("failed").Inc()
		c.JSON(http.StatusServiceUnavailable, StorageErrorResponse)
		return nil
	}
	if !storage.HasFreeSpace(s, config.MIN_FREE_SPACE_MB) {
		rejectUpload(c, http.StatusInsufficientStorage, "not enough free space")
		return nil
	}

	upload := &storedUpload{
		storage:      s,
		name:         utils.StoredFileName(prefix, fileHeader.Filename, mimeType),
		OriginalName: fileHeader.Filename,
		MimeType:     mimeType,
	}
	if err = upload.save(fileHeader); err != nil {
		log.Printf("Upload: %s, save error: %v", upload.name, err)
		metrics.Uploads.WithLabelValues("failed").Inc()
		c.JSON(http.StatusInternalServerError, StorageErrorResponse)
		return nil
	}
	if withThumb && config.THUMB_SIZE > 0 {
		upload.saveThumb(fileHeader)
	}
	metrics.Uploads.WithLabelValues("ok").Inc()
	return upload
}

func (u *storedUpload) save(fileHeader *multipart.FileHeader) error {
	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()
	if u.Size, err = u.storage.Save(u.name, file, u.MimeType); err != nil {
		return err
	}
	if _, err = file.Seek(0, io.SeekStart); err == nil {
		u.Width, u.Height, err = utils.ImageSize(file)
	}
	if err != nil {
		log.Printf("Upload: %s, cannot read dimensions: %v", u.name, err)
	}
	return nil
}

// saveThumb is best-effort, formats the decoder doesn't know are kept without a thumbnail
func (u *storedUpload) saveThumb(fileHeader *multipart.FileHeader) {
	file, err := fileHeader.Open()
	if err != nil {
		return
	}
	defer file.Close()
	var thumb bytes.Buffer
	if _, err = utils.CreateThumb(uint(config.THUMB_SIZE), file, &thumb); err != nil {
		log.Printf("Upload: %s, thumb error: %v", u.name, err)
		return
	}
	thumbName := utils.ThumbFileName(u.name)
	if _, err = u.storage.Save(thumbName, &thumb, "image/jpeg"); err != nil {
		log.Printf("Upload: %s, thumb save error: %v", u.name, err)
		return
	}
	u.thumbName = thumbName
}
