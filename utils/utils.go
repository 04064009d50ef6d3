package utils

import (
	"bytes"
	"crypto/rand"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// allowedExtensions maps image MIME types to the extension used for stored files
var allowedExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

func Rand16BytesToBase62() string {
	buf := make([]byte, 16)
	_, err := rand.Read(buf)
	if err != nil {
		panic(err)
	}
	var i big.Int
	return i.SetBytes(buf).Text(62)
}

// IsImageMimeType accepts image/* types only
func IsImageMimeType(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

// StoredFileName creates a unique name for an uploaded file, e.g. image-<uuid>.jpg.
// The extension of the original name is kept if it is a plain one, otherwise it is derived from the MIME type.
func StoredFileName(prefix, originalName, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) < 2 || len(ext) > 6 || strings.ContainsAny(ext[1:], "./\\ ") {
		ext = allowedExtensions[strings.ToLower(mimeType)]
	}
	return prefix + "-" + uuid.NewString() + ext
}

// ThumbFileName names the thumbnail of a stored file, thumbs are always JPEG
func ThumbFileName(storedName string) string {
	return "thumb-" + strings.TrimSuffix(storedName, filepath.Ext(storedName)) + ".jpg"
}

type ImageThumbConverted struct {
	ThumbSize int64
	NewX      uint16
	NewY      uint16
	OldX      uint16
	OldY      uint16
}

func CreateThumb(size uint, reader io.Reader, writer io.Writer) (result ImageThumbConverted, err error) {
	image, _, err := image.Decode(reader)
	if err != nil {
		return result, err
	}
	var newBuf bytes.Buffer
	newImage := resize.Thumbnail(size, size, image, resize.Lanczos3)
	if err = jpeg.Encode(&newBuf, newImage, &jpeg.Options{Quality: 85}); err != nil {
		return
	}
	imageRect := newImage.Bounds().Size()
	result.NewX = uint16(imageRect.X)
	result.NewY = uint16(imageRect.Y)

	imageRect = image.Bounds().Size()
	result.OldX = uint16(imageRect.X)
	result.OldY = uint16(imageRect.Y)

	result.ThumbSize, err = io.Copy(writer, &newBuf)
	return
}

// ImageSize reads the dimensions from the image header only
func ImageSize(reader io.Reader) (width, height uint16, err error) {
	config, _, err := image.DecodeConfig(reader)
	if err != nil {
		return 0, 0, err
	}
	return uint16(config.Width), uint16(config.Height), nil
}
