package storage

import (
	"fmt"
	"gallery/config"
	"gallery/db"
	"io"
	"log"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

const (
	// PublicURLPrefix is how stored objects are referenced by the rest of the application
	PublicURLPrefix = "/uploads/"
)

type StorageAPI interface {
	Save(name string, reader io.Reader, mimeType string) (int64, error)
	Load(name string, writer io.Writer) (int64, error)
	Serve(name string, request *http.Request, writer http.ResponseWriter)
	Delete(name string) error
	// GetFreeSpace returns the number of bytes still available
	GetFreeSpace() uint64
	GetBucket() *Bucket
}

var (
	cachedStorage []StorageAPI
	cacheMutex    sync.RWMutex
)

// Init loads all buckets. A disk bucket at UPLOAD_DIR is created when there are none.
func Init() {
	if err := db.Instance.AutoMigrate(&Bucket{}); err != nil {
		panic(err)
	}
	var buckets []Bucket
	if err := db.Instance.Find(&buckets).Error; err != nil {
		panic(err)
	}
	if len(buckets) == 0 && config.UPLOAD_DIR != "" {
		dir, err := filepath.Abs(config.UPLOAD_DIR)
		if err != nil {
			panic(err)
		}
		bucket := Bucket{Name: "default", StorageType: StorageTypeFile, Path: dir}
		if err = bucket.Create(); err != nil {
			panic(err)
		}
		buckets = append(buckets, bucket)
	}
	log.Printf("Storage Buckets found: %d\n", len(buckets))

	loaded := []StorageAPI{}
	for i := range buckets {
		storage := NewStorage(&buckets[i])
		if storage == nil {
			panic(fmt.Sprintf("Storage type unavailable for Bucket %d", buckets[i].ID))
		}
		loaded = append(loaded, storage)
	}
	cacheMutex.Lock()
	cachedStorage = loaded
	cacheMutex.Unlock()
}

func NewStorage(bucket *Bucket) StorageAPI {
	switch bucket.StorageType {
	case StorageTypeFile:
		return NewDiskStorage(bucket)
	case StorageTypeS3:
		return NewS3Storage(bucket)
	}
	return nil
}

func StorageFrom(bucketID uint64) StorageAPI {
	cacheMutex.RLock()
	defer cacheMutex.RUnlock()
	for _, s := range cachedStorage {
		if s.GetBucket().ID == bucketID {
			return s
		}
	}
	return nil
}

// GetDefaultStorage prefers disk buckets; returns nil when no storage is configured
func GetDefaultStorage() StorageAPI {
	cacheMutex.RLock()
	defer cacheMutex.RUnlock()
	for _, s := range cachedStorage {
		if s.GetBucket().StorageType == StorageTypeFile {
			return s
		}
	}
	if len(cachedStorage) > 0 {
		return cachedStorage[0]
	}
	return nil
}

// HasFreeSpace reports whether at least minMB megabytes are still available
func HasFreeSpace(s StorageAPI, minMB int) bool {
	if minMB <= 0 {
		return true
	}
	return s.GetFreeSpace() >= uint64(minMB)*1024*1024
}

func PublicURL(name string) string {
	return PublicURLPrefix + name
}

// ResolvePublicURL turns a public reference (e.g. "/uploads/image-1.jpg") back into
// the object name within the bucket. Only the base name is kept, so references
// can never escape the bucket.
func ResolvePublicURL(publicURL string) (string, bool) {
	normalized := strings.ReplaceAll(publicURL, "\\", "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if !strings.HasPrefix(normalized, PublicURLPrefix) {
		return "", false
	}
	name := path.Base(strings.TrimPrefix(normalized, PublicURLPrefix))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", false
	}
	return name, true
}
