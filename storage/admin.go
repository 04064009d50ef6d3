package storage

import (
	"errors"
	"fmt"
	"gallery/db"
	"log"
	"strings"
)

const writeCheckName = "write-check.txt"

// CleanupPath strips ".." and duplicate slashes from the bucket path
func (b *Bucket) CleanupPath() {
	for strings.Contains(b.Path, "..") {
		b.Path = strings.ReplaceAll(b.Path, "..", "")
	}
	for strings.Contains(b.Path, "//") {
		b.Path = strings.ReplaceAll(b.Path, "//", "/")
	}
}

// Validate checks the settings required by the storage type and fills in defaults
func (b *Bucket) Validate() error {
	b.CleanupPath()
	if b.Name == "" {
		return errors.New("empty bucket name")
	}
	switch b.StorageType {
	case StorageTypeFile:
		if b.Path == "" {
			return errors.New("empty bucket path")
		}
		if b.Path[0] != '/' {
			return errors.New("path must be absolute and start with / (slash)")
		}
	case StorageTypeS3:
		if b.S3Key == "" || b.S3Secret == "" {
			return errors.New("'S3 Key' and 'S3 Secret' must be provided")
		}
		if b.Region == "" {
			b.Region = "us-east-1"
		}
	default:
		return fmt.Errorf("unknown storage type %d", b.StorageType)
	}
	return nil
}

// CheckWriteAccess saves, reads back and deletes a small object
func CheckWriteAccess(bucket *Bucket) error {
	s := NewStorage(bucket)
	if s == nil {
		return fmt.Errorf("storage type unavailable: %d", bucket.StorageType)
	}
	if bucket.StorageType == StorageTypeFile {
		if err := bucket.createDir(); err != nil {
			return err
		}
	}
	if _, err := s.Save(writeCheckName, strings.NewReader("gallery"), "text/plain"); err != nil {
		log.Printf("Cannot save to bucket: %s", bucket.Name)
		return err
	}
	var content strings.Builder
	if _, err := s.Load(writeCheckName, &content); err != nil {
		log.Printf("Cannot read from bucket: %s", bucket.Name)
		return err
	}
	if content.String() != "gallery" {
		return errors.New("stored content differs")
	}
	if err := s.Delete(writeCheckName); err != nil {
		log.Printf("Cannot delete from bucket: %s", bucket.Name)
		return err
	}
	return nil
}

// AddBucket validates the bucket, checks it is writable and stores it.
// The cached storage list is reloaded afterwards.
func AddBucket(bucket *Bucket) error {
	if err := bucket.Validate(); err != nil {
		return err
	}
	if err := CheckWriteAccess(bucket); err != nil {
		return fmt.Errorf("no write access to bucket: %w", err)
	}
	if err := bucket.Create(); err != nil {
		return err
	}
	Init()
	return nil
}

func ListBuckets() (buckets []Bucket, err error) {
	err = db.Instance.Order("id").Find(&buckets).Error
	return
}
