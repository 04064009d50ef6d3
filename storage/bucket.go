package storage

import (
	"gallery/db"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type StorageType uint8

const (
	StorageTypeFile StorageType = 0
	StorageTypeS3   StorageType = 1
)

type Bucket struct {
	ID            uint64 `gorm:"primaryKey"`
	CreatedAt     int64
	UpdatedAt     int64
	Name          string `gorm:"type:varchar(200)"` // S3 bucket name, or just a label for disk buckets
	StorageType   StorageType
	Path          string `gorm:"type:varchar(500)"` // Path on a drive or a prefix in a S3 bucket
	Endpoint      string `gorm:"type:varchar(300)"` // Empty for AWS, set for S3 compatible services
	Region        string `gorm:"type:varchar(50)"`
	S3Key         string `gorm:"type:varchar(200)"`
	S3Secret      string `gorm:"type:varchar(200)"`
	SSEEncryption string `gorm:"type:varchar(20)"`
}

func (b *Bucket) IsS3() bool {
	return b.StorageType == StorageTypeS3
}

// GetRemotePath prefixes the object name with the bucket path, e.g. "gallery/image-xyz.jpg"
func (b *Bucket) GetRemotePath(path string) string {
	prefix := strings.Trim(b.Path, "/")
	if prefix == "" {
		return path
	}
	return prefix + "/" + path
}

func (b *Bucket) CreateSVC() *s3.S3 {
	cfg := aws.NewConfig().
		WithRegion(b.Region).
		WithCredentials(credentials.NewStaticCredentials(b.S3Key, b.S3Secret, ""))
	if b.Endpoint != "" {
		cfg = cfg.WithEndpoint(b.Endpoint).WithS3ForcePathStyle(true)
	}
	sess := session.Must(session.NewSession(cfg))
	return s3.New(sess)
}

func (b *Bucket) Create() error {
	err := db.Instance.Create(b).Error
	if err != nil {
		return err
	}
	if b.StorageType == StorageTypeFile {
		return b.createDir()
	}
	return nil
}

// createDir pre-creates the location on disk
func (b *Bucket) createDir() error {
	return os.MkdirAll(b.Path, 0755)
}
