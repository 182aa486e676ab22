// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/land-escrow-backend/internal/config"
)

var (
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrFileTypeNotAllowed = errors.New("file type is not allowed")
)

// StorageService keeps dispute evidence (deeds, site plans, receipts) in S3,
// or on local disk when no AWS credentials are configured.
type StorageService struct {
	s3Client      s3iface.S3API
	bucket        string
	region        string
	cloudFrontURL string
	localDir      string
	localBaseURL  string
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
}

// EvidenceUploadOptions limits evidence to documents and photos.
var EvidenceUploadOptions = UploadOptions{
	Folder:       "evidence",
	MaxSize:      20 * 1024 * 1024, // 20MB
	AllowedTypes: []string{".jpg", ".jpeg", ".png", ".pdf"},
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	s := &StorageService{
		bucket:        cfg.AWS.S3Bucket,
		region:        cfg.AWS.Region,
		cloudFrontURL: cfg.AWS.CloudFrontURL,
		localDir:      cfg.Server.UploadDir,
		localBaseURL:  strings.TrimRight(cfg.Server.PublicURL, "/") + "/uploads",
	}
	if cfg.AWS.AccessKeyID == "" {
		// Local development writes to disk
		return s, nil
	}

	// Create AWS session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	s.s3Client = s3.New(sess)
	return s, nil
}

// WithS3Client swaps the S3 client, used by tests.
func (s *StorageService) WithS3Client(client s3iface.S3API, bucket string) *StorageService {
	s.s3Client = client
	s.bucket = bucket
	return s
}

// LocalDir is the directory served under /uploads when S3 is not in use.
func (s *StorageService) LocalDir() (string, bool) {
	return s.localDir, s.s3Client == nil
}

func (s *StorageService) UploadFile(ctx context.Context, file multipart.File, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	// Validate file size
	if options.MaxSize > 0 && header.Size > options.MaxSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, header.Size, options.MaxSize)
	}

	// Validate file type
	fileExt := strings.ToLower(filepath.Ext(header.Filename))
	if len(options.AllowedTypes) > 0 && !containsString(options.AllowedTypes, fileExt) {
		return nil, fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, fileExt)
	}

	fileBytes, err := io.ReadAll(io.LimitReader(file, header.Size+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if options.MaxSize > 0 && int64(len(fileBytes)) > options.MaxSize {
		return nil, fmt.Errorf("%w: limit %d", ErrFileTooLarge, options.MaxSize)
	}

	// Sniff instead of trusting the client's Content-Type.
	contentType := http.DetectContentType(fileBytes)
	if !allowedEvidenceContent(fileExt, contentType) {
		return nil, fmt.Errorf("%w: content is %s", ErrFileTypeNotAllowed, contentType)
	}

	key := s.generateFileName(header.Filename, options.Folder)

	if s.s3Client != nil {
		return s.uploadToS3(ctx, fileBytes, key, contentType)
	}
	return s.uploadToLocal(fileBytes, key, contentType)
}

func (s *StorageService) uploadToS3(ctx context.Context, fileBytes []byte, key, contentType string) (*UploadResult, error) {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(fileBytes),
		ContentType:          aws.String(contentType),
		ContentLength:        aws.Int64(int64(len(fileBytes))),
		ServerSideEncryption: aws.String(s3.ServerSideEncryptionAes256),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		URL:      s.getS3URL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) uploadToLocal(fileBytes []byte, key, contentType string) (*UploadResult, error) {
	path := filepath.Join(s.localDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(path, fileBytes, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	logrus.WithField("path", path).Debug("Evidence stored on local disk")

	return &UploadResult{
		URL:      fmt.Sprintf("%s/%s", s.localBaseURL, key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

// GeneratePresignedURL returns a time-limited download link for a private
// evidence object.
func (s *StorageService) GeneratePresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return fmt.Sprintf("%s/%s", s.localBaseURL, key), nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}

func (s *StorageService) generateFileName(originalName, folder string) string {
	// Create filename with timestamp and UUID
	ext := strings.ToLower(filepath.Ext(originalName))
	timestamp := time.Now().UTC().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, uuid.NewString(), ext)

	if folder != "" {
		return fmt.Sprintf("%s/%s", folder, filename)
	}
	return filename
}

func (s *StorageService) getS3URL(key string) string {
	if s.cloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.cloudFrontURL, "/"), key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func allowedEvidenceContent(ext, contentType string) bool {
	switch ext {
	case ".pdf":
		return contentType == "application/pdf"
	case ".jpg", ".jpeg":
		return contentType == "image/jpeg"
	case ".png":
		return contentType == "image/png"
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
