// internal/services/storage_service_test.go
package services

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/land-escrow-backend/internal/config"
)

var pdfContent = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

// formFile builds a multipart upload the way a browser would send it.
func formFile(t *testing.T, name string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, "/v1/disputes/evidence", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	file, header, err := req.FormFile("file")
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })
	return file, header
}

func localStorage(t *testing.T) *StorageService {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{UploadDir: t.TempDir(), PublicURL: "http://localhost:8080/"},
		AWS:    config.AWSConfig{Region: "eu-west-1", S3Bucket: "land-escrow-evidence"},
	}
	svc, err := NewStorageService(cfg)
	require.NoError(t, err)
	return svc
}

func TestUploadEvidenceToLocalDisk(t *testing.T) {
	svc := localStorage(t)
	dir, isLocal := svc.LocalDir()
	require.True(t, isLocal)

	file, header := formFile(t, "Site-Plan.PDF", pdfContent)
	result, err := svc.UploadFile(context.Background(), file, header, EvidenceUploadOptions)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Key, "evidence/"))
	assert.True(t, strings.HasSuffix(result.Key, ".pdf"))
	assert.Equal(t, "http://localhost:8080/uploads/"+result.Key, result.URL)
	assert.Equal(t, "application/pdf", result.MimeType)

	stored, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(result.Key)))
	require.NoError(t, err)
	assert.Equal(t, pdfContent, stored)
}

func TestUploadEvidenceRejections(t *testing.T) {
	svc := localStorage(t)

	t.Run("extension", func(t *testing.T) {
		file, header := formFile(t, "notes.exe", pdfContent)
		_, err := svc.UploadFile(context.Background(), file, header, EvidenceUploadOptions)
		assert.ErrorIs(t, err, ErrFileTypeNotAllowed)
	})

	t.Run("content does not match extension", func(t *testing.T) {
		file, header := formFile(t, "deed.jpg", []byte("plain text pretending to be a photo"))
		_, err := svc.UploadFile(context.Background(), file, header, EvidenceUploadOptions)
		assert.ErrorIs(t, err, ErrFileTypeNotAllowed)
	})

	t.Run("size", func(t *testing.T) {
		file, header := formFile(t, "deed.pdf", pdfContent)
		opts := EvidenceUploadOptions
		opts.MaxSize = 10
		_, err := svc.UploadFile(context.Background(), file, header, opts)
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})
}

type fakeS3 struct {
	s3iface.S3API
	puts []*s3.PutObjectInput
	body []byte
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, input)
	b, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestUploadEvidenceToS3(t *testing.T) {
	client := &fakeS3{}
	svc := localStorage(t).WithS3Client(client, "evidence-bucket")
	_, isLocal := svc.LocalDir()
	assert.False(t, isLocal)

	file, header := formFile(t, "receipt.pdf", pdfContent)
	result, err := svc.UploadFile(context.Background(), file, header, EvidenceUploadOptions)
	require.NoError(t, err)

	require.Len(t, client.puts, 1)
	put := client.puts[0]
	assert.Equal(t, "evidence-bucket", *put.Bucket)
	assert.Equal(t, result.Key, *put.Key)
	assert.Equal(t, "application/pdf", *put.ContentType)
	assert.Equal(t, s3.ServerSideEncryptionAes256, *put.ServerSideEncryption)
	assert.Equal(t, pdfContent, client.body)
	assert.Equal(t, "https://evidence-bucket.s3.eu-west-1.amazonaws.com/"+result.Key, result.URL)
}

func TestS3URLPrefersCloudFront(t *testing.T) {
	svc := &StorageService{bucket: "b", region: "eu-west-1", cloudFrontURL: "https://cdn.example.com/"}
	assert.Equal(t, "https://cdn.example.com/evidence/a.pdf", svc.getS3URL("evidence/a.pdf"))
}
