// internal/services/storage_service_test.go
package services

import (
	"bytes"
	"context"
	"mime/multipart"
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

	"github.com/javajoker/eco-backend/internal/config"
	"github.com/javajoker/eco-backend/internal/models"
	"github.com/javajoker/eco-backend/internal/utils"
)

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func uploadBytes(t *testing.T, svc *StorageService, name string, data []byte, opts UploadOptions) (*UploadResult, error) {
	t.Helper()
	header := &multipart.FileHeader{Filename: name, Size: int64(len(data))}
	return svc.UploadFile(context.Background(), memFile{bytes.NewReader(data)}, header, opts)
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0, 0, 0, 0}

func TestLocalUploadAndDelete(t *testing.T) {
	svc := newTestStorage(t)

	result, err := uploadBytes(t, svc, "drawing.PDF", []byte("%PDF-1.4 test"), svc.GetDefaultUploadOptions(UploadCategoryECOAttachment))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Key, "eco-attachments/"))
	assert.True(t, strings.HasSuffix(result.Key, ".pdf"))
	assert.Equal(t, "http://localhost/uploads/"+result.Key, result.URL)
	assert.Equal(t, utils.HashBytes([]byte("%PDF-1.4 test")), result.Checksum)

	path := filepath.Join(svc.storage.LocalDir, filepath.FromSlash(result.Key))
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFile(context.Background(), result.Key))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, svc.DeleteFile(context.Background(), result.Key))
}

func TestUploadValidation(t *testing.T) {
	svc := newTestStorage(t)
	avatar := svc.GetDefaultUploadOptions(UploadCategoryAvatar)

	_, err := uploadBytes(t, svc, "me.exe", pngHeader, avatar)
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	_, err = uploadBytes(t, svc, "me.png", []byte("definitely not an image"), avatar)
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	_, err = uploadBytes(t, svc, "me.png", bytes.Repeat([]byte{0}, int(avatar.MaxSize)+1), avatar)
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	result, err := uploadBytes(t, svc, "me.png", pngHeader, avatar)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Key, "avatars/"))
}

type fakeS3 struct {
	s3iface.S3API
	puts    []*s3.PutObjectInput
	deletes []string
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Upload(t *testing.T) {
	client := &fakeS3{}
	svc := NewStorageServiceWithClient(client,
		config.AWSConfig{Region: "us-east-1", S3Bucket: "eco-docs"},
		config.StorageConfig{MaxImageSize: 1 << 20, MaxDocSize: 1 << 20})
	require.True(t, svc.UsesS3())

	result, err := uploadBytes(t, svc, "face.png", pngHeader, svc.GetDefaultUploadOptions(UploadCategoryAvatar))
	require.NoError(t, err)
	assert.Equal(t, "https://eco-docs.s3.us-east-1.amazonaws.com/"+result.Key, result.URL)

	require.Len(t, client.puts, 1)
	assert.Equal(t, "eco-docs", aws.StringValue(client.puts[0].Bucket))
	assert.Equal(t, "public-read", aws.StringValue(client.puts[0].ACL))

	require.NoError(t, svc.DeleteFile(context.Background(), result.Key))
	assert.Equal(t, []string{result.Key}, client.deletes)
}

func TestECOAttachmentLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createProduct(t, "P-1", "Desk")
	f.createECO(t, "ECO-1", "P-1")

	storage := f.ecos.storageService
	eco, err := f.ecos.AddAttachment(ctx, f.engineer, "ECO-1", func(opts UploadOptions) (*UploadResult, error) {
		return uploadBytes(t, storage, "tolerances.txt", []byte("tolerances"), opts)
	})
	require.NoError(t, err)
	require.Len(t, eco.Attachments, 1)
	assert.Equal(t, "Attachment added", eco.AuditLog[0].Action)

	url, err := f.ecos.AttachmentURL(ctx, "ECO-1", eco.Attachments[0])
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/uploads/"+eco.Attachments[0], url)

	_, err = f.ecos.AttachmentURL(ctx, "ECO-1", "eco-attachments/other.txt")
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	_, err = f.ecos.AddAttachment(ctx, f.engineer, "ECO-1", func(opts UploadOptions) (*UploadResult, error) {
		return uploadBytes(t, storage, "virus.exe", []byte("MZ"), opts)
	})
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	var stored models.ECO
	require.NoError(t, f.db.Where("id = ?", "ECO-1").First(&stored).Error)
	assert.Len(t, stored.Attachments, 1)
}
