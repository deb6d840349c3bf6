// Package blobstore is the gateway to S3-compatible object storage. It only
// signs URLs and drives the multipart lifecycle; file bytes never pass
// through the server.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/quicksend/internal/common"
	"github.com/dmitrijs2005/quicksend/internal/logging"
	"github.com/dmitrijs2005/quicksend/internal/server/models"
)

type Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
	UsePathStyle bool
}

// s3API is the subset of *s3.Client used by the store.
type s3API interface {
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// presignAPI is the subset of *s3.PresignClient used by the store.
type presignAPI interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignUploadPart(ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type S3Store struct {
	client  s3API
	presign presignAPI
	bucket  string
	logger  logging.Logger
}

// New loads AWS configuration with static credentials and builds the S3 and
// presign clients. A non-empty BaseEndpoint targets MinIO or LocalStack.
func New(ctx context.Context, cfg Config, logger logging.Logger) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newStore(client, s3.NewPresignClient(client), cfg.Bucket, logger), nil
}

func newStore(client s3API, presign presignAPI, bucket string, logger logging.Logger) *S3Store {
	return &S3Store{client: client, presign: presign, bucket: bucket, logger: logger}
}

func (s *S3Store) Bucket() string {
	return s.bucket
}

// ObjectKey is the storage location of a file: files/<id>/<base name>.
func ObjectKey(fileID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		name = "file"
	}
	return "files/" + fileID + "/" + name
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrStorageUnavailable, op, err)
}

func (s *S3Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := s.presign.PresignPutObject(ctx, in, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", unavailable("presign put", err)
	}
	return req.URL, nil
}

func (s *S3Store) CreateMultipart(ctx context.Context, key, contentType string) (string, error) {
	in := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	out, err := s.client.CreateMultipartUpload(ctx, in)
	if err != nil {
		return "", unavailable("create multipart upload", err)
	}
	if out.UploadId == nil || *out.UploadId == "" {
		return "", unavailable("create multipart upload", errors.New("empty upload id"))
	}
	return *out.UploadId, nil
}

func (s *S3Store) PresignPart(ctx context.Context, key, uploadID string, partNumber int32, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", unavailable(fmt.Sprintf("presign part %d", partNumber), err)
	}
	return req.URL, nil
}

// CompletedParts checks that parts cover 1..expected exactly once with an
// etag each, and returns them sorted for CompleteMultipartUpload.
func CompletedParts(parts []models.Part, expected int) ([]types.CompletedPart, error) {
	if len(parts) != expected {
		return nil, fmt.Errorf("%w: got %d of %d parts", common.ErrIncompleteParts, len(parts), expected)
	}

	sorted := make([]models.Part, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	out := make([]types.CompletedPart, 0, len(sorted))
	for i, p := range sorted {
		if p.PartNumber != int32(i+1) {
			return nil, fmt.Errorf("%w: part %d missing", common.ErrIncompleteParts, i+1)
		}
		if p.ETag == "" {
			return nil, fmt.Errorf("%w: part %d has no etag", common.ErrIncompleteParts, p.PartNumber)
		}
		out = append(out, types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		})
	}
	return out, nil
}

func (s *S3Store) CompleteMultipart(ctx context.Context, key, uploadID string, parts []models.Part, expected int) error {
	completed, err := CompletedParts(parts, expected)
	if err != nil {
		return err
	}

	_, err = s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return unavailable("complete multipart upload", err)
	}
	return nil
}

// Abort never fails the caller. A session that cannot be aborted is left
// to the bucket's lifecycle rules.
func (s *S3Store) Abort(ctx context.Context, key, uploadID string) {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		s.logger.Error(ctx, "failed to abort multipart upload", "key", key, "upload_id", uploadID, "error", err)
		return
	}
	s.logger.Info(ctx, "multipart upload aborted", "key", key, "upload_id", uploadID)
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return false, nil
	}
	return false, unavailable("head object", err)
}

// PresignGet signs a download URL that makes browsers save the object under
// fileName instead of rendering it.
func (s *S3Store) PresignGet(ctx context.Context, key, fileName string, ttl time.Duration) (string, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if fileName != "" {
		in.ResponseContentDisposition = aws.String(mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	}

	req, err := s.presign.PresignGetObject(ctx, in, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", unavailable("presign get", err)
	}
	return req.URL, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return unavailable("delete object", err)
	}
	return nil
}
