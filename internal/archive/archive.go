// Package archive copies product images to S3 compatible object storage.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/maltedev/supplier-scraper/internal/config"
	"github.com/maltedev/supplier-scraper/internal/fetch"
	"github.com/maltedev/supplier-scraper/internal/models"
)

var ErrDisabled = errors.New("image archive is not configured")

type ObjectUploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type ImageFetcher interface {
	FetchImage(ctx context.Context, rawURL string) (*fetch.Image, error)
}

// ArchivedImage is the result for one product image.
type ArchivedImage struct {
	Source string `json:"source"`
	Key    string `json:"key,omitempty"`
	Size   int    `json:"size,omitempty"`
	Error  string `json:"error,omitempty"`
}

type Archiver struct {
	uploader ObjectUploader
	images   ImageFetcher
	bucket   string
	prefix   string
	logger   *slog.Logger
}

func NewArchiver(uploader ObjectUploader, images ImageFetcher, bucket, prefix string, logger *slog.Logger) *Archiver {
	return &Archiver{
		uploader: uploader,
		images:   images,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		logger:   logger.With("component", "archive"),
	}
}

// NewS3Client builds an S3 client for cfg. Any S3 compatible endpoint works.
func NewS3Client(ctx context.Context, cfg config.ArchiveConfig) (*s3.Client, error) {
	if cfg.Bucket == "" {
		return nil, ErrDisabled
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// ArchiveProduct downloads every image of p and uploads it under
// <prefix>/<product id>/<index><ext>. A failed image does not stop the others;
// the error is an aggregate of the per-image failures.
func (a *Archiver) ArchiveProduct(ctx context.Context, p *models.StoredProduct) ([]ArchivedImage, error) {
	results := make([]ArchivedImage, 0, len(p.Images))
	var errs []error

	for i, src := range p.Images {
		res := ArchivedImage{Source: src}

		img, err := a.images.FetchImage(ctx, src)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			errs = append(errs, err)
			continue
		}

		key := a.objectKey(p.ID, i, src, img.ContentType)
		_, err = a.uploader.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(img.Data),
			ContentType: aws.String(img.ContentType),
			Metadata: map[string]string{
				"source-url": src,
				"supplier":   p.SupplierName,
			},
		})
		if err != nil {
			res.Error = err.Error()
			errs = append(errs, fmt.Errorf("failed to upload %s: %w", key, err))
		} else {
			res.Key = key
			res.Size = len(img.Data)
		}
		results = append(results, res)
	}

	a.logger.Info("product images archived",
		"id", p.ID,
		"images", len(p.Images),
		"failed", len(errs))

	return results, errors.Join(errs...)
}

func (a *Archiver) objectKey(productID string, index int, src, contentType string) string {
	name := fmt.Sprintf("%02d%s", index, extension(src, contentType))
	if a.prefix == "" {
		return path.Join(productID, name)
	}
	return path.Join(a.prefix, productID, name)
}

func extension(src, contentType string) string {
	if u, err := url.Parse(src); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); len(ext) > 1 && len(ext) <= 5 {
			return ext
		}
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "image/jpeg":
			return ".jpg"
		case "image/png":
			return ".png"
		case "image/webp":
			return ".webp"
		case "image/gif":
			return ".gif"
		}
	}
	return ".bin"
}
