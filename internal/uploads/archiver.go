package uploads

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sisarm/sisarm-search/pkg/logging"
)

// Archiver copies committed import workbooks to long-term storage so an
// admin can reconstruct what any ImportRun was fed.
type Archiver interface {
	Archive(ctx context.Context, localPath, originalName string) (string, error)
}

// S3Archiver stores workbooks under imports/YYYY/MM/ in the configured bucket.
type S3Archiver struct {
	client *s3.Client
	bucket string
	logger *logging.Logger
}

// S3Config carries the credentials and bucket for archive storage. Endpoint
// is optional and supports S3-compatible providers (MinIO, DO Spaces).
type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

func NewS3Archiver(ctx context.Context, cfg S3Config, logger *logging.Logger) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("uploads: bucket de archivo no configurado")
	}
	if logger == nil {
		logger = logging.Default()
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("uploads: configuración AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Archiver{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Archive uploads the workbook and returns the object key.
func (a *S3Archiver) Archive(ctx context.Context, localPath, originalName string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("uploads: abrir archivo a archivar: %w", err)
	}
	defer f.Close()

	now := time.Now().UTC()
	key := path.Join("imports", now.Format("2006"), now.Format("01"),
		fmt.Sprintf("%s_%s", now.Format("20060102T150405"), originalName))

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"),
	})
	if err != nil {
		return "", fmt.Errorf("uploads: subir a S3: %w", err)
	}
	a.logger.Info("import workbook archived", "bucket", a.bucket, "key", key)
	return key, nil
}

// NopArchiver is used when archive storage is not configured.
type NopArchiver struct{}

func (NopArchiver) Archive(context.Context, string, string) (string, error) { return "", nil }
