package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/strategiq/swot/internal/config"
	"go.uber.org/zap"
)

const (
	archiveTimeout      = 45 * time.Second
	archiveFingerprints = 12
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads rendered reports to an S3-compatible bucket.
type Archiver struct {
	client objectPutter
	bucket string
	prefix string
	now    func() time.Time
	log    *zap.Logger

	wg sync.WaitGroup
}

func NewArchiver(opts config.S3Options, log *zap.Logger) (*Archiver, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	region := strings.TrimSpace(opts.Region)
	accessKey := strings.TrimSpace(opts.AccessKeyID)
	secretKey := strings.TrimSpace(opts.SecretAccessKey)
	if bucket == "" || region == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("incomplete s3 config: bucket/region/access_key_id/secret_access_key are required")
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	endpoint = strings.TrimSuffix(endpoint, "/")

	client := s3.New(s3.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		// Custom endpoints (MinIO, R2, ...) are addressed path-style.
		UsePathStyle: opts.PathStyleAccess || endpoint != "",
		BaseEndpoint: optionalString(endpoint),
	})
	return newArchiver(client, bucket, opts.Prefix, log), nil
}

func newArchiver(client objectPutter, bucket, prefix string, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: normalizeObjectKey(prefix),
		now:    time.Now,
		log:    log,
	}
}

// ObjectKey returns <prefix>/<YYYY/MM/DD>/<session>-<fingerprint[:12]>.pdf.
func (a *Archiver) ObjectKey(sessionID, fingerprint string, at time.Time) string {
	if len(fingerprint) > archiveFingerprints {
		fingerprint = fingerprint[:archiveFingerprints]
	}
	name := fmt.Sprintf("%s/%s-%s.pdf", at.UTC().Format("2006/01/02"), sessionID, fingerprint)
	if a.prefix == "" {
		return name
	}
	return normalizeObjectKey(a.prefix + "/" + name)
}

// Upload stores pdf and returns its object key.
func (a *Archiver) Upload(ctx context.Context, sessionID, fingerprint string, pdf []byte) (string, error) {
	key := a.ObjectKey(sessionID, fingerprint, a.now())
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(pdf),
		ContentLength: aws.Int64(int64(len(pdf))),
		ContentType:   aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return key, nil
}

// UploadAsync archives pdf in the background. Failures are logged only.
func (a *Archiver) UploadAsync(ctx context.Context, sessionID, fingerprint string, pdf []byte) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
		defer cancel()

		key, err := a.Upload(ctx, sessionID, fingerprint, pdf)
		if err != nil {
			a.log.Warn("pdf archive failed", zap.String("session", sessionID), zap.Error(err))
			return
		}
		a.log.Info("pdf archived", zap.String("session", sessionID), zap.String("key", key))
	}()
}

// Wait blocks until every background upload has returned.
func (a *Archiver) Wait() { a.wg.Wait() }

func normalizeObjectKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return strings.Trim(key, "/")
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
