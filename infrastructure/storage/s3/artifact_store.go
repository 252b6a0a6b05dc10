// Package s3 stores chart artifacts in S3 or an S3-compatible object store.
package s3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/felixgeelhaar/hoopstats/domain/artifact"
)

// Object metadata keys. S3 lower-cases user metadata keys.
const (
	metaName      = "name"
	metaChecksum  = "checksum"
	metaCreatedAt = "created-at"
	metaPrefix    = "x-"
)

// Config configures the S3 artifact store.
type Config struct {
	Bucket          string
	Prefix          string
	Region          string // default us-east-1
	AccessKeyID     string // empty uses the default credential chain
	SecretAccessKey string
	SessionToken    string
	Endpoint        string // S3-compatible endpoint such as MinIO
}

// ArtifactStore keeps each artifact under <prefix>/<id>.
type ArtifactStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewArtifactStore builds an S3 client from cfg.
func NewArtifactStore(ctx context.Context, cfg Config) (*ArtifactStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", artifact.ErrStoreFailed)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
			// Most S3-compatible stores reject the default CRC trailers.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
	})
	return NewArtifactStoreFromClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewArtifactStoreFromClient wraps an existing client.
func NewArtifactStoreFromClient(client *s3.Client, bucket, prefix string) *ArtifactStore {
	return &ArtifactStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *ArtifactStore) key(id string) string {
	if s.prefix == "" {
		return id
	}
	return path.Join(s.prefix, id)
}

// Store uploads the content of r. Charts are small, so the body is buffered
// to compute the checksum before upload.
func (s *ArtifactStore) Store(ctx context.Context, r io.Reader, opts artifact.StoreOptions) (artifact.Ref, error) {
	ref := artifact.NewRefFor(opts)

	data, err := io.ReadAll(r)
	if err != nil {
		return artifact.Ref{}, errors.Join(artifact.ErrStoreFailed, err)
	}
	sum := sha256.Sum256(data)
	ref.Size = int64(len(data))
	ref.Checksum = hex.EncodeToString(sum[:])

	meta := map[string]string{
		metaName:      ref.Name,
		metaChecksum:  ref.Checksum,
		metaCreatedAt: strconv.FormatInt(ref.CreatedAt.UnixNano(), 10),
	}
	for k, v := range ref.Metadata {
		meta[metaPrefix+k] = v
	}

	key := s.key(ref.ID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(ref.Size),
		ContentType:   aws.String(ref.ContentType),
		Metadata:      meta,
	})
	if err != nil {
		return artifact.Ref{}, errors.Join(artifact.ErrStoreFailed, err)
	}

	ref.Location = "s3://" + s.bucket + "/" + key
	return ref, nil
}

// Retrieve opens the object for ref. The caller closes the reader.
func (s *ArtifactStore) Retrieve(ctx context.Context, ref artifact.Ref) (io.ReadCloser, error) {
	if !ref.IsValid() {
		return nil, artifact.ErrInvalidRef
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(ref.ID)),
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return out.Body, nil
}

// Stat returns the stored reference for id from the object metadata.
func (s *ArtifactStore) Stat(ctx context.Context, id string) (artifact.Ref, error) {
	ref := artifact.Ref{ID: id}
	if !ref.IsValid() {
		return artifact.Ref{}, artifact.ErrInvalidRef
	}
	key := s.key(id)
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return artifact.Ref{}, wrapError(err)
	}

	ref.ContentType = aws.ToString(out.ContentType)
	ref.Size = aws.ToInt64(out.ContentLength)
	ref.Location = "s3://" + s.bucket + "/" + key
	for k, v := range out.Metadata {
		switch k {
		case metaName:
			ref.Name = v
		case metaChecksum:
			ref.Checksum = v
		case metaCreatedAt:
			if ns, err := strconv.ParseInt(v, 10, 64); err == nil {
				ref.CreatedAt = time.Unix(0, ns).UTC()
			}
		default:
			if name, ok := strings.CutPrefix(k, metaPrefix); ok && name != "" {
				if ref.Metadata == nil {
					ref.Metadata = make(map[string]string)
				}
				ref.Metadata[name] = v
			}
		}
	}
	return ref, nil
}

// Delete removes the object for ref.
func (s *ArtifactStore) Delete(ctx context.Context, ref artifact.Ref) error {
	if _, err := s.Stat(ctx, ref.ID); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(ref.ID)),
	})
	if err != nil {
		return wrapError(err)
	}
	return nil
}

// Exists reports whether an object for ref exists.
func (s *ArtifactStore) Exists(ctx context.Context, ref artifact.Ref) (bool, error) {
	_, err := s.Stat(ctx, ref.ID)
	if errors.Is(err, artifact.ErrArtifactNotFound) {
		return false, nil
	}
	return err == nil, err
}

func wrapError(err error) error {
	var re *awshttp.ResponseError
	if errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound {
		return errors.Join(artifact.ErrArtifactNotFound, err)
	}
	return err
}

var _ artifact.Store = (*ArtifactStore)(nil)
