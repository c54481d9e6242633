package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"shield-go/internal/model"
	"shield-go/internal/shield"
)

// s3RequestTimeout bounds every call the S3 vault makes.
const s3RequestTimeout = 30 * time.Second

// Environment variables holding static S3 credentials. When unset the
// default AWS credential chain is used.
const (
	envS3AccessKeyID     = "SHIELD_S3_ACCESS_KEY_ID"
	envS3SecretAccessKey = "SHIELD_S3_SECRET_ACCESS_KEY"
)

// S3Options configures an S3Vault.
type S3Options struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// S3Vault stores records and thumbnails as objects in an S3 bucket:
//
//	<prefix>/records/<asset id>.json
//	<prefix>/thumbnails/<ref>
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Vault creates a vault backed by the given bucket.
func NewS3Vault(name string, opts S3Options) (*S3Vault, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s3RequestTimeout)
	defer cancel()

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if key, secret := os.Getenv(envS3AccessKeyID), os.Getenv(envS3SecretAccessKey); key != "" && secret != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	return &S3Vault{
		name:     name,
		bucket:   opts.Bucket,
		prefix:   strings.Trim(opts.Prefix, "/"),
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// PutRecord uploads the record for asset.ID.
func (v *S3Vault) PutRecord(asset *model.ProtectedAsset) error {
	if err := validKey(asset.ID); err != nil {
		return err
	}
	data, err := encodeRecord(asset)
	if err != nil {
		return err
	}
	return v.put(v.recordKey(asset.ID), bytes.NewReader(data))
}

// GetRecord returns the record for id, or nil if it does not exist.
func (v *S3Vault) GetRecord(id string) (*model.ProtectedAsset, error) {
	if err := validKey(id); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	found, err := v.get(v.recordKey(id), &buf)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return decodeRecord(buf.Bytes())
}

// ListRecords downloads every record under the records prefix.
func (v *S3Vault) ListRecords() ([]*model.ProtectedAsset, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s3RequestTimeout)
	defer cancel()

	var keys []string
	pager := s3.NewListObjectsV2Paginator(v.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(v.bucket),
		Prefix: aws.String(v.objectKey("records") + "/"),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing records: %w", err)
		}
		for _, obj := range page.Contents {
			if key := aws.ToString(obj.Key); strings.HasSuffix(key, recordExt) {
				keys = append(keys, key)
			}
		}
	}

	assets := make([]*model.ProtectedAsset, 0, len(keys))
	for _, key := range keys {
		var buf bytes.Buffer
		found, err := v.get(key, &buf)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		asset, err := decodeRecord(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", key, err)
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// DeleteRecord removes the record object for id.
func (v *S3Vault) DeleteRecord(id string) error {
	if err := validKey(id); err != nil {
		return err
	}
	return v.delete(v.recordKey(id))
}

// PutThumbnail uploads an encrypted thumbnail under ref.
func (v *S3Vault) PutThumbnail(ref string, r io.Reader, size int64) error {
	if err := validKey(ref); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read thumbnail: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	return v.put(v.thumbnailKey(ref), bytes.NewReader(data))
}

// GetThumbnail writes the thumbnail stored under ref to w.
func (v *S3Vault) GetThumbnail(ref string, w io.Writer) error {
	if err := validKey(ref); err != nil {
		return err
	}
	found, err := v.get(v.thumbnailKey(ref), w)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("thumbnail not found: %s", ref)
	}
	return nil
}

// DeleteThumbnail removes the thumbnail object stored under ref.
func (v *S3Vault) DeleteThumbnail(ref string) error {
	if err := validKey(ref); err != nil {
		return err
	}
	return v.delete(v.thumbnailKey(ref))
}

// ValidateSetup checks that the bucket exists and is reachable with the
// configured credentials.
func (v *S3Vault) ValidateSetup() error {
	ctx, cancel := context.WithTimeout(context.Background(), s3RequestTimeout)
	defer cancel()

	if _, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(v.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

func (v *S3Vault) objectKey(parts ...string) string {
	if v.prefix != "" {
		parts = append([]string{v.prefix}, parts...)
	}
	return path.Join(parts...)
}

func (v *S3Vault) recordKey(id string) string {
	return v.objectKey("records", id+recordExt)
}

func (v *S3Vault) thumbnailKey(ref string) string {
	return v.objectKey("thumbnails", ref)
}

func (v *S3Vault) put(key string, body io.Reader) error {
	ctx, cancel := context.WithTimeout(context.Background(), s3RequestTimeout)
	defer cancel()

	_, err := v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// get copies the object to w. It reports false when the object does not exist.
func (v *S3Vault) get(key string, w io.Writer) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s3RequestTimeout)
	defer cancel()

	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return false, nil
		}
		return false, fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	return true, nil
}

func (v *S3Vault) delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s3RequestTimeout)
	defer cancel()

	_, err := v.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Compile-time check that S3Vault implements shield.Vault interface
var _ shield.Vault = (*S3Vault)(nil)
