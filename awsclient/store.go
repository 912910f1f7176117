package awsclient

import (
	"context"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/rs/zerolog"
)

// BundleStore is the S3-backed revision bundle store.
type BundleStore struct {
	api    s3iface.S3API
	logger zerolog.Logger
}

// NewBundleStore creates a bundle store over the given S3 client.
func NewBundleStore(api s3iface.S3API, logger zerolog.Logger) *BundleStore {
	return &BundleStore{api: api, logger: logger}
}

// Head reports whether the object exists. A missing object is (false, nil);
// any other failure is returned as-is.
func (b *BundleStore) Head(ctx context.Context, bucket, key string) (bool, error) {
	b.logger.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Msg("Probing revision object")

	_, err := b.api.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// HeadObject reports a missing key as a bare 404 rather than a
		// NoSuchKey error document.
		if reqErr, ok := err.(awserr.RequestFailure); ok && reqErr.StatusCode() == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Put uploads the bundle body to the bucket at key, applying the canned
// ACL when one is given.
func (b *BundleStore) Put(ctx context.Context, bucket, key string, body io.ReadSeeker, acl string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if acl != "" {
		input.ACL = aws.String(acl)
	}

	_, err := b.api.PutObjectWithContext(ctx, input)
	if err != nil {
		b.logger.Error().Err(err).
			Str("bucket", bucket).
			Str("key", key).
			Msg("Failed to upload revision bundle")
		return err
	}

	b.logger.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Str("acl", acl).
		Msg("Uploaded revision bundle")
	return nil
}
