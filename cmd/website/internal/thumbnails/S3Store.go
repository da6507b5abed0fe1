package thumbnails

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/adampresley/adamgokit/s3"
	"github.com/adampresley/adamgokit/s3/createbucketoptions"
	"github.com/adampresley/adamgokit/s3/listoptions"
	"github.com/adampresley/adamgokit/slices"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3StoreConfig struct {
	Bucket   string
	Folder   string
	Region   string
	S3Client s3.S3Client
}

/*
S3Store keeps thumbnails in a bucket so they survive restarts and can be
shared between instances.
*/
type S3Store struct {
	bucket   string
	folder   string
	s3Client s3.S3Client
}

func NewS3Store(config S3StoreConfig) (S3Store, error) {
	result := S3Store{
		bucket:   config.Bucket,
		folder:   config.Folder,
		s3Client: config.S3Client,
	}

	if err := result.ensureBucketExists(config.Region); err != nil {
		return result, err
	}

	return result, nil
}

func (s S3Store) Get(name string) (Thumbnail, bool, error) {
	var (
		err      error
		stat     *s3.ObjectMetadata
		object   s3.GetObjectResponse
		contents []byte
	)

	key := s.key(name)

	if stat, err = s.s3Client.StatObject(s.bucket, key); err != nil {
		return Thumbnail{}, false, fmt.Errorf("error retrieving metadata for thumbnail '%s': %w", key, err)
	}

	if stat == nil {
		return Thumbnail{}, false, nil
	}

	if object, err = s.s3Client.Get(s.bucket, key); err != nil {
		return Thumbnail{}, false, fmt.Errorf("error retrieving thumbnail '%s': %w", key, err)
	}

	defer object.Body.Close()

	if contents, err = io.ReadAll(object.Body); err != nil {
		return Thumbnail{}, false, fmt.Errorf("error reading thumbnail '%s': %w", key, err)
	}

	return Thumbnail{Data: contents, ModifiedAt: stat.LastModified}, true, nil
}

func (s S3Store) Put(name string, data []byte) error {
	key := s.key(name)

	if _, err := s.s3Client.Put(s.bucket, key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("error uploading thumbnail to S3: %w", err)
	}

	slog.Debug("stored thumbnail", "bucket", s.bucket, "key", key, "bytes", len(data))
	return nil
}

func (s S3Store) Stat(name string) (time.Time, bool, error) {
	stat, err := s.s3Client.StatObject(s.bucket, s.key(name))

	if err != nil {
		return time.Time{}, false, err
	}

	if stat == nil {
		return time.Time{}, false, nil
	}

	return stat.LastModified, true, nil
}

/*
Prune deletes thumbnails in the folder whose picture is not in keep.
*/
func (s S3Store) Prune(keep []string) (int, error) {
	var (
		err      error
		response s3.ListResponse
	)

	response, err = s.s3Client.List(
		s.bucket,
		s.folder,
		listoptions.WithGetAll(),
		listoptions.WithFilter(func(obj types.Object) bool {
			return !slices.IsInSlice(filepath.Base(aws.ToString(obj.Key)), keep)
		}),
	)

	if err != nil {
		return 0, fmt.Errorf("error listing thumbnails: %w", err)
	}

	if len(response.Objects) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(response.Objects))

	for _, obj := range response.Objects {
		keys = append(keys, obj.Key)
	}

	if _, err = s.s3Client.Delete(s.bucket, keys); err != nil {
		return 0, fmt.Errorf("error deleting orphaned thumbnails: %w", err)
	}

	return len(keys), nil
}

func (s S3Store) key(name string) string {
	return filepath.Join(s.folder, filepath.Base(name))
}

func (s S3Store) ensureBucketExists(region string) error {
	var (
		err    error
		exists bool
	)

	if exists, err = s.s3Client.BucketExists(s.bucket); err != nil {
		return fmt.Errorf("error ensuring bucket '%s' exists: %w", s.bucket, err)
	}

	if exists {
		return nil
	}

	slog.Info("creating bucket", "bucketName", s.bucket)

	if err = s.s3Client.CreateBucket(s.bucket, createbucketoptions.WithRegion(region)); err != nil {
		return fmt.Errorf("error creating bucket '%s': %w", s.bucket, err)
	}

	return nil
}
