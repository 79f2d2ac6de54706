package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubAWS(t *testing.T) {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	origPut, origDel := putObject, deleteObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew
		putObject, deleteObject = origPut, origDel
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
}

func newTestStore(t *testing.T) *S3Store {
	t.Helper()
	stubAWS(t)
	store, err := NewS3Store(context.Background(), Config{
		Region:    "us-east-1",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Endpoint:  "http://127.0.0.1:9000",
		Bucket:    "chat-media",
		KeyPrefix: "/images/",
	})
	require.NoError(t, err)
	return store
}

func TestNewS3Store_AppliesOptions(t *testing.T) {
	stubAWS(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-west-1", lo.Region)
		assert.NotNil(t, lo.Credentials, "static credentials expected")
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	_, err := NewS3Store(context.Background(), Config{
		Region: "eu-west-1", AccessKey: "a", SecretKey: "b",
		Endpoint: "http://minio:9000", Bucket: "media",
	})
	require.NoError(t, err)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://minio:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Store_Errors(t *testing.T) {
	stubAWS(t)

	_, err := NewS3Store(context.Background(), Config{Region: "us-east-1"})
	assert.Error(t, err, "bucket is required")

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}
	_, err = NewS3Store(context.Background(), Config{Bucket: "b"})
	assert.ErrorContains(t, err, "load aws config")
}

func TestS3Store_UploadAndDelete(t *testing.T) {
	store := newTestStore(t)

	var put *s3.PutObjectInput
	var body string
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		put = in
		b, _ := io.ReadAll(in.Body)
		body = string(b)
		return nil
	}

	url, err := store.Upload(context.Background(), []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	require.NotNil(t, put)

	assert.Equal(t, "chat-media", aws.ToString(put.Bucket))
	assert.Equal(t, "image/png", aws.ToString(put.ContentType))
	assert.True(t, strings.HasPrefix(aws.ToString(put.Key), "images/"))
	assert.True(t, strings.HasSuffix(aws.ToString(put.Key), ".png"))
	assert.Equal(t, "png-bytes", body)
	assert.Equal(t, "http://127.0.0.1:9000/chat-media/"+aws.ToString(put.Key), url)

	var deletedKey string
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) error {
		deletedKey = aws.ToString(in.Key)
		return nil
	}
	require.NoError(t, store.Delete(context.Background(), url))
	assert.Equal(t, aws.ToString(put.Key), deletedKey)
}

func TestS3Store_UploadError(t *testing.T) {
	store := newTestStore(t)
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		return errors.New("access denied")
	}

	_, err := store.Upload(context.Background(), []byte("x"), "image/gif")
	assert.ErrorContains(t, err, "access denied")
}

func TestS3Store_DeleteForeignURL(t *testing.T) {
	store := newTestStore(t)
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) error {
		t.Fatal("foreign URLs must not reach S3")
		return nil
	}

	err := store.Delete(context.Background(), "https://res.cloudinary.com/demo/avatar.png")
	assert.ErrorIs(t, err, ErrForeignURL)
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", publicBaseURL(Config{PublicBaseURL: "https://cdn.example.com/"}))
	assert.Equal(t, "http://minio:9000/b", publicBaseURL(Config{Endpoint: "http://minio:9000/", Bucket: "b"}))
	assert.Equal(t, "https://b.s3.us-east-1.amazonaws.com", publicBaseURL(Config{Bucket: "b", Region: "us-east-1"}))
}
