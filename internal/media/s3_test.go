package media

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
	listed  []types.Object
	lastGet string
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastGet = aws.ToString(params.Key)
	body, ok := f.objects[f.lastGet]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{Contents: f.listed}, nil
}

type fakeUploader struct {
	key         string
	contentType string
	body        string
}

func (f *fakeUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.key = aws.ToString(input.Key)
	f.contentType = aws.ToString(input.ContentType)
	data, _ := io.ReadAll(input.Body)
	f.body = string(data)
	return &manager.UploadOutput{}, nil
}

func TestS3StoreAppliesKeyPrefix(t *testing.T) {
	uploaded := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	client := &fakeS3{
		objects: map[string]string{"gallery/kitchen/a.jpg": "bytes"},
		listed: []types.Object{
			{Key: aws.String("gallery/kitchen/a.jpg"), LastModified: aws.Time(uploaded), Size: aws.Int64(5)},
			{Key: aws.String("gallery/albums/")},
		},
	}
	uploader := &fakeUploader{}
	store := &S3Store{client: client, uploader: uploader, bucket: "photos", baseURL: "https://pub.example.com", prefix: "gallery"}

	res, err := store.Put(context.Background(), PutInput{Key: "generated/x.png", ContentType: "image/png", Body: strings.NewReader("png")})
	require.NoError(t, err)
	assert.Equal(t, "gallery/generated/x.png", uploader.key)
	assert.Equal(t, "image/png", uploader.contentType)
	assert.Equal(t, "png", uploader.body)
	assert.Equal(t, "https://pub.example.com/generated/x.png", res.URL)

	data, err := store.Get(context.Background(), "kitchen/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data))
	assert.Equal(t, "gallery/kitchen/a.jpg", client.lastGet)

	objects, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "kitchen/a.jpg", objects[0].Key)
	assert.Equal(t, uploaded, objects[0].Uploaded)
	assert.Equal(t, "albums/", objects[1].Key)
}

func TestS3StoreMapsMissingKey(t *testing.T) {
	store := &S3Store{client: &fakeS3{objects: map[string]string{}}, bucket: "photos"}
	_, err := store.Get(context.Background(), "missing.jpg")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
