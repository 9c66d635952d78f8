package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)] = body
	f.puts = append(f.puts, params)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_PutUsesDefaults(t *testing.T) {
	client := newFakeS3()
	store := NewS3Store(client, "", "")

	require.NoError(t, store.PutObject(context.Background(), "bucket", "a/b.tif", []byte("tiff")))
	require.Len(t, client.puts, 1)

	put := client.puts[0]
	assert.Equal(t, types.StorageClassGlacierIr, put.StorageClass)
	assert.Equal(t, "image/tif", aws.ToString(put.ContentType))
	assert.EqualValues(t, 4, aws.ToInt64(put.ContentLength))
}

func TestS3Store_PutUsesConfiguredClass(t *testing.T) {
	client := newFakeS3()
	store := NewS3Store(client, "STANDARD", "image/tiff")

	require.NoError(t, store.PutObject(context.Background(), "bucket", "k", []byte("x")))
	assert.Equal(t, types.StorageClassStandard, client.puts[0].StorageClass)
	assert.Equal(t, "image/tiff", aws.ToString(client.puts[0].ContentType))
}

func TestS3Store_GetObject(t *testing.T) {
	client := newFakeS3()
	client.objects["bucket/key.tif"] = []byte("payload")
	store := NewS3Store(client, "", "")

	data, err := store.GetObject(context.Background(), "bucket", "key.tif")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	_, err = store.GetObject(context.Background(), "bucket", "missing.tif")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestS3Store_PutError(t *testing.T) {
	client := newFakeS3()
	client.putErr = errors.New("throttled")
	store := NewS3Store(client, "", "")

	err := store.PutObject(context.Background(), "bucket", "key", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
