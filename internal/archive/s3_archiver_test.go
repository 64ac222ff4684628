package archive

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePutter struct {
	inputs []*s3.PutObjectInput
	err    error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &s3.PutObjectOutput{}, nil
}

func TestStore(t *testing.T) {
	putter := &fakePutter{}
	archiver := &S3Archiver{client: putter, bucket: "frames", log: zap.NewNop()}

	data := []byte("jpeg-bytes")
	require.NoError(t, archiver.Store(context.Background(), "memories/resized_abc.jpg", data))

	require.Len(t, putter.inputs, 1)
	in := putter.inputs[0]
	assert.Equal(t, "frames", *in.Bucket)
	assert.Equal(t, "memories/resized_abc.jpg", *in.Key)
	assert.Equal(t, "image/jpeg", *in.ContentType)
	assert.Equal(t, int64(len(data)), *in.ContentLength)

	body, err := io.ReadAll(in.Body)
	require.NoError(t, err)
	assert.Equal(t, data, body)
}

func TestStoreFailure(t *testing.T) {
	putter := &fakePutter{err: errors.New("access denied")}
	archiver := &S3Archiver{client: putter, bucket: "frames", log: zap.NewNop()}

	err := archiver.Store(context.Background(), "k", []byte("x"))
	require.Error(t, err)
}
