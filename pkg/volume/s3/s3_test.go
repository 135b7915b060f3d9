package s3

import (
	"bytes"
	"context"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/marmos91/fstool/pkg/volume"
	voltesting "github.com/marmos91/fstool/pkg/volume/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBucket = "fstool-test"
	rwc        = volume.ModeRead | volume.ModeWrite | volume.ModeCreate
)

func newTestVolume(t *testing.T, client *fakeS3) volume.Directory {
	t.Helper()

	fsys, err := New(context.Background(), client, Config{Bucket: testBucket, KeyPrefix: "vol/", PartSize: minPartSize})
	require.NoError(t, err)

	root, err := fsys.OpenVolume(context.Background())
	require.NoError(t, err)
	return root
}

// TestS3Volume runs the complete volume test suite against an in-process
// bucket.
func TestS3Volume(t *testing.T) {
	suite := &voltesting.VolumeTestSuite{
		NewFileSystem: func(t *testing.T) volume.FileSystem {
			fsys, err := New(context.Background(), newFakeS3(testBucket), Config{Bucket: testBucket})
			require.NoError(t, err)
			return fsys
		},
	}

	suite.Run(t)
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3(testBucket)

	_, err := New(ctx, nil, Config{Bucket: testBucket})
	assert.Error(t, err)

	_, err = New(ctx, client, Config{})
	assert.ErrorContains(t, err, "bucket is required")

	_, err = New(ctx, client, Config{Bucket: testBucket, PartSize: 1024})
	assert.ErrorContains(t, err, "at least 5MB")

	_, err = New(ctx, client, Config{Bucket: "other"})
	assert.ErrorContains(t, err, "failed to access bucket")
}

func TestS3Volume_KeyPrefix(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3(testBucket)
	root := newTestVolume(t, client)

	f, err := root.Open(ctx, "note.txt", rwc)
	require.NoError(t, err)
	_, err = f.Write(ctx, []byte("prefixed"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, ok := client.object("vol/note.txt")
	require.True(t, ok)
	assert.Equal(t, "prefixed", string(data))
}

func TestS3Volume_MultipartUpload(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3(testBucket)
	root := newTestVolume(t, client)

	payload := bytes.Repeat([]byte("0123456789abcdef"), (2*minPartSize+1000)/16)

	f, err := root.Open(ctx, "large.bin", rwc)
	require.NoError(t, err)
	_, err = f.Write(ctx, payload)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, 1, client.multipart)
	data, ok := client.object("vol/large.bin")
	require.True(t, ok)
	assert.Equal(t, payload, data)
}

func TestS3Volume_MultipartFailureAborts(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3(testBucket)
	client.failPart = 2
	root := newTestVolume(t, client)

	f, err := root.Open(ctx, "broken.bin", rwc)
	require.NoError(t, err)
	_, err = f.Write(ctx, make([]byte, 2*minPartSize))
	assert.ErrorIs(t, err, volume.StatusDeviceError)
	assert.Equal(t, 1, client.aborted)

	// The handle keeps failing and nothing is completed.
	_, err = f.Write(ctx, []byte("more"))
	assert.ErrorIs(t, err, volume.StatusDeviceError)
	assert.ErrorIs(t, f.Close(), volume.StatusDeviceError)
	assert.Equal(t, 0, client.multipart)

	data, ok := client.object("vol/broken.bin")
	require.True(t, ok)
	assert.Empty(t, data)
}

func TestS3Volume_StreamsPartsWhileWriting(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3(testBucket)
	root := newTestVolume(t, client)

	const chunk = 4096
	payload := bytes.Repeat([]byte("fstool-s3-stream"), (2*minPartSize+chunk)/16)

	f, err := root.Open(ctx, "stream.bin", rwc)
	require.NoError(t, err)

	for offset := 0; offset < len(payload); offset += chunk {
		end := min(offset+chunk, len(payload))
		n, err := f.Write(ctx, payload[offset:end])
		require.NoError(t, err)
		require.Equal(t, end-offset, n)
	}

	// Two whole parts were sent during the writes; only the tail is held.
	assert.Equal(t, 2, client.pendingParts())
	assert.Less(t, len(f.(*file).staged), minPartSize)

	size, err := f.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(payload)), size)

	require.NoError(t, f.Close())
	assert.Equal(t, 1, client.multipart)
	assert.Equal(t, 0, client.pendingParts())

	data, ok := client.object("vol/stream.bin")
	require.True(t, ok)
	assert.Equal(t, payload, data)
}

func TestS3Volume_DeleteAbortsStreamedUpload(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3(testBucket)
	root := newTestVolume(t, client)

	f, err := root.Open(ctx, "dropped.bin", rwc)
	require.NoError(t, err)
	_, err = f.Write(ctx, make([]byte, minPartSize+10))
	require.NoError(t, err)
	require.Equal(t, 1, client.pendingParts())

	require.NoError(t, f.Delete(ctx))
	assert.Equal(t, 1, client.aborted)
	assert.Equal(t, 0, client.pendingParts())

	_, ok := client.object("vol/dropped.bin")
	assert.False(t, ok)
}

func TestS3Volume_UnmodifiedHandleDoesNotUpload(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3(testBucket)
	root := newTestVolume(t, client)

	f, err := root.Open(ctx, "quiet.txt", rwc)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	puts := client.puts

	f, err = root.Open(ctx, "quiet.txt", volume.ModeRead|volume.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, puts, client.puts)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		code string
		want volume.Status
	}{
		{"NoSuchKey", volume.StatusNotFound},
		{"AccessDenied", volume.StatusAccessDenied},
		{"NoSuchBucket", volume.StatusNotReady},
		{"EntityTooLarge", volume.StatusVolumeFull},
		{"InternalError", volume.StatusDeviceError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := mapError("read", "x", &smithy.GenericAPIError{Code: tt.code})
			assert.Equal(t, tt.want, volume.StatusOf(err))
		})
	}

	assert.NoError(t, mapError("read", "x", nil))
	assert.ErrorIs(t, mapError("read", "x", context.Canceled), context.Canceled)
}
