package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/fstool/internal/logger"
	"github.com/marmos91/fstool/pkg/volume"
)

// file is an open handle onto one object.
//
// staged holds the object from offset flushed onward once a writable
// handle has loaded it (or created it); from then on reads, writes and
// Size are served from it and Close uploads it if dirty. The position only
// moves forward, so whole parts behind it are streamed to a multipart
// upload as they fill and staged stays around one part in size.
type file struct {
	volume.Handle
	fs  *FileSystem
	key string

	size   uint64
	staged []byte
	dirty  bool

	// flushed is the number of leading bytes already sent as parts of mp.
	flushed   uint64
	mp        *multipartUpload
	uploadErr error
}

func (f *file) Read(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := f.CheckUsable("read"); err != nil {
		return 0, err
	}

	if f.staged != nil {
		n := 0
		if pos := f.Pos() - f.flushed; pos < uint64(len(f.staged)) {
			n = copy(p, f.staged[pos:])
		}
		f.Advance(n)
		return n, nil
	}

	offset := f.Pos()
	if offset >= f.size || len(p) == 0 {
		return 0, nil
	}
	n := min(uint64(len(p)), f.size-offset)

	out, err := f.fs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.fs.bucket),
		Key:    aws.String(f.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+n-1)),
	})
	if err != nil {
		return 0, mapError("read", f.FileName(), err)
	}
	defer func() { _ = out.Body.Close() }()

	read, err := io.ReadFull(out.Body, p[:n])
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, mapError("read", f.FileName(), err)
	}

	f.Advance(read)
	return read, nil
}

func (f *file) Write(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := f.CheckWritable("write"); err != nil {
		return 0, err
	}
	if f.uploadErr != nil {
		return 0, f.uploadErr
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := f.stage(ctx); err != nil {
		return 0, err
	}

	start := f.Pos() - f.flushed
	end := start + uint64(len(p))
	if end > uint64(len(f.staged)) {
		grown := make([]byte, end)
		copy(grown, f.staged)
		f.staged = grown
	}
	copy(f.staged[start:], p)

	f.dirty = true
	f.Advance(len(p))

	if err := f.flushParts(ctx); err != nil {
		return len(p), err
	}
	return len(p), nil
}

// flushParts uploads every whole part that lies behind the position,
// starting the multipart upload on first use. On failure the upload is
// aborted and the handle keeps reporting the error.
func (f *file) flushParts(ctx context.Context) error {
	partSize := uint64(f.fs.partSize)

	for f.Pos()-f.flushed >= partSize {
		if f.mp == nil {
			mp, err := f.fs.startUpload(ctx, f.key)
			if err != nil {
				return f.failUpload(ctx, err)
			}
			f.mp = mp
		}

		if err := f.fs.uploadPart(ctx, f.key, f.mp, f.staged[:partSize]); err != nil {
			return f.failUpload(ctx, err)
		}
		f.staged = bytes.Clone(f.staged[partSize:])
		f.flushed += partSize
	}
	return nil
}

// failUpload abandons the in-progress upload and records err for the rest
// of the handle's life.
func (f *file) failUpload(ctx context.Context, err error) error {
	if f.mp != nil {
		f.fs.abortUpload(ctx, f.key, f.mp)
		f.mp = nil
	}
	f.staged, f.dirty = nil, false
	f.uploadErr = mapError("write", f.FileName(), err)
	return f.uploadErr
}

// stage loads the current object into memory before the first write.
func (f *file) stage(ctx context.Context) error {
	if f.staged != nil {
		return nil
	}
	if f.size == 0 {
		f.staged = []byte{}
		return nil
	}

	out, err := f.fs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.fs.bucket),
		Key:    aws.String(f.key),
	})
	if err != nil {
		return mapError("write", f.FileName(), err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return mapError("write", f.FileName(), err)
	}
	f.staged = data
	return nil
}

func (f *file) Size(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := f.CheckUsable("size"); err != nil {
		return 0, err
	}
	if f.staged != nil {
		return f.flushed + uint64(len(f.staged)), nil
	}
	return f.size, nil
}

// Delete removes the object. Staged writes are discarded and the handle is
// consumed even when the delete is refused.
func (f *file) Delete(ctx context.Context) error {
	if err := f.CheckUsable("delete"); err != nil {
		return err
	}
	f.Release()
	f.staged, f.dirty = nil, false
	if f.mp != nil {
		f.fs.abortUpload(ctx, f.key, f.mp)
		f.mp = nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if !f.Mode().Writable() {
		return volume.NewError(volume.StatusAccessDenied, "delete", f.FileName(), nil)
	}

	_, err := f.fs.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(f.fs.bucket),
		Key:    aws.String(f.key),
	})
	return mapError("delete", f.FileName(), err)
}

// Close uploads staged writes and releases the handle. The handle is
// released even when the upload fails.
func (f *file) Close() error {
	if !f.Release() {
		return volume.NewError(volume.StatusInvalidParameter, "close", f.FileName(), nil)
	}
	if f.uploadErr != nil {
		return f.uploadErr
	}
	if !f.dirty {
		return nil
	}

	ctx := context.Background()
	data, mp := f.staged, f.mp
	f.staged, f.dirty, f.mp = nil, false, nil

	if mp == nil {
		return mapError("close", f.FileName(), f.fs.upload(ctx, f.key, data))
	}

	if len(data) > 0 {
		if err := f.fs.uploadPart(ctx, f.key, mp, data); err != nil {
			f.fs.abortUpload(ctx, f.key, mp)
			return mapError("close", f.FileName(), err)
		}
	}
	if err := f.fs.completeUpload(ctx, f.key, mp); err != nil {
		f.fs.abortUpload(ctx, f.key, mp)
		return mapError("close", f.FileName(), err)
	}
	return nil
}

// ============================================================================
// Upload
// ============================================================================

// multipartUpload tracks an in-progress multipart upload.
type multipartUpload struct {
	id    *string
	parts []types.CompletedPart
}

// upload stores data as the object at key, switching to a multipart upload
// when it exceeds one part.
func (s *FileSystem) upload(ctx context.Context, key string, data []byte) error {
	if int64(len(data)) <= s.partSize {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		return err
	}

	mp, err := s.startUpload(ctx, key)
	if err != nil {
		return err
	}

	for offset := int64(0); offset < int64(len(data)); {
		end := min(offset+s.partSize, int64(len(data)))
		if err := s.uploadPart(ctx, key, mp, data[offset:end]); err != nil {
			s.abortUpload(ctx, key, mp)
			return err
		}
		offset = end
	}

	if err := s.completeUpload(ctx, key, mp); err != nil {
		s.abortUpload(ctx, key, mp)
		return err
	}
	return nil
}

func (s *FileSystem) startUpload(ctx context.Context, key string) (*multipartUpload, error) {
	created, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart upload: %w", err)
	}
	return &multipartUpload{id: created.UploadId}, nil
}

// uploadPart sends data as the next part of mp.
func (s *FileSystem) uploadPart(ctx context.Context, key string, mp *multipartUpload, data []byte) error {
	number := int32(len(mp.parts) + 1)

	out, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(key),
		UploadId:   mp.id,
		PartNumber: aws.Int32(number),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload part %d: %w", number, err)
	}

	mp.parts = append(mp.parts, types.CompletedPart{
		ETag:       out.ETag,
		PartNumber: aws.Int32(number),
	})
	return nil
}

func (s *FileSystem) completeUpload(ctx context.Context, key string, mp *multipartUpload) error {
	_, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		UploadId:        mp.id,
		MultipartUpload: &types.CompletedMultipartUpload{Parts: mp.parts},
	})
	if err != nil {
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	logger.Debug("s3 volume: uploaded %s in %d parts", key, len(mp.parts))
	return nil
}

func (s *FileSystem) abortUpload(ctx context.Context, key string, mp *multipartUpload) {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: mp.id,
	})
	if err != nil {
		logger.Warn("s3 volume: failed to abort upload %s: %v", aws.ToString(mp.id), err)
	}
}
