package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type fakeS3 struct {
	objects map[string][]byte
}

type fakeAPIError struct{ code string }

func (e *fakeAPIError) Error() string                 { return e.code }
func (e *fakeAPIError) ErrorCode() string             { return e.code }
func (e *fakeAPIError) ErrorMessage() string          { return e.code }
func (e *fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &fakeAPIError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(params.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
		}
	}
	return out, nil
}

func (f *fakeS3) CopyObject(_ context.Context, params *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	src := strings.TrimPrefix(aws.ToString(params.CopySource), aws.ToString(params.Bucket)+"/")
	data, ok := f.objects[src]
	if !ok {
		return nil, &fakeAPIError{code: "NoSuchKey"}
	}
	f.objects[aws.ToString(params.Key)] = data
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreDownload(t *testing.T) {
	store := NewS3(&fakeS3{objects: map[string][]byte{"songs/a.wav": []byte("payload")}}, "bucket")

	dest := filepath.Join(t.TempDir(), "a.wav")
	if err := store.Download(context.Background(), "songs/a.wav", dest); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read download: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("downloaded content = %q", data)
	}

	if err := store.Download(context.Background(), "songs/missing.wav", dest); err == nil {
		t.Error("expected error for missing object")
	}
}

func TestS3StoreListSorted(t *testing.T) {
	store := NewS3(&fakeS3{objects: map[string][]byte{
		"songs/b.wav": nil,
		"songs/a.wav": nil,
		"other/c.wav": nil,
	}}, "bucket")

	keys, err := store.List(context.Background(), "songs/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"songs/a.wav", "songs/b.wav"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("List = %v, want %v", keys, want)
	}
}

func TestS3StoreCopyDelete(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"songs/a.wav": []byte("a")}}
	store := NewS3(fake, "bucket")

	if err := store.Copy(context.Background(), "songs/a.wav", "songs/b.wav"); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if _, ok := fake.objects["songs/b.wav"]; !ok {
		t.Error("copy did not create destination object")
	}

	if err := store.Delete(context.Background(), "songs/a.wav"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(context.Background(), "songs/a.wav"); err != nil {
		t.Errorf("repeat Delete failed: %v", err)
	}
}
