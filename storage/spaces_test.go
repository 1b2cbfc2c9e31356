package storage

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestObjectKey(t *testing.T) {
	if got := ObjectKey("dQw4w9WgXcQ", "req-1"); got != "audio/dQw4w9WgXcQ/req-1.mp3" {
		t.Errorf("unexpected key: %s", got)
	}
}

func TestArchiveAudio(t *testing.T) {
	putter := &fakePutter{}
	archive := &SpacesArchive{client: putter, bucket: "mp3s"}

	key, err := archive.ArchiveAudio(context.Background(), "abc", "req-1", []byte("mp3 bytes"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if key != "audio/abc/req-1.mp3" {
		t.Errorf("unexpected key: %s", key)
	}
	if aws.ToString(putter.input.Bucket) != "mp3s" {
		t.Errorf("unexpected bucket: %s", aws.ToString(putter.input.Bucket))
	}
	if aws.ToString(putter.input.ContentType) != "audio/mpeg" {
		t.Errorf("unexpected content type: %s", aws.ToString(putter.input.ContentType))
	}
	if string(putter.body) != "mp3 bytes" {
		t.Errorf("unexpected body: %q", putter.body)
	}
}

func TestArchiveAudio_Error(t *testing.T) {
	archive := &SpacesArchive{client: &fakePutter{err: fmt.Errorf("access denied")}, bucket: "mp3s"}

	if _, err := archive.ArchiveAudio(context.Background(), "abc", "req-1", []byte("x")); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestNewSpacesArchive(t *testing.T) {
	archive, err := NewSpacesArchive(context.Background(), SpacesConfig{
		AccessKey: "key",
		SecretKey: "secret",
		Region:    "nyc3",
		Endpoint:  "https://nyc3.digitaloceanspaces.com",
		Bucket:    "mp3s",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if archive.bucket != "mp3s" {
		t.Errorf("unexpected bucket: %s", archive.bucket)
	}
}
