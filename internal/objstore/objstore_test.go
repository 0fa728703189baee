package objstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/flipi-app/flipi/internal/db"
	"github.com/flipi-app/flipi/internal/store"
)

func TestNewKey(t *testing.T) {
	a := NewKey("items/3/")
	b := NewKey("items/3")
	if !strings.HasPrefix(a, "items/3/") || !strings.HasSuffix(a, ".jpg") {
		t.Errorf("unexpected key %q", a)
	}
	if a == b {
		t.Error("expected unique keys")
	}
}

func TestDBStorePut(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := &DBStore{DB: database, BaseURL: "/api/images/"}

	url, err := s.Put(ctx, "items/1/a.jpg", []byte{0xff, 0xd8}, "image/jpeg")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "/api/images/items/1/a.jpg" {
		t.Errorf("unexpected url %q", url)
	}

	data, mime, err := store.GetImage(ctx, database, "items/1/a.jpg")
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if len(data) != 2 || mime != "image/jpeg" {
		t.Errorf("unexpected stored image: %v %q", data, mime)
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3StorePut(t *testing.T) {
	fake := &fakeS3{}
	s := &S3Store{client: fake, bucket: "flipi-images", publicURL: "https://cdn.example.com"}

	url, err := s.Put(context.Background(), "avatars/9/x.jpg", []byte("jpeg"), "image/jpeg")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "https://cdn.example.com/avatars/9/x.jpg" {
		t.Errorf("unexpected url %q", url)
	}
	if aws.ToString(fake.input.Bucket) != "flipi-images" || aws.ToString(fake.input.Key) != "avatars/9/x.jpg" {
		t.Errorf("unexpected input: %+v", fake.input)
	}
	if aws.ToString(fake.input.ContentType) != "image/jpeg" || string(fake.body) != "jpeg" {
		t.Errorf("unexpected body or content type")
	}
}

func TestS3StorePutError(t *testing.T) {
	s := &S3Store{client: &fakeS3{err: errors.New("access denied")}, bucket: "b", publicURL: "https://x"}
	if _, err := s.Put(context.Background(), "k", nil, "image/jpeg"); err == nil {
		t.Fatal("expected error")
	}
}
