package storage

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	puts    map[string][]byte
	deletes []string
	listing []types.Object
}

func newFakeS3() *fakeS3 {
	return &fakeS3{puts: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.puts[aws.ToString(params.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{Contents: f.listing}, nil
}

func TestUploadWritesDocumentAndSidecar(t *testing.T) {
	fake := newFakeS3()
	store := NewStore(fake, "", "", nil)

	key, err := store.Upload(context.Background(), "booking-123", "agreement.pdf",
		strings.NewReader("pdf bytes"), "application/pdf")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if key != "loan-documents/booking-123/agreement.pdf" {
		t.Errorf("key = %q", key)
	}

	if string(fake.puts[key]) != "pdf bytes" {
		t.Error("document body not stored")
	}

	sidecarBody, ok := fake.puts[key+".metadata.json"]
	if !ok {
		t.Fatal("metadata sidecar not written")
	}
	var meta sidecar
	if err := json.Unmarshal(sidecarBody, &meta); err != nil {
		t.Fatalf("sidecar is not valid JSON: %v", err)
	}
	if meta.MetadataAttributes["loanBookingId"] != "booking-123" {
		t.Errorf("sidecar attributes = %v", meta.MetadataAttributes)
	}
}

func TestListSkipsSidecars(t *testing.T) {
	fake := newFakeS3()
	fake.listing = []types.Object{
		{Key: aws.String("loan-documents/booking-123/agreement.pdf"), Size: aws.Int64(1024)},
		{Key: aws.String("loan-documents/booking-123/agreement.pdf.metadata.json"), Size: aws.Int64(64)},
		{Key: aws.String("loan-documents/booking-123/term-sheet.pdf"), Size: aws.Int64(2048)},
	}
	store := NewStore(fake, "", "", nil)

	objects, err := store.List(context.Background(), "booking-123")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(objects))
	}
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, ".metadata.json") {
			t.Errorf("sidecar leaked into listing: %s", obj.Key)
		}
	}
}

func TestDeleteRemovesSidecar(t *testing.T) {
	fake := newFakeS3()
	store := NewStore(fake, "", "", nil)

	if err := store.Delete(context.Background(), "loan-documents/booking-123/agreement.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(fake.deletes) != 2 {
		t.Fatalf("expected 2 deletes, got %v", fake.deletes)
	}
	if fake.deletes[1] != "loan-documents/booking-123/agreement.pdf.metadata.json" {
		t.Errorf("sidecar not deleted: %v", fake.deletes)
	}
}

func TestDeleteRejectsForeignKey(t *testing.T) {
	store := NewStore(newFakeS3(), "", "", nil)
	if err := store.Delete(context.Background(), "other-prefix/file.pdf"); err == nil {
		t.Fatal("expected error for key outside the document prefix")
	}
}
