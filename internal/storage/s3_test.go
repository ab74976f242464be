package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/starford/brandvault/internal/apperr"
)

type fakeObject struct {
	data        []byte
	contentType string
	sha         string
}

// fakeS3 is a path-style S3 endpoint covering the calls the provider makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = fakeObject{
			data:        data,
			contentType: r.Header.Get("Content-Type"),
			sha:         r.Header.Get("X-Amz-Meta-Sha256"),
		}
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		obj, ok := f.objects[key]
		if !ok {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("X-Amz-Meta-Sha256", obj.sha)
		if r.Method == http.MethodGet {
			_, _ = w.Write(obj.data)
		}
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func testS3(t *testing.T) (*S3, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string]fakeObject{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	p, err := NewS3(S3Options{
		Bucket:          "brand",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		ForcePathStyle:  true,
		DisableSSL:      true,
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	return p, fake
}

func TestS3PutOpenDelete(t *testing.T) {
	p, fake := testS3(t)
	ctx := context.Background()
	key := "brand-assets/logo/a1/logo.png"

	obj, err := p.Put(ctx, key, strings.NewReader(string(pngHeader)), "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if obj.ContentType != "image/png" {
		t.Errorf("content type = %q", obj.ContentType)
	}
	fake.mu.Lock()
	stored, ok := fake.objects["brand/"+key]
	fake.mu.Unlock()
	if !ok {
		t.Fatalf("object not stored under bucket path, key %s", key)
	}
	if stored.sha != obj.Checksum {
		t.Errorf("checksum metadata = %q, want %q", stored.sha, obj.Checksum)
	}

	ok, err = p.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}

	data, opened := readAll(t, p, key)
	if string(data) != string(pngHeader) {
		t.Errorf("content mismatch")
	}
	if opened.ContentType != "image/png" || opened.Checksum != obj.Checksum {
		t.Errorf("opened = %+v", opened)
	}

	if err := p.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, err := p.Exists(ctx, key); err != nil || ok {
		t.Errorf("Exists after delete = %v, %v", ok, err)
	}
}

func TestS3OpenMissing(t *testing.T) {
	p, _ := testS3(t)
	_, _, err := p.Open(context.Background(), "images/background/x/none.jpg")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestS3URL(t *testing.T) {
	p, err := NewS3(S3Options{Bucket: "brand", Region: "eu-west-1"})
	if err != nil {
		t.Fatal(err)
	}
	if got := p.URL("images/a.png"); got != "https://brand.s3.eu-west-1.amazonaws.com/images/a.png" {
		t.Errorf("URL = %q", got)
	}

	p, err = NewS3(S3Options{Bucket: "brand", Region: "auto", PublicBaseURL: "https://cdn.example.com/"})
	if err != nil {
		t.Fatal(err)
	}
	if got := p.URL("images/a.png"); got != "https://cdn.example.com/images/a.png" {
		t.Errorf("URL = %q", got)
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(S3Options{Region: "us-east-1"}); err == nil {
		t.Error("expected error without bucket")
	}
}
