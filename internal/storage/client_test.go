package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPut_UpsertsObject(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotUpsert, gotCT string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUpsert = r.Header.Get("x-upsert")
		gotCT = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "documents", "svc-key")
	err := c.Put(context.Background(), "sessions/s1/a.pdf", "application/pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/storage/v1/object/documents/sessions/s1/a.pdf" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bearer svc-key" || gotUpsert != "true" || gotCT != "application/pdf" {
		t.Fatalf("unexpected headers: auth=%q upsert=%q ct=%q", gotAuth, gotUpsert, gotCT)
	}
	if string(gotBody) != "%PDF" {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestGet_ReturnsBytesAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing.pdf") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("raw bytes"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "documents", "k")
	data, err := c.Get(context.Background(), "a.pdf")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "raw bytes" {
		t.Fatalf("data = %q", data)
	}

	_, err = c.Get(context.Background(), "missing.pdf")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 APIError, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "documents", "k")
	if err := c.Delete(context.Background(), "a.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Fatalf("method = %q", gotMethod)
	}
}

func TestSignedURL(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"signedURL":"/object/sign/documents/a.pdf?token=xyz"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "documents", "k")
	url, err := c.SignedURL(context.Background(), "a.pdf", 15*time.Minute)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	if gotPath != "/storage/v1/object/sign/documents/a.pdf" {
		t.Fatalf("sign path = %q", gotPath)
	}
	if !strings.Contains(string(gotBody), `"expiresIn":900`) {
		t.Fatalf("expiresIn missing: %s", gotBody)
	}
	want := srv.URL + "/storage/v1/object/sign/documents/a.pdf?token=xyz"
	if url != want {
		t.Fatalf("url = %q; want %q", url, want)
	}
}

func TestSignedURL_MissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "documents", "k")
	if _, err := c.SignedURL(context.Background(), "a.pdf", time.Minute); err == nil {
		t.Fatalf("expected error for missing signedURL")
	}
}
