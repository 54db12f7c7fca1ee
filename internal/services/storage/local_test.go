package storage

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func proofRequest(t *testing.T, filename string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	w.Close()

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	file, header, err := req.FormFile("file")
	if err != nil {
		t.Fatalf("parse form file: %v", err)
	}
	return file, header
}

func TestSaveAcceptsImageAndPDF(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "http://localhost:8080")

	pngSig := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	cases := []struct {
		name    string
		content []byte
		wantExt string
	}{
		{"proof.png", pngSig, ".png"},
		{"proof.pdf", []byte("%PDF-1.4 minimal"), ".pdf"},
		{"proof.jpg", []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F'}, ".jpg"},
	}
	for _, tc := range cases {
		file, header := proofRequest(t, tc.name, tc.content)
		url, err := store.Save(file, header, "payment-proofs")
		file.Close()
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if !strings.HasPrefix(url, "http://localhost:8080/uploads/payment-proofs/") {
			t.Errorf("%s: unexpected url %q", tc.name, url)
		}
		if !strings.HasSuffix(url, tc.wantExt) {
			t.Errorf("%s: url %q should end in %s", tc.name, url, tc.wantExt)
		}
	}
}

func TestSaveRejectsWrongType(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "http://localhost:8080")

	file, header := proofRequest(t, "notes.txt", []byte("plain text, not a proof"))
	defer file.Close()

	if _, err := store.Save(file, header, "payment-proofs"); !errors.Is(err, ErrBadType) {
		t.Fatalf("got %v, want ErrBadType", err)
	}

	// nothing persisted
	entries, _ := os.ReadDir(filepath.Join(root, "payment-proofs"))
	if len(entries) != 0 {
		t.Errorf("rejected upload left %d files behind", len(entries))
	}
}

func TestSaveRejectsOversizeFile(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "http://localhost:8080")

	big := make([]byte, MaxProofSize+1)
	copy(big, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	file, header := proofRequest(t, "huge.png", big)
	defer file.Close()

	if _, err := store.Save(file, header, "payment-proofs"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("got %v, want ErrTooLarge", err)
	}
}
