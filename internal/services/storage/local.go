package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxProofSize caps uploaded payment proofs at 5 MiB.
const MaxProofSize = 5 << 20

var ErrTooLarge = errors.New("file exceeds the 5MB limit")
var ErrBadType = errors.New("only JPEG, PNG, WebP images or PDF files are accepted")

// extensions by sniffed content type
var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// LocalStore keeps uploaded files on local disk under a root directory and
// hands back public URLs. It is the file-storage collaborator for payment
// proofs; the directory is served statically by the router.
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) *LocalStore {
	return &LocalStore{root: root, baseURL: baseURL}
}

// Save validates and persists one uploaded file into folder, returning its
// public URL. Nothing is left on disk when validation or the copy fails.
func (s *LocalStore) Save(file multipart.File, header *multipart.FileHeader, folder string) (string, error) {
	if header.Size > MaxProofSize {
		return "", ErrTooLarge
	}

	// Sniff the real content type instead of trusting the client header.
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	ext, ok := allowedTypes[sniff(head[:n])]
	if !ok {
		return "", ErrBadType
	}

	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := uuid.New().String() + ext
	path := filepath.Join(dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}

	written, err := io.Copy(dst, io.LimitReader(file, MaxProofSize+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > MaxProofSize {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}

	return fmt.Sprintf("%s/uploads/%s/%s", s.baseURL, folder, name), nil
}

func sniff(head []byte) string {
	ct := http.DetectContentType(head)
	// DetectContentType appends charset info for some types; strip it.
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
