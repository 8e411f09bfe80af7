package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// PublicUploadPath is the URL prefix uploaded images are served under.
const PublicUploadPath = "/public/upload/"

// FileTypeMap lists the accepted image content types and their extensions.
var FileTypeMap = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpg",
}

// ImageStore writes uploaded product images to a directory on disk.
type ImageStore struct {
	Dir string
}

// NewImageStore creates dir if needed.
func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &ImageStore{Dir: dir}, nil
}

// Save stores one uploaded file and returns its file name.
func (s *ImageStore) Save(fh *multipart.FileHeader) (string, error) {
	extension, ok := FileTypeMap[fh.Header.Get("Content-Type")]
	if !ok {
		return "", fmt.Errorf("%w: invalid image type", ErrValidation)
	}

	base := strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename))
	base = strings.Join(strings.Fields(filepath.Base(base)), "-")
	fileName := fmt.Sprintf("%s-%s.%s", base, uuid.NewString(), extension)

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.Dir, fileName))
	if err != nil {
		return "", fmt.Errorf("create file on server: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}
	return fileName, nil
}

// Remove deletes a previously saved file; missing files are ignored.
func (s *ImageStore) Remove(fileName string) error {
	err := os.Remove(filepath.Join(s.Dir, filepath.Base(fileName)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ImageURL builds the public URL of fileName as seen by the client of r.
func ImageURL(r *http.Request, fileName string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s%s", scheme, r.Host, PublicUploadPath, fileName)
}
