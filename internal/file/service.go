package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-booking-backend/internal/pkg/storage"
)

// maxUploadSize bounds profile photo uploads.
const maxUploadSize = 5 << 20

const (
	thumbnailMaxWidth  = 200
	thumbnailMaxHeight = 200
)

type Service interface {
	// Upload stores an image and its thumbnail. Non-image uploads are
	// rejected.
	Upload(ctx context.Context, header *multipart.FileHeader, userID string) (*File, error)
	Get(ctx context.Context, id string) (*File, error)
	Download(ctx context.Context, id string) (io.ReadCloser, *File, error)
	DownloadThumbnail(ctx context.Context, id string) (io.ReadCloser, *File, error)
	// Delete removes the metadata record and both blobs.
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo    Repository
	storage storage.Storage
	imgProc *storage.ImageProcessor
}

func NewService(repo Repository, store storage.Storage) Service {
	return &service{
		repo:    repo,
		storage: store,
		imgProc: storage.NewImageProcessor(),
	}
}

func (s *service) Upload(ctx context.Context, header *multipart.FileHeader, userID string) (*File, error) {
	if header.Size > maxUploadSize {
		return nil, ErrTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrNotImage
	}

	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file failed: %w", err)
	}
	defer src.Close()

	// Buffered in memory so the bytes can be read twice: once for the
	// original blob, once for the thumbnail. Fine at photo sizes.
	content, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read uploaded file failed: %w", err)
	}
	if int64(len(content)) > maxUploadSize {
		return nil, ErrTooLarge
	}

	fileID := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(header.Filename))

	// Shard blobs by the first two id characters to keep directories
	// small.
	shard := fileID[:2]
	storagePath := fmt.Sprintf("doctors/%s/%s%s", shard, fileID, ext)

	if err := s.storage.Save(ctx, storagePath, bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("save photo failed: %w", err)
	}

	// The thumbnail doubles as the image validity check: bytes that
	// claim image/* but do not decode are rejected here.
	thumbReader, err := s.imgProc.GenerateThumbnail(bytes.NewReader(content), thumbnailMaxWidth, thumbnailMaxHeight)
	if err != nil {
		_ = s.storage.Delete(ctx, storagePath)
		return nil, ErrNotImage
	}
	thumbPath := fmt.Sprintf("doctors/%s/%s_thumb.jpg", shard, fileID)
	if err := s.storage.Save(ctx, thumbPath, thumbReader); err != nil {
		_ = s.storage.Delete(ctx, storagePath)
		return nil, fmt.Errorf("save thumbnail failed: %w", err)
	}

	f := &File{
		ID:            fileID,
		UserID:        userID,
		Filename:      header.Filename,
		StoragePath:   storagePath,
		ThumbnailPath: &thumbPath,
		ContentType:   contentType,
		Size:          int64(len(content)),
		CreatedAt:     time.Now(),
	}

	if err := s.repo.Create(ctx, f); err != nil {
		_ = s.storage.Delete(ctx, storagePath)
		_ = s.storage.Delete(ctx, thumbPath)
		return nil, err
	}
	return f, nil
}

func (s *service) Get(ctx context.Context, id string) (*File, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Download(ctx context.Context, id string) (io.ReadCloser, *File, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	stream, err := s.storage.Get(ctx, f.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open photo blob failed: %w", err)
	}
	return stream, f, nil
}

func (s *service) DownloadThumbnail(ctx context.Context, id string) (io.ReadCloser, *File, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if f.ThumbnailPath == nil {
		return nil, nil, ErrNoThumbnail
	}

	stream, err := s.storage.Get(ctx, *f.ThumbnailPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open thumbnail blob failed: %w", err)
	}
	return stream, f, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	// Blob removal is best effort; the metadata row is authoritative.
	_ = s.storage.Delete(ctx, f.StoragePath)
	if f.ThumbnailPath != nil {
		_ = s.storage.Delete(ctx, *f.ThumbnailPath)
	}

	return s.repo.Delete(ctx, id)
}
