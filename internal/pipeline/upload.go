package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"resumeflow/internal/blob"
	"resumeflow/internal/models"
	"resumeflow/internal/util"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type UploadInput struct {
	FileName    string
	OwnerID     string
	ContentType string
	Content     []byte
}

type Uploader struct {
	store blob.Store
	log   zerolog.Logger
}

func NewUploader(store blob.Store, log zerolog.Logger) *Uploader {
	return &Uploader{store: store, log: log.With().Str("stage", string(models.StageUpload)).Logger()}
}

// Upload stores the source document under a collision-resistant, owner-scoped
// path. Existing objects are never overwritten.
func (u *Uploader) Upload(ctx context.Context, in UploadInput) (models.DocumentReference, error) {
	owner := strings.TrimSpace(in.OwnerID)
	if owner == "" {
		return models.DocumentReference{}, ErrMissingOwner
	}
	if len(in.Content) == 0 {
		return models.DocumentReference{}, ErrEmptyDocument
	}
	if !looksLikePDF(in.Content) {
		return models.DocumentReference{}, ErrNotPDF
	}
	name := strings.TrimSpace(in.FileName)
	if name == "" {
		name = "document.pdf"
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}

	path := fmt.Sprintf("uploads/%s/%s-%s", util.SafeSegment(owner), uuid.NewString(), util.SafeSegment(name))
	obj, err := u.store.Put(ctx, path, bytes.NewReader(in.Content), blob.PutOptions{
		ContentType:    contentType,
		Public:         true,
		AllowOverwrite: false,
	})
	if err != nil {
		return models.DocumentReference{}, fmt.Errorf("upload document: %w", err)
	}
	u.log.Info().Str("owner_id", owner).Str("path", obj.Pathname).Int("bytes", len(in.Content)).Msg("document uploaded")
	return models.DocumentReference{
		URL:              obj.URL,
		StoragePath:      obj.Pathname,
		OriginalFileName: name,
		OwnerID:          owner,
	}, nil
}

func looksLikePDF(b []byte) bool {
	head := b
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, []byte("%PDF-"))
}
