package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
)

// DefaultMaxUploadBytes is the upload limit when none is configured
const DefaultMaxUploadBytes = 10 << 20

// AllowedMimeTypes are the accepted upload content types
var AllowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
}

// Upload describes an incoming file
type Upload struct {
	FileName string
	MimeType string
	Content  io.Reader
}

// PathFunc chooses the storage path of a request's upload
type PathFunc func(requestID int64, fileName string) string

// AttachmentService manages files attached to requests. The workflow never reads them.
type AttachmentService interface {
	Upload(ctx context.Context, actor entity.Actor, requestID int64, upload Upload) (*entity.Attachment, error)
	List(ctx context.Context, actor entity.Actor, requestID int64) ([]*entity.Attachment, error)
	Open(ctx context.Context, actor entity.Actor, id int64) (*entity.Attachment, io.ReadCloser, error)
	Delete(ctx context.Context, actor entity.Actor, id int64) error
}

type attachmentServiceImpl struct {
	requests    port.PurchaseRequestRepository
	attachments port.AttachmentRepository
	storage     port.FileStorage
	pathFor     PathFunc
	maxBytes    int64
	logger      Logger
	now         func() time.Time
}

// NewAttachmentService creates a new AttachmentService
func NewAttachmentService(
	requests port.PurchaseRequestRepository,
	attachments port.AttachmentRepository,
	storage port.FileStorage,
	pathFor PathFunc,
	maxBytes int64,
	logger Logger,
) AttachmentService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &attachmentServiceImpl{
		requests:    requests,
		attachments: attachments,
		storage:     storage,
		pathFor:     pathFor,
		maxBytes:    maxBytes,
		logger:      orNop(logger),
		now:         time.Now,
	}
}

// canModify: the requester while the request is open, or general services
// up to their own stage.
func canModify(actor entity.Actor, req *entity.PurchaseRequest) bool {
	if req.RequesterID == actor.ID && !req.IsTerminal() {
		return true
	}
	return actor.Role == domainwf.RoleMG &&
		(req.Status == domainwf.StatusPending || req.Status == domainwf.StatusMGApproved)
}

// Upload implements AttachmentService
func (s *attachmentServiceImpl) Upload(ctx context.Context, actor entity.Actor, requestID int64, upload Upload) (*entity.Attachment, error) {
	if upload.FileName == "" {
		return nil, domainwf.NewValidationError("file", "file is required")
	}
	if !AllowedMimeTypes[upload.MimeType] {
		return nil, domainwf.NewValidationError("file", fmt.Sprintf("unsupported format: %s", upload.MimeType))
	}

	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, req) {
		return nil, fmt.Errorf("%w: attachments cannot be added at status %s", ErrAccessDenied, req.Status)
	}

	path := s.pathFor(requestID, upload.FileName)
	size, err := s.storage.Save(ctx, path, upload.Content, s.maxBytes)
	if err != nil {
		if errors.Is(err, port.ErrFileTooLarge) {
			return nil, domainwf.NewValidationError("file", fmt.Sprintf("file too large (max %d bytes)", s.maxBytes))
		}
		return nil, fmt.Errorf("store attachment: %w", err)
	}

	att := &entity.Attachment{
		RequestID:  requestID,
		FileName:   upload.FileName,
		FilePath:   path,
		FileSize:   size,
		MimeType:   upload.MimeType,
		UploadedBy: actor.ID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.attachments.Create(ctx, att); err != nil {
		// Keep storage and metadata in step
		if delErr := s.storage.Delete(ctx, path); delErr != nil {
			s.logger.Error("Failed to remove orphaned upload", "path", path, "error", delErr)
		}
		return nil, fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
	}

	s.logger.Info("Attachment uploaded",
		"request_id", requestID,
		"attachment_id", att.ID,
		"size", size,
		"actor_id", actor.ID)
	return att, nil
}

// List implements AttachmentService
func (s *attachmentServiceImpl) List(ctx context.Context, actor entity.Actor, requestID int64) ([]*entity.Attachment, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !canRead(actor, req) {
		return nil, fmt.Errorf("%w: employees may only read their own requests", ErrAccessDenied)
	}
	atts, err := s.attachments.ListByRequestID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
	}
	if atts == nil {
		atts = []*entity.Attachment{}
	}
	return atts, nil
}

// Open implements AttachmentService; the caller closes the reader
func (s *attachmentServiceImpl) Open(ctx context.Context, actor entity.Actor, id int64) (*entity.Attachment, io.ReadCloser, error) {
	att, req, err := s.loadAttachment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !canRead(actor, req) {
		return nil, nil, fmt.Errorf("%w: employees may only read their own requests", ErrAccessDenied)
	}
	rc, err := s.storage.Open(ctx, att.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open attachment: %w", err)
	}
	return att, rc, nil
}

// Delete implements AttachmentService. Requesters may only remove their own uploads.
func (s *attachmentServiceImpl) Delete(ctx context.Context, actor entity.Actor, id int64) error {
	att, req, err := s.loadAttachment(ctx, id)
	if err != nil {
		return err
	}

	allowed := canModify(actor, req)
	if actor.Role != domainwf.RoleMG && att.UploadedBy != actor.ID {
		allowed = false
	}
	if !allowed {
		return fmt.Errorf("%w: attachment %d cannot be deleted at status %s", ErrAccessDenied, id, req.Status)
	}

	if err := s.attachments.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
	}
	if err := s.storage.Delete(ctx, att.FilePath); err != nil {
		s.logger.Error("Failed to remove attachment content", "attachment_id", id, "path", att.FilePath, "error", err)
	}

	s.logger.Info("Attachment deleted", "attachment_id", id, "request_id", att.RequestID, "actor_id", actor.ID)
	return nil
}

func (s *attachmentServiceImpl) loadRequest(ctx context.Context, id int64) (*entity.PurchaseRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: purchase request %d", domainwf.ErrNotFound, id)
	}
	return req, nil
}

func (s *attachmentServiceImpl) loadAttachment(ctx context.Context, id int64) (*entity.Attachment, *entity.PurchaseRequest, error) {
	att, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
	}
	if att == nil {
		return nil, nil, fmt.Errorf("%w: attachment %d", domainwf.ErrNotFound, id)
	}
	req, err := s.loadRequest(ctx, att.RequestID)
	if err != nil {
		return nil, nil, err
	}
	return att, req, nil
}
