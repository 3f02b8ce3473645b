package service

import (
	"context"
	"strings"

	"github.com/ticketdesk/ticketing/internal/domain"
	"github.com/ticketdesk/ticketing/internal/repository"
	apperrors "github.com/ticketdesk/ticketing/pkg/util"
)

// AttachmentService records file metadata against tickets. The bytes live in
// external storage; only the storage key travels through the API.
type AttachmentService struct {
	attachments repository.AttachmentRepository
}

// AttachmentInput describes attachment metadata.
type AttachmentInput struct {
	FileName   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
}

// NewAttachmentService constructs the service.
func NewAttachmentService(attachments repository.AttachmentRepository) *AttachmentService {
	return &AttachmentService{attachments: attachments}
}

// AddAttachment registers metadata for an uploaded file.
func (s *AttachmentService) AddAttachment(ctx context.Context, ticket *domain.Ticket, input AttachmentInput) (*domain.Attachment, error) {
	if strings.TrimSpace(input.FileName) == "" {
		return nil, apperrors.NewInvalidArgument("file_name required", nil)
	}
	if strings.TrimSpace(input.StorageKey) == "" {
		return nil, apperrors.NewInvalidArgument("storage_key required", nil)
	}
	if input.SizeBytes < 0 {
		return nil, apperrors.NewInvalidArgument("size_bytes must not be negative", nil)
	}

	attachment := &domain.Attachment{
		TicketID:   ticket.ID,
		FileName:   strings.TrimSpace(input.FileName),
		MimeType:   input.MimeType,
		SizeBytes:  input.SizeBytes,
		StorageKey: input.StorageKey,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachment, nil
}

// ListAttachments returns the ticket's attachments ascending by creation time.
func (s *AttachmentService) ListAttachments(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	attachments, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachments, nil
}
