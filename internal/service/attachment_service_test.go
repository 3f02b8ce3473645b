package service

import (
	"context"
	"testing"

	"github.com/ticketdesk/ticketing/internal/domain"
	apperrors "github.com/ticketdesk/ticketing/pkg/util"
)

func TestAddAttachment(t *testing.T) {
	svc := NewAttachmentService(newFakeAttachmentRepo())
	ticket := &domain.Ticket{ID: "ticket-1"}

	attachment, err := svc.AddAttachment(context.Background(), ticket, AttachmentInput{
		FileName:   "screenshot.png",
		MimeType:   "image/png",
		SizeBytes:  2048,
		StorageKey: "uploads/screenshot.png",
	})
	if err != nil {
		t.Fatalf("AddAttachment: %v", err)
	}
	if attachment.ID == "" {
		t.Error("expected assigned id")
	}
	if attachment.TicketID != ticket.ID {
		t.Errorf("ticket id = %s, want %s", attachment.TicketID, ticket.ID)
	}

	listed, err := svc.ListAttachments(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("ListAttachments: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != attachment.ID {
		t.Errorf("listed = %v, want the stored attachment", listed)
	}
}

func TestAddAttachmentValidation(t *testing.T) {
	svc := NewAttachmentService(newFakeAttachmentRepo())
	ticket := &domain.Ticket{ID: "ticket-1"}

	tests := []struct {
		name  string
		input AttachmentInput
	}{
		{"missing file name", AttachmentInput{StorageKey: "k"}},
		{"missing storage key", AttachmentInput{FileName: "f.txt"}},
		{"negative size", AttachmentInput{FileName: "f.txt", StorageKey: "k", SizeBytes: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddAttachment(context.Background(), ticket, tt.input); !apperrors.HasCode(err, apperrors.CodeInvalidArgument) {
				t.Errorf("err = %v, want INVALID_ARGUMENT", err)
			}
		})
	}
}
