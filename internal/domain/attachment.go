package domain

import "time"

// Attachment stores file metadata referenced by a ticket. Deleting the ticket
// removes its attachments alongside its comments.
type Attachment struct {
	ID         string
	TicketID   string
	FileName   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	CreatedAt  time.Time
}
