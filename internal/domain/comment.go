package domain

import "time"

// Comment is a message in a ticket thread. It references its ticket by id
// only; the ticket owns its comment collection and deletes cascade from it.
// Comments are immutable after creation.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}
