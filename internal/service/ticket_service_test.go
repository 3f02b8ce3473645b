package service

import (
	"context"
	"strings"
	"testing"

	"github.com/ticketdesk/ticketing/internal/domain"
	"github.com/ticketdesk/ticketing/internal/events"
	apperrors "github.com/ticketdesk/ticketing/pkg/util"
)

func newTicketFixture() (*TicketService, *fakeTicketRepo, *recordingDispatcher) {
	ticketRepo := newFakeTicketRepo()
	userRepo := newFakeUserRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewTicketService(TicketDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
	})
	return svc, ticketRepo, dispatcher
}

func testUser(id string, role domain.Role) *domain.User {
	return &domain.User{
		ID:       id,
		Username: id,
		Email:    id + "@example.com",
		Role:     role,
	}
}

func TestCreateTicketDefaults(t *testing.T) {
	svc, _, dispatcher := newTicketFixture()
	creator := testUser("creator", domain.RoleUser)

	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "Printer down",
		Description: "The third floor printer does not respond.",
	}, creator)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	if ticket.ID == "" {
		t.Error("expected assigned id")
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("status = %s, want OPEN", ticket.Status)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Errorf("priority = %s, want MEDIUM", ticket.Priority)
	}
	if ticket.CreatorID != creator.ID {
		t.Errorf("creator = %s, want %s", ticket.CreatorID, creator.ID)
	}
	if ticket.AssigneeID != nil {
		t.Error("new ticket must be unassigned")
	}
	if ticket.ResolvedAt != nil {
		t.Error("new ticket must not carry a resolution timestamp")
	}

	created := dispatcher.published(events.EventTicketCreated)
	if len(created) != 1 {
		t.Fatalf("created events = %d, want 1", len(created))
	}
	if created[0].TicketID != ticket.ID {
		t.Errorf("event ticket = %s, want %s", created[0].TicketID, ticket.ID)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	svc, _, dispatcher := newTicketFixture()
	creator := testUser("creator", domain.RoleUser)

	tests := []struct {
		name  string
		input TicketCreateInput
	}{
		{"blank subject", TicketCreateInput{Subject: "   ", Description: "desc"}},
		{"blank description", TicketCreateInput{Subject: "subject", Description: "   "}},
		{"subject too long", TicketCreateInput{Subject: strings.Repeat("x", domain.MaxSubjectLength+1), Description: "desc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTicket(context.Background(), tt.input, creator)
			if !apperrors.HasCode(err, apperrors.CodeInvalidArgument) {
				t.Errorf("err = %v, want INVALID_ARGUMENT", err)
			}
		})
	}

	if len(dispatcher.events) != 0 {
		t.Errorf("rejected creations published %d events", len(dispatcher.events))
	}
}

func TestGetTicketNotFound(t *testing.T) {
	svc, _, _ := newTicketFixture()
	_, err := svc.GetTicket(context.Background(), "missing")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestUpdateStatusStampsResolvedAtOnce(t *testing.T) {
	svc, _, dispatcher := newTicketFixture()
	creator := testUser("creator", domain.RoleUser)
	admin := testUser("admin", domain.RoleAdmin)

	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "Printer down",
		Description: "No response from the printer.",
	}, creator)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	resolved, err := svc.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusResolved, admin)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if resolved.ResolvedAt == nil {
		t.Fatal("first RESOLVED must stamp ResolvedAt")
	}
	firstStamp := *resolved.ResolvedAt

	// Leave RESOLVED and come back; the stamp must not move.
	if _, err := svc.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusInProgress, admin); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	again, err := svc.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusResolved, admin)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if again.ResolvedAt == nil || !again.ResolvedAt.Equal(firstStamp) {
		t.Error("ResolvedAt must keep its original value on re-entry")
	}

	changed := dispatcher.published(events.EventTicketStatusChanged)
	if len(changed) != 3 {
		t.Errorf("status events = %d, want 3", len(changed))
	}
}

func TestUpdateStatusNoopPublishesNothing(t *testing.T) {
	svc, _, dispatcher := newTicketFixture()
	creator := testUser("creator", domain.RoleUser)
	admin := testUser("admin", domain.RoleAdmin)

	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "Printer down",
		Description: "No response from the printer.",
	}, creator)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusOpen, admin); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if changed := dispatcher.published(events.EventTicketStatusChanged); len(changed) != 0 {
		t.Errorf("same-status update published %d events, want 0", len(changed))
	}
}

func TestAssignTicketAdvancesOpenTicket(t *testing.T) {
	svc, _, dispatcher := newTicketFixture()
	creator := testUser("creator", domain.RoleUser)
	admin := testUser("admin", domain.RoleAdmin)
	agent := testUser("agent", domain.RoleSupportAgent)

	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "No toner",
		Description: "Toner cartridge empty.",
	}, creator)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	assigned, err := svc.AssignTicket(context.Background(), ticket.ID, agent, admin)
	if err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}
	if assigned.AssigneeID == nil || *assigned.AssigneeID != agent.ID {
		t.Fatalf("assignee = %v, want %s", assigned.AssigneeID, agent.ID)
	}
	if assigned.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", assigned.Status)
	}

	published := dispatcher.published(events.EventTicketAssigned)
	if len(published) != 1 {
		t.Fatalf("assignment events = %d, want 1", len(published))
	}
	payload, ok := published[0].Payload.(events.TicketAssignedPayload)
	if !ok {
		t.Fatalf("payload type %T", published[0].Payload)
	}
	if payload.OldAssigneeID != nil {
		t.Error("old assignee must be nil for first assignment")
	}
	if payload.NewAssigneeID != agent.ID {
		t.Errorf("new assignee = %s, want %s", payload.NewAssigneeID, agent.ID)
	}
}

func TestAssignTicketKeepsNonOpenStatus(t *testing.T) {
	svc, _, _ := newTicketFixture()
	creator := testUser("creator", domain.RoleUser)
	admin := testUser("admin", domain.RoleAdmin)
	agent := testUser("agent", domain.RoleSupportAgent)

	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "No toner",
		Description: "Toner cartridge empty.",
	}, creator)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusResolved, admin); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	assigned, err := svc.AssignTicket(context.Background(), ticket.ID, agent, admin)
	if err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}
	if assigned.Status != domain.TicketStatusResolved {
		t.Errorf("status = %s, want RESOLVED untouched", assigned.Status)
	}
}

func TestUnassignTicket(t *testing.T) {
	svc, _, dispatcher := newTicketFixture()
	creator := testUser("creator", domain.RoleUser)
	admin := testUser("admin", domain.RoleAdmin)
	agent := testUser("agent", domain.RoleSupportAgent)

	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "No toner",
		Description: "Toner cartridge empty.",
	}, creator)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := svc.AssignTicket(context.Background(), ticket.ID, agent, admin); err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}

	unassigned, err := svc.AssignTicket(context.Background(), ticket.ID, nil, admin)
	if err != nil {
		t.Fatalf("AssignTicket(nil): %v", err)
	}
	if unassigned.AssigneeID != nil {
		t.Error("assignee must be cleared")
	}
	if unassigned.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %s, unassign must not touch status", unassigned.Status)
	}
	if published := dispatcher.published(events.EventTicketAssigned); len(published) != 1 {
		t.Errorf("assignment events = %d, unassign must not notify", len(published))
	}
}

func TestRateTicketGuards(t *testing.T) {
	svc, _, _ := newTicketFixture()
	creator := testUser("creator", domain.RoleUser)
	admin := testUser("admin", domain.RoleAdmin)
	agent := testUser("agent", domain.RoleSupportAgent)

	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "Printer down",
		Description: "No response from the printer.",
	}, creator)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	// Open ticket: the creator guard fires before the state guard.
	if _, err := svc.RateTicket(context.Background(), ticket.ID, 5, "great", agent); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Errorf("non-creator rating: err = %v, want FORBIDDEN", err)
	}
	if _, err := svc.RateTicket(context.Background(), ticket.ID, 5, "great", creator); !apperrors.HasCode(err, apperrors.CodeInvalidState) {
		t.Errorf("rating OPEN ticket: err = %v, want INVALID_STATE", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusResolved, admin); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	for _, rating := range []int{0, 6, -1} {
		if _, err := svc.RateTicket(context.Background(), ticket.ID, rating, "", creator); !apperrors.HasCode(err, apperrors.CodeInvalidArgument) {
			t.Errorf("rating %d: err = %v, want INVALID_ARGUMENT", rating, err)
		}
	}

	rated, err := svc.RateTicket(context.Background(), ticket.ID, 5, "Great support", creator)
	if err != nil {
		t.Fatalf("RateTicket: %v", err)
	}
	if rated.Rating == nil || *rated.Rating != 5 {
		t.Errorf("rating = %v, want 5", rated.Rating)
	}
	if rated.Feedback == nil || *rated.Feedback != "Great support" {
		t.Errorf("feedback = %v, want %q", rated.Feedback, "Great support")
	}

	if _, err := svc.RateTicket(context.Background(), "missing", 5, "", creator); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("missing ticket: err = %v, want NOT_FOUND", err)
	}
}

func TestRateTicketOnClosed(t *testing.T) {
	svc, _, _ := newTicketFixture()
	creator := testUser("creator", domain.RoleUser)
	admin := testUser("admin", domain.RoleAdmin)

	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "Printer down",
		Description: "No response from the printer.",
	}, creator)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusClosed, admin); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	if _, err := svc.RateTicket(context.Background(), ticket.ID, 3, "", creator); err != nil {
		t.Errorf("rating CLOSED ticket: %v", err)
	}
}

func TestListTicketsForRoleScoping(t *testing.T) {
	svc, _, _ := newTicketFixture()
	admin := testUser("admin", domain.RoleAdmin)
	agent := testUser("agent", domain.RoleSupportAgent)
	alice := testUser("alice", domain.RoleUser)
	bob := testUser("bob", domain.RoleUser)

	aliceTicket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "Printer down",
		Description: "No response.",
	}, alice)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "VPN broken",
		Description: "Cannot connect.",
	}, bob); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	agentTicket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "Monitor flicker",
		Description: "Intermittent flicker.",
	}, agent)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := svc.AssignTicket(context.Background(), aliceTicket.ID, agent, admin); err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}

	all, err := svc.ListTicketsFor(context.Background(), admin)
	if err != nil {
		t.Fatalf("ListTicketsFor(admin): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("admin sees %d tickets, want 3", len(all))
	}

	involved, err := svc.ListTicketsFor(context.Background(), agent)
	if err != nil {
		t.Fatalf("ListTicketsFor(agent): %v", err)
	}
	if len(involved) != 2 {
		t.Fatalf("agent sees %d tickets, want 2", len(involved))
	}
	if involved[0].ID != aliceTicket.ID || involved[1].ID != agentTicket.ID {
		t.Error("agent listing must preserve creation order")
	}

	own, err := svc.ListTicketsFor(context.Background(), alice)
	if err != nil {
		t.Fatalf("ListTicketsFor(alice): %v", err)
	}
	if len(own) != 1 || own[0].ID != aliceTicket.ID {
		t.Errorf("alice sees %v, want only her own ticket", own)
	}
}

func TestSearchTicketsGlobal(t *testing.T) {
	svc, _, _ := newTicketFixture()
	admin := testUser("admin", domain.RoleAdmin)
	alice := testUser("alice", domain.RoleUser)
	bob := testUser("bob", domain.RoleUser)

	first, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "Printer down",
		Description: "The office printer stopped.",
		Priority:    domain.TicketPriorityHigh,
	}, alice)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	second, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "No toner",
		Description: "PRINTER cartridge empty.",
	}, bob)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "VPN broken",
		Description: "Cannot connect from home.",
	}, bob); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), second.ID, domain.TicketStatusResolved, admin); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	// Empty filter returns everything in creation order.
	all, err := svc.SearchTickets(context.Background(), GlobalTicketFilter{})
	if err != nil {
		t.Fatalf("SearchTickets: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("empty filter returned %d, want 3", len(all))
	}
	if all[0].ID != first.ID {
		t.Error("results must preserve creation order")
	}

	// Case-insensitive substring over subject or description.
	matches, err := svc.SearchTickets(context.Background(), GlobalTicketFilter{Search: "printer"})
	if err != nil {
		t.Fatalf("SearchTickets: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("search %q returned %d, want 2", "printer", len(matches))
	}

	// Conjunctive: search and status must both hold.
	open := domain.TicketStatusOpen
	matches, err = svc.SearchTickets(context.Background(), GlobalTicketFilter{Search: "printer", Status: &open})
	if err != nil {
		t.Fatalf("SearchTickets: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != first.ID {
		t.Errorf("conjunctive filter returned %v, want only %s", matches, first.ID)
	}

	high := domain.TicketPriorityHigh
	matches, err = svc.SearchTickets(context.Background(), GlobalTicketFilter{Priority: &high, CreatorID: &alice.ID})
	if err != nil {
		t.Fatalf("SearchTickets: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != first.ID {
		t.Errorf("priority+creator filter returned %v, want only %s", matches, first.ID)
	}
}

func TestSearchUserTicketsScoped(t *testing.T) {
	svc, _, _ := newTicketFixture()
	alice := testUser("alice", domain.RoleUser)
	bob := testUser("bob", domain.RoleUser)

	mine, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "Printer down",
		Description: "No response.",
	}, alice)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "Printer jam",
		Description: "Paper stuck.",
	}, bob); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	results, err := svc.SearchUserTickets(context.Background(), alice, ScopedTicketFilter{Search: "printer"})
	if err != nil {
		t.Fatalf("SearchUserTickets: %v", err)
	}
	if len(results) != 1 || results[0].ID != mine.ID {
		t.Errorf("scoped search returned %v, must never include other users' tickets", results)
	}

	// Blank search within the scope returns all own tickets.
	results, err = svc.SearchUserTickets(context.Background(), alice, ScopedTicketFilter{})
	if err != nil {
		t.Fatalf("SearchUserTickets: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("blank scoped search returned %d, want 1", len(results))
	}
}

func TestDeleteTicket(t *testing.T) {
	svc, _, _ := newTicketFixture()
	creator := testUser("creator", domain.RoleUser)

	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "Printer down",
		Description: "No response.",
	}, creator)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	if err := svc.DeleteTicket(context.Background(), ticket.ID); err != nil {
		t.Fatalf("DeleteTicket: %v", err)
	}
	if _, err := svc.GetTicket(context.Background(), ticket.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("deleted ticket lookup: err = %v, want NOT_FOUND", err)
	}
	if err := svc.DeleteTicket(context.Background(), ticket.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("double delete: err = %v, want NOT_FOUND", err)
	}
}
