package alerts

import (
	"context"
	"fmt"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/rest"
)

// Backend is the request/response API the service drives.
// *rest.Client satisfies it.
type Backend interface {
	ListPanics(ctx context.Context) ([]nexori.PanicEvent, error)
	CreatePanic(ctx context.Context, req rest.CreatePanicRequest) (*nexori.PanicEvent, error)
	UpdatePanic(ctx context.Context, id string, req rest.UpdatePanicRequest) (*nexori.PanicEvent, error)
}

// Service performs panic operations through the backend and applies the
// confirmed records to the store. The broadcast echo of the same change is
// absorbed by the store's duplicate checks, and a reply never overrides a
// broadcast that was dispatched while the request was in flight.
type Service struct {
	backend Backend
	store   *Store
}

// NewService creates a Service.
func NewService(backend Backend, store *Store) *Service {
	return &Service{backend: backend, store: store}
}

// Store returns the store the service feeds.
func (s *Service) Store() *Store { return s.store }

// Refresh replaces the store contents with the backend's current list,
// keeping records written while the list was being fetched.
func (s *Service) Refresh(ctx context.Context) error {
	mark := s.store.Mark()
	events, err := s.backend.ListPanics(ctx)
	if err != nil {
		return fmt.Errorf("refresh panics: %w", err)
	}
	s.store.Reconcile(events, mark)
	return nil
}

// Create raises a new panic alert.
func (s *Service) Create(ctx context.Context, priority nexori.Priority, location, notes string) (*nexori.PanicEvent, error) {
	ev, err := s.backend.CreatePanic(ctx, rest.CreatePanicRequest{
		Priority: priority,
		Location: location,
		Notes:    notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create panic: %w", err)
	}
	s.store.ApplyCreated(*ev)
	return ev, nil
}

// Attend marks the event as attended.
func (s *Service) Attend(ctx context.Context, id, notes string) (*nexori.PanicEvent, error) {
	return s.Update(ctx, id, rest.UpdatePanicRequest{Status: nexori.PanicAttended, Notes: notes})
}

// Resolve closes the event.
func (s *Service) Resolve(ctx context.Context, id, notes string) (*nexori.PanicEvent, error) {
	return s.Update(ctx, id, rest.UpdatePanicRequest{Status: nexori.PanicResolved, Notes: notes})
}

// Update sends an arbitrary change for the event.
func (s *Service) Update(ctx context.Context, id string, req rest.UpdatePanicRequest) (*nexori.PanicEvent, error) {
	if id == "" {
		return nil, nexori.NewError(nexori.ErrorBadRequest, "panic id is required")
	}
	mark := s.store.Mark()
	ev, err := s.backend.UpdatePanic(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("update panic %s: %w", id, err)
	}
	s.store.ApplyConfirmed(*ev, mark)
	return ev, nil
}
