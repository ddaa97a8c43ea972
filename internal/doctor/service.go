package doctor

import (
	"context"
	"strings"

	"github.com/clinicdesk/clinic-booking-backend/internal/access"
)

type CreateRequest struct {
	Name       string
	Specialty  string
	SlotGroups []SlotGroup
}

type UpdateRequest struct {
	Name      *string
	Specialty *string
	Offer     []SlotGroup
}

// Service defines business logic for doctor profiles and the slot catalog.
type Service interface {
	Create(ctx context.Context, callerID string, req CreateRequest) (*Doctor, error)
	GetByID(ctx context.Context, id string) (*Doctor, error)
	List(ctx context.Context, filter Filter) ([]*Doctor, int, error)
	Update(ctx context.Context, id, callerID string, req UpdateRequest) (*Doctor, error)
	WithdrawSlots(ctx context.Context, id, callerID, date string, labels []string) error
	Delete(ctx context.Context, id, callerID string) error
	SetPhoto(ctx context.Context, id, callerID string, fileID *string) (previous *string, err error)
}

type service struct {
	repo  Repository
	guard *access.Guard
}

// NewService creates a new doctor Service.
func NewService(repo Repository, guard *access.Guard) Service {
	return &service{
		repo:  repo,
		guard: guard,
	}
}

func (s *service) Create(ctx context.Context, callerID string, req CreateRequest) (*Doctor, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}
	specialty := strings.TrimSpace(req.Specialty)
	if specialty == "" {
		return nil, ErrEmptySpecialty
	}

	groups, err := NormalizeGroups(req.SlotGroups)
	if err != nil {
		return nil, err
	}

	d := &Doctor{
		UserID:     callerID,
		Name:       name,
		Specialty:  specialty,
		SlotGroups: groups,
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	return d, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Doctor, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id, callerID string, req UpdateRequest) (*Doctor, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.guard.CanManageDoctor(callerID, d.UserID) {
		return nil, ErrPermissionDenied
	}

	profileChanged := false
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		d.Name = name
		profileChanged = true
	}
	if req.Specialty != nil {
		specialty := strings.TrimSpace(*req.Specialty)
		if specialty == "" {
			return nil, ErrEmptySpecialty
		}
		d.Specialty = specialty
		profileChanged = true
	}

	if profileChanged {
		if err := s.repo.UpdateProfile(ctx, d); err != nil {
			return nil, err
		}
	}

	if len(req.Offer) > 0 {
		groups, err := NormalizeGroups(req.Offer)
		if err != nil {
			return nil, err
		}
		if err := s.repo.Offer(ctx, id, groups); err != nil {
			return nil, err
		}
	}

	return s.repo.GetByID(ctx, id)
}

func (s *service) WithdrawSlots(ctx context.Context, id, callerID, date string, labels []string) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !s.guard.CanManageDoctor(callerID, d.UserID) {
		return ErrPermissionDenied
	}

	if err := ValidateDate(date); err != nil {
		return err
	}
	if len(labels) == 0 {
		return ErrNoSlots
	}

	return s.repo.Withdraw(ctx, id, date, labels)
}

func (s *service) Delete(ctx context.Context, id, callerID string) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !s.guard.CanManageDoctor(callerID, d.UserID) {
		return ErrPermissionDenied
	}

	return s.repo.Delete(ctx, id)
}

func (s *service) SetPhoto(ctx context.Context, id, callerID string, fileID *string) (*string, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.guard.CanManageDoctor(callerID, d.UserID) {
		return nil, ErrPermissionDenied
	}

	if err := s.repo.SetPhotoFile(ctx, id, fileID); err != nil {
		return nil, err
	}

	return d.PhotoFileID, nil
}
