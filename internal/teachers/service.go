package teachers

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"pickup/internal/apperr"
	"pickup/internal/auth"
)

var (
	ErrNotFound        = apperr.NotFound("Teacher not found")
	ErrBadPIN          = apperr.Validation("PIN must be a 4-digit string")
	ErrBadCredentials  = apperr.Unauthorized("Invalid phone or PIN")
	ErrMissingLogin    = apperr.Validation("phone and pin are required")
	ErrMissingTeacher  = apperr.Validation("name, phone, and pin are required")
	errPhoneRequired   = apperr.Validation("phone is required")
	errNameRequired    = apperr.Validation("name cannot be empty")
	errPhoneNotAllowed = apperr.Validation("phone cannot be empty")
)

// Store is the storage accessor for teachers.
type Store interface {
	ActiveByPhone(ctx context.Context, phone string) (Teacher, error)
	ByPhone(ctx context.Context, phone string) (Teacher, error)
	Get(ctx context.Context, id int64) (Teacher, error)
	List(ctx context.Context) ([]Teacher, error)
	Create(ctx context.Context, t Teacher) (Teacher, error)
	Update(ctx context.Context, t Teacher) (Teacher, error)
	Delete(ctx context.Context, id int64) error
}

// TokenConfig controls issued credentials.
type TokenConfig struct {
	Issuer string
	Secret string
	TTL    time.Duration
}

// Service handles login and teacher management.
type Service struct {
	store  Store
	tokens TokenConfig
	log    *zap.Logger
}

func NewService(store Store, tokens TokenConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, tokens: tokens, log: log}
}

// Login checks a phone and PIN and issues a scoped credential.
func (s *Service) Login(ctx context.Context, phone, pin string) (Session, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || pin == "" {
		return Session{}, ErrMissingLogin
	}
	if !auth.ValidPIN(pin) {
		return Session{}, ErrBadPIN
	}
	t, err := s.store.ActiveByPhone(ctx, phone)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return Session{}, ErrBadCredentials
		}
		return Session{}, err
	}
	if !auth.CheckPIN(t.PinHash, pin) {
		s.log.Info("login rejected", zap.Int64("teacher_id", t.ID))
		return Session{}, ErrBadCredentials
	}
	access := auth.NormalizeAccess(string(t.Access))
	tok, err := auth.Issue(t.ID, t.Name, access, s.tokens.Issuer, s.tokens.Secret, s.tokens.TTL)
	if err != nil {
		return Session{}, err
	}
	s.log.Info("teacher logged in", zap.Int64("teacher_id", t.ID), zap.String("access", string(access)))
	return Session{
		Token:   tok.Value,
		Teacher: Profile{ID: t.ID, Name: t.Name, Phone: t.Phone, Access: access},
	}, nil
}

func (s *Service) List(ctx context.Context) ([]Teacher, error) {
	return s.store.List(ctx)
}

// Create adds an active teacher with a hashed PIN.
func (s *Service) Create(ctx context.Context, in NewTeacher) (Teacher, error) {
	name, phone := strings.TrimSpace(in.Name), strings.TrimSpace(in.Phone)
	if name == "" || phone == "" || in.PIN == "" {
		return Teacher{}, ErrMissingTeacher
	}
	if !auth.ValidPIN(in.PIN) {
		return Teacher{}, ErrBadPIN
	}
	hash, err := auth.HashPIN(in.PIN)
	if err != nil {
		return Teacher{}, err
	}
	t, err := s.store.Create(ctx, Teacher{
		Name:    name,
		Phone:   phone,
		PinHash: hash,
		Access:  auth.NormalizeAccess(in.Access),
	})
	if err != nil {
		return Teacher{}, err
	}
	s.log.Info("teacher created", zap.Int64("teacher_id", t.ID), zap.String("access", string(t.Access)))
	return t, nil
}

// Update applies a partial change. A new PIN is validated and re-hashed.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (Teacher, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return Teacher{}, errNameRequired
		}
		t.Name = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		if strings.TrimSpace(*p.Phone) == "" {
			return Teacher{}, errPhoneNotAllowed
		}
		t.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.IsActive != nil {
		t.IsActive = *p.IsActive
	}
	if p.Access != nil {
		t.Access = auth.NormalizeAccess(*p.Access)
	}
	if p.PIN != nil {
		if !auth.ValidPIN(*p.PIN) {
			return Teacher{}, ErrBadPIN
		}
		if t.PinHash, err = auth.HashPIN(*p.PIN); err != nil {
			return Teacher{}, err
		}
	}
	return s.store.Update(ctx, t)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("teacher deleted", zap.Int64("teacher_id", id))
	return nil
}

// EnsureAdmin creates a full-access teacher unless the phone is already registered.
func (s *Service) EnsureAdmin(ctx context.Context, name, phone, pin string) (Teacher, bool, error) {
	existing, err := s.store.ByPhone(ctx, strings.TrimSpace(phone))
	if err == nil {
		return existing, false, nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return Teacher{}, false, err
	}
	t, err := s.Create(ctx, NewTeacher{Name: name, Phone: phone, PIN: pin, Access: string(auth.AccessBoth)})
	return t, err == nil, err
}

// ResetPIN replaces the PIN of the teacher with phone.
func (s *Service) ResetPIN(ctx context.Context, phone, pin string) (Teacher, error) {
	if strings.TrimSpace(phone) == "" {
		return Teacher{}, errPhoneRequired
	}
	t, err := s.store.ByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return Teacher{}, err
	}
	return s.Update(ctx, t.ID, Patch{PIN: &pin})
}

// GrantAdmin gives the teacher with phone full access and reactivates them.
func (s *Service) GrantAdmin(ctx context.Context, phone string) (Teacher, error) {
	if strings.TrimSpace(phone) == "" {
		return Teacher{}, errPhoneRequired
	}
	t, err := s.store.ByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return Teacher{}, err
	}
	both, active := string(auth.AccessBoth), true
	return s.Update(ctx, t.ID, Patch{Access: &both, IsActive: &active})
}
