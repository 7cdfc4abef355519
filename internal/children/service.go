package children

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pickup/internal/apperr"
	"pickup/internal/photos"
)

var (
	ErrChildNotFound  = apperr.NotFound("Child not found")
	ErrPickerNotFound = apperr.NotFound("Picker not found")
	ErrQRNotFound     = apperr.NotFound("Child not found for this QR code. Add this child (with 3 holder photos) in Admin Dashboard on this site, then generate and scan the QR here.")
	ErrTooManyPickers = apperr.Validation("Maximum 3 authorized pickers per child")
)

// Store is the storage accessor the child workflows need.
type Store interface {
	List(ctx context.Context) ([]Child, error)
	Get(ctx context.Context, id int64) (Child, error)
	Create(ctx context.Context, in NewChild) (Child, error)
	CreateMany(ctx context.Context, in []NewChild) ([]Child, error)
	CreateWithPickers(ctx context.Context, in NewChild, build func(ctx context.Context, childID int64) ([]NewPicker, error)) (Child, []Picker, error)
	Update(ctx context.Context, c Child) (Child, error)
	SetQRHidden(ctx context.Context, id int64, hidden bool) (Child, error)
	Delete(ctx context.Context, id int64) error
	Pickers(ctx context.Context, childID int64) ([]Picker, error)
	Picker(ctx context.Context, id int64) (Picker, error)
	CreatePicker(ctx context.Context, in NewPicker) (Picker, error)
	UpdatePicker(ctx context.Context, p Picker) (Picker, error)
	DeletePicker(ctx context.Context, id int64) error
}

// Service handles child registration, picker management and QR lookup.
type Service struct {
	store      Store
	photos     photos.Store
	schoolName string
	log        *zap.Logger
}

// NewService wires the child workflows.
func NewService(store Store, photoStore photos.Store, schoolName string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, photos: photoStore, schoolName: schoolName, log: log}
}

func (s *Service) List(ctx context.Context) ([]Child, error) {
	return s.store.List(ctx)
}

// Create registers a single child. First and last name are required.
func (s *Service) Create(ctx context.Context, in NewChild) (Child, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return Child{}, apperr.Validation("firstName and lastName are required")
	}
	return s.store.Create(ctx, in)
}

// Import registers every row of a roster CSV, all or nothing.
func (s *Service) Import(ctx context.Context, content []byte) ([]Child, error) {
	if len(content) > MaxImportBytes {
		return nil, apperr.Validation("CSV file must be 2 MB or smaller")
	}
	rows, err := ParseRoster(string(content))
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateMany(ctx, rows)
	if err != nil {
		return nil, err
	}
	s.log.Info("roster imported", zap.Int("count", len(created)))
	return created, nil
}

// Registration is a child with one photo per picker slot.
type Registration struct {
	FullName      string
	ClassName     string
	GuardianPhone string
	Photos        []photos.Image
}

// SplitFullName splits at the first space; everything after it is the last name.
func SplitFullName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	i := strings.Index(full, " ")
	if i < 0 {
		return full, ""
	}
	return strings.TrimSpace(full[:i]), strings.TrimSpace(full[i+1:])
}

// Register creates a child and its three pickers together. Photos are stored
// under the new child's id before the transaction commits.
func (s *Service) Register(ctx context.Context, reg Registration) (Child, error) {
	if strings.TrimSpace(reg.FullName) == "" {
		return Child{}, apperr.Validation("Full name is required")
	}
	if len(reg.Photos) != MaxPickers {
		return Child{}, apperr.Validation("All three holder photos are required")
	}
	first, last := SplitFullName(reg.FullName)
	in := NewChild{
		FirstName:     first,
		LastName:      last,
		ClassName:     optional(reg.ClassName),
		GuardianPhone: optional(reg.GuardianPhone),
	}
	child, _, err := s.store.CreateWithPickers(ctx, in, func(ctx context.Context, childID int64) ([]NewPicker, error) {
		out := make([]NewPicker, 0, len(reg.Photos))
		for i, img := range reg.Photos {
			url, err := s.photos.Save(ctx, photos.FileName(childID, i, img.Ext), img.Data)
			if err != nil {
				return nil, fmt.Errorf("save photo %d: %w", i+1, err)
			}
			name := img.BaseName
			if name == "" {
				name = DefaultPickerName(i)
			}
			out = append(out, NewPicker{Name: name, PhotoURL: url, SortOrder: i})
		}
		return out, nil
	})
	if err != nil {
		return Child{}, err
	}
	s.log.Info("child registered with pickers", zap.Int64("child_id", child.ID))
	return child, nil
}

// Update applies a partial change to a child.
func (s *Service) Update(ctx context.Context, id int64, p ChildPatch) (Child, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return Child{}, err
	}
	if p.FirstName != nil {
		c.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		c.LastName = *p.LastName
	}
	if p.ClassName != nil {
		c.ClassName = p.ClassName
	}
	if p.GuardianPhone != nil {
		c.GuardianPhone = p.GuardianPhone
	}
	return s.store.Update(ctx, c)
}

func (s *Service) SetQRHidden(ctx context.Context, id int64, hidden bool) (Child, error) {
	return s.store.SetQRHidden(ctx, id, hidden)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// Lookup resolves a scanned QR code to the child and its pickers.
func (s *Service) Lookup(ctx context.Context, code string) (Lookup, error) {
	if strings.TrimSpace(code) == "" {
		return Lookup{}, apperr.Validation("QR code is required")
	}
	payload, err := ParseQR(code)
	if err != nil {
		return Lookup{}, ErrQRNotFound
	}
	child, err := s.store.Get(ctx, payload.ChildID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return Lookup{}, ErrQRNotFound
		}
		return Lookup{}, err
	}
	if !payload.Matches(child) {
		s.log.Warn("QR external id does not match child record",
			zap.Int64("child_id", child.ID),
			zap.String("qr_external_id", payload.ExternalID))
	}
	s.log.Debug("qr resolved", zap.Stringer("kind", payload.Kind), zap.Int64("child_id", child.ID))
	pickers, err := s.store.Pickers(ctx, child.ID)
	if err != nil {
		return Lookup{}, err
	}
	out := Lookup{
		ID:                child.ID,
		FullName:          child.FullName(),
		ClassName:         child.ClassName,
		SchoolName:        s.schoolName,
		AuthorizedPickers: make([]ScanPicker, 0, len(pickers)),
	}
	for i, p := range pickers {
		v := view(p, i)
		out.AuthorizedPickers = append(out.AuthorizedPickers, ScanPicker{
			ID: v.ID, Name: v.Name, Relationship: v.Relationship, PhotoURL: v.PhotoURL,
		})
	}
	return out, nil
}

func view(p Picker, index int) PickerView {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = DefaultPickerName(index)
	}
	return PickerView{
		ID:           p.ID,
		Name:         name,
		Relationship: p.Relationship,
		PhotoURL:     photos.NormalizeURL(p.PhotoURL),
		SortOrder:    p.SortOrder,
	}
}

// Pickers lists a child's pickers for the dashboard.
func (s *Service) Pickers(ctx context.Context, childID int64) ([]PickerView, error) {
	if _, err := s.store.Get(ctx, childID); err != nil {
		return nil, err
	}
	pickers, err := s.store.Pickers(ctx, childID)
	if err != nil {
		return nil, err
	}
	out := make([]PickerView, 0, len(pickers))
	for i, p := range pickers {
		out = append(out, view(p, i))
	}
	return out, nil
}

// PickerInput carries an add or update request. Image wins over PhotoURL.
type PickerInput struct {
	Name         *string
	Relationship *string
	PhotoURL     *string
	SortOrder    *int
	Image        *photos.Image
}

func firstFreeSlot(existing []Picker) int {
	taken := make(map[int]bool, len(existing))
	for _, p := range existing {
		taken[p.SortOrder] = true
	}
	for i := 0; i < MaxPickers; i++ {
		if !taken[i] {
			return i
		}
	}
	return len(existing)
}

// AddPicker attaches a picker to a child. SortOrder defaults to the lowest free position.
func (s *Service) AddPicker(ctx context.Context, childID int64, in PickerInput) (PickerView, error) {
	if _, err := s.store.Get(ctx, childID); err != nil {
		return PickerView{}, err
	}
	existing, err := s.store.Pickers(ctx, childID)
	if err != nil {
		return PickerView{}, err
	}
	if len(existing) >= MaxPickers {
		return PickerView{}, ErrTooManyPickers
	}
	if in.Image == nil && (in.PhotoURL == nil || strings.TrimSpace(*in.PhotoURL) == "") {
		return PickerView{}, apperr.Validation("Either photo (file) or photoUrl is required")
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return PickerView{}, apperr.Validation("name is required")
	}
	sort := firstFreeSlot(existing)
	if in.SortOrder != nil {
		sort = *in.SortOrder
	}
	if sort < 0 || sort >= MaxPickers {
		return PickerView{}, apperr.Validation("pickerIndex must be 0, 1 or 2")
	}
	for _, p := range existing {
		if p.SortOrder == sort {
			return PickerView{}, apperr.Conflict("That picker slot is already taken")
		}
	}

	url := ""
	if in.PhotoURL != nil {
		url = strings.TrimSpace(*in.PhotoURL)
	}
	if in.Image != nil {
		url, err = s.photos.Save(ctx, photos.FileName(childID, sort, in.Image.Ext), in.Image.Data)
		if err != nil {
			return PickerView{}, err
		}
	}
	var rel *string
	if in.Relationship != nil {
		rel = optional(*in.Relationship)
	}
	p, err := s.store.CreatePicker(ctx, NewPicker{
		ChildID:      childID,
		Name:         strings.TrimSpace(*in.Name),
		Relationship: rel,
		PhotoURL:     url,
		SortOrder:    sort,
	})
	if err != nil {
		return PickerView{}, err
	}
	return view(p, sort), nil
}

func (s *Service) ownedPicker(ctx context.Context, childID, pickerID int64) (Picker, error) {
	p, err := s.store.Picker(ctx, pickerID)
	if err != nil {
		return Picker{}, err
	}
	if p.ChildID != childID {
		return Picker{}, ErrPickerNotFound
	}
	return p, nil
}

// UpdatePicker changes a picker of the given child. A blank name resets to the slot label.
func (s *Service) UpdatePicker(ctx context.Context, childID, pickerID int64, in PickerInput) (PickerView, error) {
	p, err := s.ownedPicker(ctx, childID, pickerID)
	if err != nil {
		return PickerView{}, err
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
		if p.Name == "" {
			p.Name = DefaultPickerName(p.SortOrder)
		}
	}
	if in.Relationship != nil {
		p.Relationship = in.Relationship
	}
	switch {
	case in.Image != nil:
		p.PhotoURL, err = s.photos.Save(ctx, photos.FileName(childID, p.SortOrder, in.Image.Ext), in.Image.Data)
		if err != nil {
			return PickerView{}, err
		}
	case in.PhotoURL != nil:
		p.PhotoURL = *in.PhotoURL
	}
	updated, err := s.store.UpdatePicker(ctx, p)
	if err != nil {
		return PickerView{}, err
	}
	return view(updated, updated.SortOrder), nil
}

func (s *Service) DeletePicker(ctx context.Context, childID, pickerID int64) error {
	if _, err := s.ownedPicker(ctx, childID, pickerID); err != nil {
		return err
	}
	return s.store.DeletePicker(ctx, pickerID)
}
