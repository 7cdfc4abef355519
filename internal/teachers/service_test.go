package teachers

import (
	"context"
	"errors"
	"testing"
	"time"

	"pickup/internal/apperr"
	"pickup/internal/auth"
)

type fakeStore struct {
	byID   map[int64]Teacher
	nextID int64
}

func newFakeStore() *fakeStore { return &fakeStore{byID: map[int64]Teacher{}} }

func (f *fakeStore) find(phone string, activeOnly bool) (Teacher, error) {
	for _, t := range f.byID {
		if t.Phone == phone && (!activeOnly || t.IsActive) {
			return t, nil
		}
	}
	return Teacher{}, ErrNotFound
}

func (f *fakeStore) ActiveByPhone(_ context.Context, phone string) (Teacher, error) {
	return f.find(phone, true)
}

func (f *fakeStore) ByPhone(_ context.Context, phone string) (Teacher, error) {
	return f.find(phone, false)
}

func (f *fakeStore) Get(_ context.Context, id int64) (Teacher, error) {
	t, ok := f.byID[id]
	if !ok {
		return Teacher{}, ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) List(context.Context) ([]Teacher, error) {
	out := []Teacher{}
	for i := int64(1); i <= f.nextID; i++ {
		if t, ok := f.byID[i]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, t Teacher) (Teacher, error) {
	if _, err := f.find(t.Phone, false); err == nil {
		return Teacher{}, apperr.Conflict("A teacher with this phone already exists")
	}
	f.nextID++
	t.ID = f.nextID
	t.IsActive = true
	f.byID[t.ID] = t
	return t, nil
}

func (f *fakeStore) Update(_ context.Context, t Teacher) (Teacher, error) {
	if _, ok := f.byID[t.ID]; !ok {
		return Teacher{}, ErrNotFound
	}
	f.byID[t.ID] = t
	return t, nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

const secret = "test-secret-0123456789"

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	return NewService(store, TokenConfig{Issuer: "pickup", Secret: secret, TTL: time.Hour}, nil), store
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, NewTeacher{Name: "Grace", Phone: "0772000111", PIN: "1234", Access: "scanner"})
	if err != nil {
		t.Fatal(err)
	}
	if created.PinHash == "1234" || created.Access != auth.AccessScanner {
		t.Fatalf("unexpected teacher %+v", created)
	}

	sess, err := svc.Login(ctx, "0772000111", "1234")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Teacher.ID != created.ID || sess.Teacher.Access != auth.AccessScanner {
		t.Fatalf("unexpected session %+v", sess.Teacher)
	}
	claims, err := auth.Parse(sess.Token, secret, "pickup")
	if err != nil {
		t.Fatal(err)
	}
	if claims.TeacherID != created.ID || claims.Scope() != auth.AccessScanner {
		t.Fatalf("claims %+v", claims)
	}

	cases := []struct {
		phone, pin string
		err        error
	}{
		{"", "1234", ErrMissingLogin},
		{"0772000111", "", ErrMissingLogin},
		{"0772000111", "12a4", ErrBadPIN},
		{"0772000111", "12345", ErrBadPIN},
		{"0772000111", "4321", ErrBadCredentials},
		{"0700000000", "1234", ErrBadCredentials},
	}
	for _, tc := range cases {
		if _, err := svc.Login(ctx, tc.phone, tc.pin); !errors.Is(err, tc.err) {
			t.Errorf("login(%q, %q) = %v, want %v", tc.phone, tc.pin, err, tc.err)
		}
	}
}

func TestLoginRejectsInactive(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tc, err := svc.Create(ctx, NewTeacher{Name: "Paul", Phone: "0701", PIN: "0000"})
	if err != nil {
		t.Fatal(err)
	}
	inactive := false
	if _, err := svc.Update(ctx, tc.ID, Patch{IsActive: &inactive}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, "0701", "0000"); apperr.Status(err) != 401 {
		t.Fatalf("inactive login: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Create(ctx, NewTeacher{Name: "A", Phone: "1"}); !errors.Is(err, ErrMissingTeacher) {
		t.Fatalf("missing pin: %v", err)
	}
	if _, err := svc.Create(ctx, NewTeacher{Name: "A", Phone: "1", PIN: "abcd"}); !errors.Is(err, ErrBadPIN) {
		t.Fatalf("bad pin: %v", err)
	}
	got, err := svc.Create(ctx, NewTeacher{Name: "A", Phone: "1", PIN: "1111", Access: "superuser"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Access != auth.AccessBoth {
		t.Fatalf("access = %s", got.Access)
	}
	if _, err := svc.Create(ctx, NewTeacher{Name: "B", Phone: "1", PIN: "2222"}); apperr.Status(err) != 409 {
		t.Fatalf("duplicate phone: %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tc, _ := svc.Create(ctx, NewTeacher{Name: "Ruth", Phone: "0702", PIN: "1234", Access: "admin"})

	pin, access := "9876", "janitor"
	got, err := svc.Update(ctx, tc.ID, Patch{PIN: &pin, Access: &access})
	if err != nil {
		t.Fatal(err)
	}
	if got.Access != auth.AccessBoth || !auth.CheckPIN(got.PinHash, "9876") {
		t.Fatalf("update not applied: %+v", got)
	}
	bad := "98"
	if _, err := svc.Update(ctx, tc.ID, Patch{PIN: &bad}); !errors.Is(err, ErrBadPIN) {
		t.Fatalf("short pin: %v", err)
	}
	if _, err := svc.Update(ctx, 77, Patch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown teacher: %v", err)
	}
	if err := svc.Delete(ctx, tc.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, tc.ID); apperr.Status(err) != 404 {
		t.Fatalf("second delete: %v", err)
	}
}

func TestSeedHelpers(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	admin, created, err := svc.EnsureAdmin(ctx, "Head", "0770", "1357")
	if err != nil || !created || admin.Access != auth.AccessBoth {
		t.Fatalf("ensure admin: %+v %v %v", admin, created, err)
	}
	if _, created, err := svc.EnsureAdmin(ctx, "Head", "0770", "1357"); err != nil || created {
		t.Fatalf("second ensure: %v %v", created, err)
	}

	sc, _ := svc.Create(ctx, NewTeacher{Name: "Gate", Phone: "0771", PIN: "2468", Access: "scanner"})
	inactive := false
	svc.Update(ctx, sc.ID, Patch{IsActive: &inactive})

	got, err := svc.GrantAdmin(ctx, "0771")
	if err != nil {
		t.Fatal(err)
	}
	if got.Access != auth.AccessBoth || !got.IsActive {
		t.Fatalf("grant: %+v", got)
	}
	if _, err := svc.ResetPIN(ctx, "0771", "1111"); err != nil {
		t.Fatal(err)
	}
	if !auth.CheckPIN(store.byID[sc.ID].PinHash, "1111") {
		t.Fatal("pin not reset")
	}
	if _, err := svc.ResetPIN(ctx, "0999", "1111"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown phone: %v", err)
	}
}
