package api

import (
	"context"
	"errors"
	"sort"
	"sync"

	"pickup/internal/attendance"
	"pickup/internal/children"
	"pickup/internal/queue"
	"pickup/internal/teachers"
)

type fakeAttendance struct {
	mu      sync.Mutex
	logs    []attendance.Log
	pickers map[int64][]int64
	failAll error
}

func (f *fakeAttendance) DailyLogs(_ context.Context, childID int64, date string) ([]attendance.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	var out []attendance.Log
	for _, l := range f.logs {
		if l.ChildID != nil && *l.ChildID == childID && l.Date == date {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeAttendance) PickerIDs(_ context.Context, childID int64) ([]int64, error) {
	return f.pickers[childID], nil
}

func (f *fakeAttendance) InsertLog(_ context.Context, l attendance.Log) (attendance.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = int64(len(f.logs) + 1)
	f.logs = append(f.logs, l)
	return l, nil
}

func (f *fakeAttendance) RecordsByDate(_ context.Context, date string) ([]attendance.Record, error) {
	var out []attendance.Record
	for _, l := range f.logs {
		if l.Date == date {
			out = append(out, attendance.Record{Log: l, ChildName: "Sarah Nakato"})
		}
	}
	return out, nil
}

func (f *fakeAttendance) AllRecords(context.Context) ([]attendance.Record, error) {
	out := []attendance.Record{}
	for _, l := range f.logs {
		out = append(out, attendance.Record{Log: l})
	}
	return out, nil
}

func (f *fakeAttendance) Dates(context.Context) ([]string, error) {
	seen := map[string]bool{}
	out := []string{}
	for _, l := range f.logs {
		if !seen[l.Date] {
			seen[l.Date] = true
			out = append(out, l.Date)
		}
	}
	return out, nil
}

func (f *fakeAttendance) DeleteByDate(_ context.Context, date string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.logs[:0]
	var n int64
	for _, l := range f.logs {
		if l.Date == date {
			n++
			continue
		}
		kept = append(kept, l)
	}
	f.logs = kept
	return n, nil
}

type fakeChildren struct {
	mu      sync.Mutex
	next    int64
	kids    map[int64]children.Child
	pickers map[int64]children.Picker
}

func newFakeChildren() *fakeChildren {
	return &fakeChildren{kids: map[int64]children.Child{}, pickers: map[int64]children.Picker{}}
}

func (f *fakeChildren) id() int64 {
	f.next++
	return f.next
}

func (f *fakeChildren) List(context.Context) ([]children.Child, error) {
	out := []children.Child{}
	for _, c := range f.kids {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeChildren) Get(_ context.Context, id int64) (children.Child, error) {
	c, ok := f.kids[id]
	if !ok {
		return children.Child{}, children.ErrChildNotFound
	}
	return c, nil
}

func (f *fakeChildren) Create(_ context.Context, in children.NewChild) (children.Child, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := children.Child{ID: f.id(), ExternalID: in.ExternalID, FirstName: in.FirstName, LastName: in.LastName,
		ClassName: in.ClassName, GuardianPhone: in.GuardianPhone}
	f.kids[c.ID] = c
	return c, nil
}

func (f *fakeChildren) CreateMany(ctx context.Context, in []children.NewChild) ([]children.Child, error) {
	out := make([]children.Child, 0, len(in))
	for _, n := range in {
		c, _ := f.Create(ctx, n)
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeChildren) CreateWithPickers(ctx context.Context, in children.NewChild, build func(context.Context, int64) ([]children.NewPicker, error)) (children.Child, []children.Picker, error) {
	c, _ := f.Create(ctx, in)
	specs, err := build(ctx, c.ID)
	if err != nil {
		delete(f.kids, c.ID)
		return children.Child{}, nil, err
	}
	var out []children.Picker
	for _, s := range specs {
		s.ChildID = c.ID
		p, _ := f.CreatePicker(ctx, s)
		out = append(out, p)
	}
	return c, out, nil
}

func (f *fakeChildren) Update(_ context.Context, c children.Child) (children.Child, error) {
	f.kids[c.ID] = c
	return c, nil
}

func (f *fakeChildren) SetQRHidden(_ context.Context, id int64, hidden bool) (children.Child, error) {
	c, ok := f.kids[id]
	if !ok {
		return children.Child{}, children.ErrChildNotFound
	}
	c.QRHidden = hidden
	f.kids[id] = c
	return c, nil
}

func (f *fakeChildren) Delete(_ context.Context, id int64) error {
	delete(f.kids, id)
	for pid, p := range f.pickers {
		if p.ChildID == id {
			delete(f.pickers, pid)
		}
	}
	return nil
}

func (f *fakeChildren) Pickers(_ context.Context, childID int64) ([]children.Picker, error) {
	var out []children.Picker
	for _, p := range f.pickers {
		if p.ChildID == childID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (f *fakeChildren) Picker(_ context.Context, id int64) (children.Picker, error) {
	p, ok := f.pickers[id]
	if !ok {
		return children.Picker{}, children.ErrPickerNotFound
	}
	return p, nil
}

func (f *fakeChildren) CreatePicker(_ context.Context, in children.NewPicker) (children.Picker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := children.Picker{ID: f.id(), ChildID: in.ChildID, Name: in.Name, Relationship: in.Relationship,
		PhotoURL: in.PhotoURL, SortOrder: in.SortOrder}
	f.pickers[p.ID] = p
	return p, nil
}

func (f *fakeChildren) UpdatePicker(_ context.Context, p children.Picker) (children.Picker, error) {
	f.pickers[p.ID] = p
	return p, nil
}

func (f *fakeChildren) DeletePicker(_ context.Context, id int64) error {
	delete(f.pickers, id)
	return nil
}

type fakeTeachers struct {
	byID map[int64]teachers.Teacher
}

func (f *fakeTeachers) find(match func(teachers.Teacher) bool) (teachers.Teacher, error) {
	for _, t := range f.byID {
		if match(t) {
			return t, nil
		}
	}
	return teachers.Teacher{}, teachers.ErrNotFound
}

func (f *fakeTeachers) ActiveByPhone(_ context.Context, phone string) (teachers.Teacher, error) {
	return f.find(func(t teachers.Teacher) bool { return t.Phone == phone && t.IsActive })
}

func (f *fakeTeachers) ByPhone(_ context.Context, phone string) (teachers.Teacher, error) {
	return f.find(func(t teachers.Teacher) bool { return t.Phone == phone })
}

func (f *fakeTeachers) Get(_ context.Context, id int64) (teachers.Teacher, error) {
	t, ok := f.byID[id]
	if !ok {
		return teachers.Teacher{}, teachers.ErrNotFound
	}
	return t, nil
}

func (f *fakeTeachers) List(context.Context) ([]teachers.Teacher, error) {
	out := []teachers.Teacher{}
	for _, t := range f.byID {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTeachers) Create(_ context.Context, t teachers.Teacher) (teachers.Teacher, error) {
	t.ID = int64(len(f.byID) + 1)
	t.IsActive = true
	f.byID[t.ID] = t
	return t, nil
}

func (f *fakeTeachers) Update(_ context.Context, t teachers.Teacher) (teachers.Teacher, error) {
	f.byID[t.ID] = t
	return t, nil
}

func (f *fakeTeachers) Delete(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return teachers.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type recordingQueue struct {
	mu   sync.Mutex
	msgs []queue.Message
	err  error
}

func (q *recordingQueue) Publish(_ context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

func (q *recordingQueue) Consume(context.Context) (<-chan queue.Message, error) {
	return nil, errors.New("not supported")
}

type memPhotos struct{}

func (memPhotos) Save(_ context.Context, name string, _ []byte) (string, error) {
	return "/uploads/pickers/" + name, nil
}

type staticChecker bool

func (s staticChecker) Healthy(context.Context) bool { return bool(s) }
