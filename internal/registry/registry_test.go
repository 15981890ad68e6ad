package registry

import (
	"context"
	"errors"
	"testing"

	"tenpo/internal/core"
)

// fakeDirectory implements Directory in memory and counts remote calls.
type fakeDirectory struct {
	byID        map[int64]core.Tenpista
	nextID      int64
	createCalls int
	getCalls    int
	failWith    error // when set, every call fails with this error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{byID: make(map[int64]core.Tenpista), nextID: 1}
}

func (f *fakeDirectory) CreateTenpista(_ context.Context, t core.Tenpista) (core.Tenpista, error) {
	f.createCalls++
	if f.failWith != nil {
		return core.Tenpista{}, f.failWith
	}
	t.ID = f.nextID
	f.nextID++
	f.byID[t.ID] = t
	return t, nil
}

func (f *fakeDirectory) GetTenpista(_ context.Context, id int64) (core.Tenpista, error) {
	f.getCalls++
	if f.failWith != nil {
		return core.Tenpista{}, f.failWith
	}
	t, ok := f.byID[id]
	if !ok {
		return core.Tenpista{}, core.ErrTenpistaNotFound
	}
	return t, nil
}

func (f *fakeDirectory) ListTenpistas(_ context.Context) ([]core.Tenpista, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]core.Tenpista, 0, len(f.byID))
	for _, t := range f.byID {
		out = append(out, t)
	}
	return out, nil
}

func TestRegister(t *testing.T) {
	dir := newFakeDirectory()
	reg := New(dir)

	got, err := reg.Register(context.Background(), "Ana", "Lopez", "1001")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got.ID == 0 || got.TransaccionesCount != 0 {
		t.Fatalf("unexpected tenpista %+v", got)
	}

	if _, err := reg.Lookup(context.Background(), got.ID); err != nil {
		t.Fatalf("Lookup after Register: %v", err)
	}
}

func TestRegister_DuplicateCuentaIssuesNoRemoteCall(t *testing.T) {
	dir := newFakeDirectory()
	reg := New(dir)

	if _, err := reg.Register(context.Background(), "Ana", "Lopez", "1001"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	calls := dir.createCalls

	_, err := reg.Register(context.Background(), "Juan", "Perez", "1001")
	if !errors.Is(err, core.ErrDuplicateCuenta) {
		t.Fatalf("expected ErrDuplicateCuenta, got %v", err)
	}
	if dir.createCalls != calls {
		t.Fatal("duplicate registration must not reach the remote service")
	}
}

func TestRegister_Invalid(t *testing.T) {
	dir := newFakeDirectory()
	reg := New(dir)

	cases := [][3]string{
		{"", "Lopez", "1001"},
		{"Ana", "", "1001"},
		{"Ana", "Lopez", ""},
		{"Ana", "Lopez", "12ab"},
	}
	for i, c := range cases {
		if _, err := reg.Register(context.Background(), c[0], c[1], c[2]); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
	if dir.createCalls != 0 {
		t.Fatal("invalid registrations must not reach the remote service")
	}
}

func TestLookup_RemoteMiss(t *testing.T) {
	dir := newFakeDirectory()
	dir.byID[5] = core.Tenpista{ID: 5, Nombre: "Ana", Apellido: "Lopez", NroCuenta: "1001"}
	reg := New(dir)

	got, err := reg.Lookup(context.Background(), 5)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.ID != 5 {
		t.Fatalf("unexpected tenpista %+v", got)
	}

	// Second lookup must come from the cache.
	calls := dir.getCalls
	if _, err := reg.Lookup(context.Background(), 5); err != nil {
		t.Fatalf("cached Lookup: %v", err)
	}
	if dir.getCalls != calls {
		t.Fatal("cached lookup must not reach the remote service")
	}

	if _, err := reg.Lookup(context.Background(), 99); !errors.Is(err, core.ErrTenpistaNotFound) {
		t.Fatalf("expected ErrTenpistaNotFound, got %v", err)
	}
}

func TestReserveCapacity_AtLimit(t *testing.T) {
	dir := newFakeDirectory()
	dir.byID[1] = core.Tenpista{ID: 1, Nombre: "Bea", Apellido: "Soto", NroCuenta: "2002", TransaccionesCount: core.MaxTransacciones}
	reg := New(dir)

	_, err := reg.ReserveCapacity(context.Background(), 1)
	if !errors.Is(err, core.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestReserveCapacity_RefreshesFromRemote(t *testing.T) {
	dir := newFakeDirectory()
	dir.byID[1] = core.Tenpista{ID: 1, Nombre: "Ana", Apellido: "Lopez", NroCuenta: "1001", TransaccionesCount: 40}
	reg := New(dir)

	if err := reg.WarmUp(context.Background()); err != nil {
		t.Fatalf("WarmUp: %v", err)
	}

	// Another client pushed the remote count past the local view.
	stale := dir.byID[1]
	stale.TransaccionesCount = 60
	dir.byID[1] = stale

	got, err := reg.ReserveCapacity(context.Background(), 1)
	if err != nil {
		t.Fatalf("ReserveCapacity: %v", err)
	}
	if got.TransaccionesCount != 60 {
		t.Fatalf("count = %d, want refreshed 60", got.TransaccionesCount)
	}
}

func TestReserveCapacity_FallsBackToCacheOnRemoteError(t *testing.T) {
	dir := newFakeDirectory()
	dir.byID[1] = core.Tenpista{ID: 1, Nombre: "Ana", Apellido: "Lopez", NroCuenta: "1001", TransaccionesCount: 10}
	reg := New(dir)
	if err := reg.WarmUp(context.Background()); err != nil {
		t.Fatalf("WarmUp: %v", err)
	}

	dir.failWith = &core.RemoteError{Op: "get tenpista", Status: 503}
	got, err := reg.ReserveCapacity(context.Background(), 1)
	if err != nil {
		t.Fatalf("ReserveCapacity with unreachable remote: %v", err)
	}
	if got.TransaccionesCount != 10 {
		t.Fatalf("count = %d, want cached 10", got.TransaccionesCount)
	}

	// Nothing cached: the remote error surfaces.
	if _, err := reg.ReserveCapacity(context.Background(), 99); !core.IsRemote(err) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
}

func TestReserveCapacity_NeverRollsBackConfirmedCount(t *testing.T) {
	dir := newFakeDirectory()
	dir.byID[1] = core.Tenpista{ID: 1, Nombre: "Ana", Apellido: "Lopez", NroCuenta: "1001", TransaccionesCount: 0}
	reg := New(dir)
	if err := reg.WarmUp(context.Background()); err != nil {
		t.Fatalf("WarmUp: %v", err)
	}

	if _, err := reg.ConfirmAttribution(1); err != nil {
		t.Fatalf("ConfirmAttribution: %v", err)
	}

	// Remote still reports 0; the local confirmed count must win.
	got, err := reg.ReserveCapacity(context.Background(), 1)
	if err != nil {
		t.Fatalf("ReserveCapacity: %v", err)
	}
	if got.TransaccionesCount != 1 {
		t.Fatalf("count = %d, want 1", got.TransaccionesCount)
	}
}

func TestConfirmAttribution(t *testing.T) {
	dir := newFakeDirectory()
	reg := New(dir)
	created, err := reg.Register(context.Background(), "Ana", "Lopez", "1001")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := reg.ConfirmAttribution(created.ID)
	if err != nil {
		t.Fatalf("ConfirmAttribution: %v", err)
	}
	if got.TransaccionesCount != 1 {
		t.Fatalf("count = %d, want 1", got.TransaccionesCount)
	}

	if _, err := reg.ConfirmAttribution(999); !errors.Is(err, core.ErrTenpistaNotFound) {
		t.Fatalf("expected ErrTenpistaNotFound, got %v", err)
	}
}

func TestConfirmAttribution_NeverExceedsCap(t *testing.T) {
	dir := newFakeDirectory()
	dir.byID[1] = core.Tenpista{ID: 1, Nombre: "Bea", Apellido: "Soto", NroCuenta: "2002", TransaccionesCount: core.MaxTransacciones}
	reg := New(dir)
	if err := reg.WarmUp(context.Background()); err != nil {
		t.Fatalf("WarmUp: %v", err)
	}

	if _, err := reg.ConfirmAttribution(1); !errors.Is(err, core.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	got, _ := reg.Lookup(context.Background(), 1)
	if got.TransaccionesCount != core.MaxTransacciones {
		t.Fatalf("count mutated to %d", got.TransaccionesCount)
	}
}

func TestFindByFullName(t *testing.T) {
	dir := newFakeDirectory()
	reg := New(dir)
	if _, err := reg.Register(context.Background(), "Ana", "Lopez", "1001"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, ok := reg.FindByFullName("Ana Lopez"); !ok {
		t.Fatal("expected to find Ana Lopez")
	}
	if _, ok := reg.FindByFullName("Juan Perez"); ok {
		t.Fatal("did not expect to find Juan Perez")
	}
}
