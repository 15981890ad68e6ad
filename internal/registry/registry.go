// Package registry holds the in-session view of registered tenpistas and
// their transaction counters. The remote ledger service is authoritative;
// the registry is a cache that re-validates quota against the freshest
// reachable state before a transaction is attributed.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"tenpo/internal/core"
)

// Directory is the slice of the ledger client the registry depends on.
type Directory interface {
	CreateTenpista(ctx context.Context, t core.Tenpista) (core.Tenpista, error)
	GetTenpista(ctx context.Context, id int64) (core.Tenpista, error)
	ListTenpistas(ctx context.Context) ([]core.Tenpista, error)
}

type Registry struct {
	mu     sync.RWMutex
	byID   map[int64]core.Tenpista
	remote Directory
}

func New(remote Directory) *Registry {
	return &Registry{
		byID:   make(map[int64]core.Tenpista),
		remote: remote,
	}
}

// WarmUp seeds the local view from the remote directory. Safe to skip: the
// view also fills lazily through Lookup and ReserveCapacity.
func (r *Registry) WarmUp(ctx context.Context) error {
	tenpistas, err := r.remote.ListTenpistas(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tenpistas {
		r.byID[t.ID] = t
	}

	slog.InfoContext(ctx, "Registry warmed up",
		"tenpistas", len(tenpistas),
		"component", "registry")
	return nil
}

// Register validates the candidate, rejects duplicate account numbers against
// the local view without touching the network, then creates the tenpista
// remotely and adds it to the view with a zero counter.
func (r *Registry) Register(ctx context.Context, nombre, apellido, nroCuenta string) (core.Tenpista, error) {
	candidate := core.Tenpista{
		Nombre:    strings.TrimSpace(nombre),
		Apellido:  strings.TrimSpace(apellido),
		NroCuenta: strings.TrimSpace(nroCuenta),
	}
	if err := candidate.Validate(); err != nil {
		return core.Tenpista{}, err
	}

	r.mu.RLock()
	for _, t := range r.byID {
		if t.NroCuenta == candidate.NroCuenta {
			r.mu.RUnlock()
			return core.Tenpista{}, core.ErrDuplicateCuenta
		}
	}
	r.mu.RUnlock()

	created, err := r.remote.CreateTenpista(ctx, candidate)
	if err != nil {
		return core.Tenpista{}, err
	}
	created.TransaccionesCount = 0

	r.mu.Lock()
	r.byID[created.ID] = created
	r.mu.Unlock()

	slog.InfoContext(ctx, "Tenpista registered",
		"tenpista_id", created.ID,
		"tenpista", created.FullName(),
		"nro_cuenta", created.NroCuenta,
		"component", "registry",
		"operation", "register")
	return created, nil
}

// Lookup resolves a tenpista by id, serving from the local view and falling
// back to a remote fetch on a miss.
func (r *Registry) Lookup(ctx context.Context, id int64) (core.Tenpista, error) {
	r.mu.RLock()
	t, ok := r.byID[id]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	fetched, err := r.remote.GetTenpista(ctx, id)
	if err != nil {
		return core.Tenpista{}, err
	}

	r.mu.Lock()
	r.byID[fetched.ID] = fetched
	r.mu.Unlock()
	return fetched, nil
}

// ReserveCapacity checks that one more transaction may be attributed to the
// tenpista. The check is advisory: the counter moves only through
// ConfirmAttribution, after the ledger confirms the write.
//
// Quota is re-validated against a fresh remote fetch; when the service is
// unreachable the cached copy decides, so a flaky network degrades to the
// session view instead of blocking submissions.
func (r *Registry) ReserveCapacity(ctx context.Context, id int64) (core.Tenpista, error) {
	fresh, err := r.remote.GetTenpista(ctx, id)
	switch {
	case err == nil:
		r.mu.Lock()
		if cached, ok := r.byID[id]; ok && cached.TransaccionesCount > fresh.TransaccionesCount {
			// Never let a stale remote read roll back confirmed attributions.
			fresh.TransaccionesCount = cached.TransaccionesCount
		}
		r.byID[id] = fresh
		r.mu.Unlock()
	case errors.Is(err, core.ErrTenpistaNotFound):
		return core.Tenpista{}, core.ErrTenpistaNotFound
	case core.IsRemote(err):
		r.mu.RLock()
		cached, ok := r.byID[id]
		r.mu.RUnlock()
		if !ok {
			return core.Tenpista{}, err
		}
		slog.WarnContext(ctx, "Quota refresh failed, using cached tenpista",
			"tenpista_id", id,
			"error", err,
			"component", "registry",
			"operation", "reserve_capacity")
		fresh = cached
	default:
		return core.Tenpista{}, err
	}

	if !fresh.HasCapacity() {
		return core.Tenpista{}, core.ErrCapacityExceeded
	}
	return fresh, nil
}

// ConfirmAttribution bumps the counter by one. Only the lifecycle controller
// calls this, and only after the ledger confirmed the write.
func (r *Registry) ConfirmAttribution(id int64) (core.Tenpista, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok {
		return core.Tenpista{}, core.ErrTenpistaNotFound
	}
	if !t.HasCapacity() {
		return core.Tenpista{}, core.ErrCapacityExceeded
	}
	t.TransaccionesCount++
	r.byID[id] = t
	return t, nil
}

// List returns a snapshot of the local view ordered by id.
func (r *Registry) List() []core.Tenpista {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.Tenpista, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindByFullName resolves a tenpista by the denormalized display name carried
// on transactions. Weak reference only: used for display lookups, never for
// attribution.
func (r *Registry) FindByFullName(fullName string) (core.Tenpista, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.byID {
		if t.FullName() == fullName {
			return t, true
		}
	}
	return core.Tenpista{}, false
}
