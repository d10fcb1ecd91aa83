// Package feedtest provides canned in-memory implementations of the data
// feed ports for tests.
package feedtest

import (
	"context"
	"sync"

	"carpark-data-service/internal/domain"
)

// Provider serves a fixed set of availability rows, or a fixed error.
type Provider struct {
	Name domain.Agency
	Rows []domain.CarparkAvailability
	Err  error

	mu    sync.Mutex
	calls int
}

func (p *Provider) Agency() domain.Agency { return p.Name }

// Calls reports how many times ListAvailability ran.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *Provider) ListAvailability(ctx context.Context) ([]domain.CarparkAvailability, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}

	out := make([]domain.CarparkAvailability, len(p.Rows))
	copy(out, p.Rows)
	return out, nil
}

// Directory serves a fixed carpark directory, or a fixed error.
type Directory struct {
	Carparks []domain.Carpark
	Rates    []domain.RateWindow
	Err      error

	mu    sync.Mutex
	calls int
}

// Calls reports how many times ListCarparks ran.
func (d *Directory) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *Directory) ListCarparks(ctx context.Context) ([]domain.Carpark, []domain.RateWindow, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	if d.Err != nil {
		return nil, nil, d.Err
	}

	carparks := make([]domain.Carpark, len(d.Carparks))
	copy(carparks, d.Carparks)
	rates := make([]domain.RateWindow, len(d.Rates))
	copy(rates, d.Rates)
	return carparks, rates, nil
}
