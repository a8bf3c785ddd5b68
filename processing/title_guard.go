package processing

import (
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
)

var ErrTitleInFlight = errors.New("a book with this title is already being generated")

// TitleGuard holds a reservation per title while its book is generated.
// Reservations expire after ttl in case a release is missed.
type TitleGuard struct {
	inFlight *cache.Cache
}

func NewTitleGuard(ttl time.Duration) *TitleGuard {
	return &TitleGuard{inFlight: cache.New(ttl, ttl)}
}

// Reserve claims title, failing with ErrTitleInFlight if it is taken.
func (g *TitleGuard) Reserve(title string) error {
	if err := g.inFlight.Add(title, struct{}{}, cache.DefaultExpiration); err != nil {
		return ErrTitleInFlight
	}
	return nil
}

func (g *TitleGuard) Release(title string) {
	g.inFlight.Delete(title)
}
