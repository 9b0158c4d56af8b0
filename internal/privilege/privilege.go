// Package privilege raises the effective user to root for the duration of a
// call and restores it on every exit path.
package privilege

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cnchi/installer/internal/utils"
)

// ErrNotPermitted means the process cannot become root.
var ErrNotPermitted = errors.New("cannot raise privileges")

// Scope switches the effective uid.
type Scope struct {
	Geteuid func() int
	Seteuid func(int) error

	mu sync.Mutex
}

// Default uses the process credentials.
var Default = &Scope{Geteuid: geteuid, Seteuid: seteuid}

// Run executes fn as root through the default scope.
func Run(fn func() error) error {
	return Default.Run(fn)
}

// Run executes fn with effective uid 0. The previous effective uid is restored
// afterwards, also when fn fails or panics. Calls through one Scope are
// serialized.
func (s *Scope) Run(fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.Geteuid()
	if prev != 0 {
		if serr := s.Seteuid(0); serr != nil {
			return fmt.Errorf("%w: %v", ErrNotPermitted, serr)
		}
		utils.Debug("Raised privileges (euid %d -> 0)", prev)
		defer func() {
			if rerr := s.Seteuid(prev); rerr != nil {
				utils.Error("Cannot drop privileges back to euid %d: %v", prev, rerr)
				if err == nil {
					err = rerr
				}
				return
			}
			utils.Debug("Dropped privileges (euid 0 -> %d)", prev)
		}()
	}
	return fn()
}
