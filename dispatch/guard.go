package dispatch

import (
	"context"
	"fmt"

	"github.com/pollum-io/pali-gateway/origins"
	"github.com/pollum-io/pali-gateway/types"
)

// Access is the single permission verdict evaluated before any routing. The
// original checked connection state ad hoc inside each handler; here every
// CAL_REQUEST path consumes one tagged result.
type Access int

const (
	AccessAuthorized Access = iota
	AccessUnauthorized
	AccessLocked
)

type IAccessGuard interface {
	Check(ctx context.Context, origin string, mutating bool) (Access, error)
}

var _ IAccessGuard = (*accessGuard)(nil)

type accessGuard struct {
	registry origins.IOriginRegistry
	keyring  types.IKeyringHandler
}

func NewAccessGuard(registry origins.IOriginRegistry, keyring types.IKeyringHandler) IAccessGuard {
	return &accessGuard{registry: registry, keyring: keyring}
}

// Check gates a wallet call: the origin must hold a connection, and mutating
// calls additionally require an unlocked wallet. Read-only status queries are
// answered while locked.
func (g *accessGuard) Check(ctx context.Context, origin string, mutating bool) (Access, error) {
	if !g.registry.IsConnected(origin) {
		return AccessUnauthorized, nil
	}
	if mutating {
		locked, err := g.keyring.IsLocked(ctx)
		if err != nil {
			return AccessUnauthorized, fmt.Errorf("query wallet lock state: %w", err)
		}
		if locked {
			return AccessLocked, nil
		}
	}
	return AccessAuthorized, nil
}
