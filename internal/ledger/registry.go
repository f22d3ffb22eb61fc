// Package ledger implements the on-ledger shipment tracking program: the
// authorization registry, fee escrow, checkpoint log, and the shipment state
// machine itself. The underlying ordering substrate is assumed to deliver
// operations in a single global total order; the in-process implementation
// models that with one mutex around every submission.
package ledger

import (
	"github.com/freightchain/tracking-system/internal/core/domain"
)

// Registry holds the controlling principal, the manager and whitelist sets,
// and the two policy toggles. The owner is fixed at construction and is
// always implicitly a manager. Only the owner may mutate the registry.
type Registry struct {
	owner             domain.Principal
	managers          map[domain.Principal]struct{}
	whitelist         map[domain.Principal]struct{}
	whitelistRequired bool
	feeRequired       bool
}

// NewRegistry creates a registry controlled by owner.
func NewRegistry(owner domain.Principal) *Registry {
	return &Registry{
		owner:     owner,
		managers:  map[domain.Principal]struct{}{owner: {}},
		whitelist: make(map[domain.Principal]struct{}),
	}
}

func (r *Registry) Owner() domain.Principal { return r.owner }

// IsManager reports whether p is the owner or a registered manager.
func (r *Registry) IsManager(p domain.Principal) bool {
	if p == r.owner {
		return true
	}
	_, ok := r.managers[p]
	return ok
}

// IsAuthorizedToCreate reports whether p may create shipments under the
// current whitelist policy.
func (r *Registry) IsAuthorizedToCreate(p domain.Principal) bool {
	if !r.whitelistRequired {
		return true
	}
	_, ok := r.whitelist[p]
	return ok
}

func (r *Registry) WhitelistRequired() bool { return r.whitelistRequired }
func (r *Registry) FeeRequired() bool       { return r.feeRequired }

func (r *Registry) requireOwner(caller domain.Principal) error {
	if caller != r.owner {
		return domain.ErrNotOwner
	}
	return nil
}

// AddManager registers target as a manager. Owner only.
func (r *Registry) AddManager(caller, target domain.Principal) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	r.managers[target] = struct{}{}
	return nil
}

// RemoveManager revokes target's manager role. Owner only. Removing the
// owner is a no-op: the owner is a manager by construction.
func (r *Registry) RemoveManager(caller, target domain.Principal) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if target == r.owner {
		return nil
	}
	delete(r.managers, target)
	return nil
}

// AddToWhitelist allows target to create shipments when the whitelist policy
// is on. Owner only.
func (r *Registry) AddToWhitelist(caller, target domain.Principal) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	r.whitelist[target] = struct{}{}
	return nil
}

// SetWhitelistRequired toggles the whitelist policy. Owner only.
func (r *Registry) SetWhitelistRequired(caller domain.Principal, required bool) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	r.whitelistRequired = required
	return nil
}

// SetFeeRequired toggles the creation fee policy. Owner only.
func (r *Registry) SetFeeRequired(caller domain.Principal, required bool) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	r.feeRequired = required
	return nil
}
