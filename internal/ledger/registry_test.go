package ledger

import (
	"errors"
	"testing"

	"github.com/freightchain/tracking-system/internal/core/domain"
)

const (
	testOwner    = domain.Principal("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testManager  = domain.Principal("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	testCustomer = domain.Principal("0xcccccccccccccccccccccccccccccccccccccccc")
	testOutsider = domain.Principal("0xdddddddddddddddddddddddddddddddddddddddd")
)

func TestRegistry_OwnerIsManager(t *testing.T) {
	r := NewRegistry(testOwner)

	if !r.IsManager(testOwner) {
		t.Fatalf("owner must be a manager from construction")
	}
	if r.IsManager(testManager) {
		t.Fatalf("unregistered principal reported as manager")
	}
}

func TestRegistry_AddRemoveManager(t *testing.T) {
	r := NewRegistry(testOwner)

	if err := r.AddManager(testOwner, testManager); err != nil {
		t.Fatalf("AddManager returned error: %v", err)
	}
	if !r.IsManager(testManager) {
		t.Fatalf("manager not registered")
	}

	if err := r.RemoveManager(testOwner, testManager); err != nil {
		t.Fatalf("RemoveManager returned error: %v", err)
	}
	if r.IsManager(testManager) {
		t.Fatalf("manager still registered after removal")
	}
}

func TestRegistry_RemoveOwnerIsNoop(t *testing.T) {
	r := NewRegistry(testOwner)

	if err := r.RemoveManager(testOwner, testOwner); err != nil {
		t.Fatalf("RemoveManager(owner) returned error: %v", err)
	}
	if !r.IsManager(testOwner) {
		t.Fatalf("owner lost manager role after self-removal attempt")
	}
}

func TestRegistry_NonOwnerMutationsRejected(t *testing.T) {
	r := NewRegistry(testOwner)
	if err := r.AddManager(testOwner, testManager); err != nil {
		t.Fatalf("AddManager returned error: %v", err)
	}

	cases := []struct {
		name string
		call func() error
	}{
		{"AddManager", func() error { return r.AddManager(testManager, testCustomer) }},
		{"RemoveManager", func() error { return r.RemoveManager(testManager, testManager) }},
		{"AddToWhitelist", func() error { return r.AddToWhitelist(testManager, testCustomer) }},
		{"SetWhitelistRequired", func() error { return r.SetWhitelistRequired(testManager, true) }},
		{"SetFeeRequired", func() error { return r.SetFeeRequired(testManager, true) }},
	}
	for _, tc := range cases {
		if err := tc.call(); !errors.Is(err, domain.ErrNotOwner) {
			t.Fatalf("%s by non-owner: expected ErrNotOwner, got %v", tc.name, err)
		}
	}
}

func TestRegistry_WhitelistPolicy(t *testing.T) {
	r := NewRegistry(testOwner)

	// Policy off: everyone may create.
	if !r.IsAuthorizedToCreate(testOutsider) {
		t.Fatalf("creation should be open while the whitelist policy is off")
	}

	if err := r.SetWhitelistRequired(testOwner, true); err != nil {
		t.Fatalf("SetWhitelistRequired returned error: %v", err)
	}
	if r.IsAuthorizedToCreate(testOutsider) {
		t.Fatalf("non-whitelisted principal authorized under whitelist policy")
	}

	if err := r.AddToWhitelist(testOwner, testCustomer); err != nil {
		t.Fatalf("AddToWhitelist returned error: %v", err)
	}
	if !r.IsAuthorizedToCreate(testCustomer) {
		t.Fatalf("whitelisted principal not authorized")
	}
}
