package admin

import "testing"

func TestGateCommunityList(t *testing.T) {
	gate := NewGate(map[uint64][]uint64{1: {100, 200}}, []uint64{999})

	if !gate.IsAuthorized(100, 1) {
		t.Fatal("listed admin should be authorized")
	}
	if gate.IsAuthorized(999, 1) {
		t.Fatal("global admin must not bypass a non-empty community list")
	}
	if gate.IsAuthorized(300, 1) {
		t.Fatal("unlisted user should be denied")
	}
}

func TestGateGlobalFallback(t *testing.T) {
	gate := NewGate(map[uint64][]uint64{}, []uint64{999})

	if !gate.IsAuthorized(999, 5) {
		t.Fatal("global admin should be authorized when no community list exists")
	}
	if gate.IsAuthorized(100, 5) {
		t.Fatal("non-admin should be denied under fallback")
	}
}

func TestGateEmptySetDeniesAll(t *testing.T) {
	gate := NewGate(map[uint64][]uint64{}, nil)

	if gate.IsAuthorized(1, 1) {
		t.Fatal("an empty resolved set must deny, never allow")
	}
}
