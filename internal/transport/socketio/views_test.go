package socketio

import (
	"testing"
)

func TestViewRegistryOldestViewControls(t *testing.T) {
	r := NewViewRegistry(0)

	r.Add("a", "127.0.0.1")
	r.Add("b", "192.168.1.10")
	r.Add("c", "::1")

	if got := r.Controller(); got != "a" {
		t.Errorf("expected controller a, got %q", got)
	}
	if !r.IsController("a") || r.IsController("b") {
		t.Error("only the oldest view should control")
	}
	if r.Count() != 3 {
		t.Errorf("expected 3 views, got %d", r.Count())
	}
}

func TestViewRegistryPromotesOnDisconnect(t *testing.T) {
	r := NewViewRegistry(0)

	r.Add("a", "127.0.0.1")
	r.Add("b", "127.0.0.1")
	r.Add("c", "127.0.0.1")

	if promoted := r.Remove("b"); promoted != "" {
		t.Errorf("removing an observer should not promote, got %q", promoted)
	}
	if promoted := r.Remove("a"); promoted != "c" {
		t.Errorf("expected c promoted, got %q", promoted)
	}
	if promoted := r.Remove("c"); promoted != "" {
		t.Errorf("last view leaving promotes nobody, got %q", promoted)
	}
	if r.Controller() != "" {
		t.Error("empty registry has no controller")
	}
}

func TestViewRegistryLocalViewsUnlimited(t *testing.T) {
	r := NewViewRegistry(1)

	for i := 0; i < 10; i++ {
		if evicted := r.Add("local-"+string(rune('a'+i)), "127.0.0.1"); evicted != "" {
			t.Errorf("local view %d should not evict anyone, got %s", i, evicted)
		}
	}
	if evicted := r.Add("ext-1", "192.168.1.100"); evicted != "" {
		t.Errorf("first remote view should not evict, got %s", evicted)
	}
}

func TestViewRegistryRemoteCapEvictsOldest(t *testing.T) {
	r := NewViewRegistry(1)

	r.Add("first", "10.0.0.1")
	if evicted := r.Add("second", "10.0.0.2"); evicted != "first" {
		t.Errorf("expected eviction of first, got %q", evicted)
	}
	if evicted := r.Add("third", "10.0.0.3"); evicted != "second" {
		t.Errorf("expected eviction of second, got %q", evicted)
	}
	if got := r.Controller(); got != "third" {
		t.Errorf("evicted views lose control, got controller %q", got)
	}
}

func TestViewRegistryRemoveFreesRemoteSlot(t *testing.T) {
	r := NewViewRegistry(1)

	r.Add("ext-1", "192.168.1.100")
	r.Remove("ext-1")

	if evicted := r.Add("ext-2", "192.168.1.101"); evicted != "" {
		t.Errorf("should not evict after removal freed a slot, got %s", evicted)
	}
}

func TestViewRegistryDuplicateAndUnknown(t *testing.T) {
	r := NewViewRegistry(1)

	r.Add("ext-1", "192.168.1.100")
	if evicted := r.Add("ext-1", "192.168.1.100"); evicted != "" {
		t.Errorf("duplicate add should not evict, got %s", evicted)
	}
	if r.Count() != 1 {
		t.Errorf("duplicate add should not be counted twice, got %d", r.Count())
	}
	if promoted := r.Remove("nonexistent"); promoted != "" {
		t.Errorf("unknown view removal should be a no-op, got %q", promoted)
	}
}

func TestIsLocalIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"192.168.1.100", false},
		{"10.0.0.1", false},
		{"0.0.0.0", false},
	}

	for _, tc := range tests {
		if got := isLocalIP(tc.ip); got != tc.expected {
			t.Errorf("isLocalIP(%q) = %v, want %v", tc.ip, got, tc.expected)
		}
	}
}
