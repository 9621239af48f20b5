package discovery

import (
	"fmt"
	"net/netip"
	"sync"
	"testing"

	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

func testRecord(addr, name string) *Record {
	pkt := protocol.DefaultConfig()
	pkt.NodeName = name
	return NewRecord(pkt, netip.MustParseAddrPort(addr+":6454"))
}

func TestRegistryAdd(t *testing.T) {
	tests := []struct {
		name   string
		adds   []*Record
		verify func(t *testing.T, r *Registry)
	}{
		{
			name: "same source keeps only the latest",
			adds: []*Record{
				testRecord("10.0.0.5", "first"),
				testRecord("10.0.0.5", "second"),
			},
			verify: func(t *testing.T, r *Registry) {
				if r.Len() != 1 {
					t.Fatalf("Len() = %d, want 1", r.Len())
				}
				if got := r.At(0).NodeName(); got != "second" {
					t.Errorf("NodeName = %q, want second", got)
				}
			},
		},
		{
			name: "insertion order",
			adds: []*Record{
				testRecord("10.0.0.1", "a"),
				testRecord("10.0.0.2", "b"),
				testRecord("10.0.0.3", "c"),
			},
			verify: func(t *testing.T, r *Registry) {
				list := r.List()
				for i, want := range []string{"a", "b", "c"} {
					if list[i].NodeName() != want {
						t.Errorf("List()[%d] = %q, want %q", i, list[i].NodeName(), want)
					}
				}
			},
		},
		{
			name: "replacement moves record to the end",
			adds: []*Record{
				testRecord("10.0.0.1", "a"),
				testRecord("10.0.0.2", "b"),
				testRecord("10.0.0.1", "a2"),
			},
			verify: func(t *testing.T, r *Registry) {
				list := r.List()
				if len(list) != 2 {
					t.Fatalf("len = %d, want 2", len(list))
				}
				if list[0].NodeName() != "b" || list[1].NodeName() != "a2" {
					t.Errorf("order = %q, %q; want b, a2", list[0].NodeName(), list[1].NodeName())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for _, rec := range tt.adds {
				r.Add(rec)
			}
			tt.verify(t, r)
		})
	}
}

func TestRegistryAtOutOfRange(t *testing.T) {
	r := NewRegistry()
	r.Add(testRecord("10.0.0.1", "a"))

	for _, i := range []int{-1, 1, 100} {
		if rec := r.At(i); rec != nil {
			t.Errorf("At(%d) = %v, want nil", i, rec)
		}
	}

	r.Reset()
	if rec := r.At(0); rec != nil {
		t.Errorf("At(0) after Reset = %v, want nil", rec)
	}
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry()
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("Len() = %d after Reset on empty registry", r.Len())
	}
	r.Add(testRecord("10.0.0.1", "a"))
	r.Add(testRecord("10.0.0.2", "b"))
	r.Reset()
	if r.Len() != 0 {
		t.Errorf("Len() = %d after Reset, want 0", r.Len())
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Add(testRecord("10.0.0.1", "a"))

	if rec := r.Lookup(netip.MustParseAddr("10.0.0.1")); rec == nil || rec.NodeName() != "a" {
		t.Errorf("Lookup(10.0.0.1) = %v", rec)
	}
	if rec := r.Lookup(netip.MustParseAddr("::ffff:10.0.0.1")); rec == nil {
		t.Error("Lookup of IPv4-mapped address should match")
	}
	if rec := r.Lookup(netip.MustParseAddr("10.0.0.2")); rec != nil {
		t.Errorf("Lookup(10.0.0.2) = %v, want nil", rec)
	}
}

func TestRegistrySubscribe(t *testing.T) {
	r := NewRegistry()

	var events []RegistryEvent
	unsubscribe := r.Subscribe(func(ev RegistryEvent) {
		// Handlers run outside the lock and may read the registry.
		_ = r.Len()
		events = append(events, ev)
	})
	r.Subscribe(func(RegistryEvent) { panic("bad handler") })

	r.Add(testRecord("10.0.0.1", "a"))
	r.Add(testRecord("10.0.0.1", "a"))
	r.Reset()
	unsubscribe()
	r.Add(testRecord("10.0.0.2", "b"))

	want := []RegistryEventType{RecordAdded, RecordReplaced, RegistryCleared}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, typ := range want {
		if events[i].Type != typ {
			t.Errorf("event %d = %v, want %v", i, events[i].Type, typ)
		}
	}
	if events[0].Len != 1 {
		t.Errorf("event 0 Len = %d, want 1", events[0].Len)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Add(testRecord(fmt.Sprintf("10.0.0.%d", i+1), "n"))
				_ = r.List()
				_ = r.At(j % 4)
			}
		}(i)
	}
	wg.Wait()
	if r.Len() != 8 {
		t.Errorf("Len() = %d, want 8", r.Len())
	}
}
