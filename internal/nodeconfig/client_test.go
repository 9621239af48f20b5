package nodeconfig

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/lxdmxwifi/espdmx/internal/discovery"
	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

type fakeSubmitter struct {
	mu   sync.Mutex
	sent []*discovery.Outbound
	err  error

	onSubmit func(out *discovery.Outbound)
}

func (f *fakeSubmitter) Submit(_ context.Context, out *discovery.Outbound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, out)
	if f.onSubmit != nil {
		f.onSubmit(out)
	}
	return nil
}

func (f *fakeSubmitter) destinations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	dests := make([]string, len(f.sent))
	for i, out := range f.sent {
		dests[i] = out.Dest.Addr().String()
	}
	return dests
}

// newTestClient returns a client that records sleeps instead of waiting.
func newTestClient(sub Submitter, l discovery.Listener) (*Client, *[]time.Duration) {
	c := NewClient(sub, l)
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return c, &slept
}

func TestFallbackTargets(t *testing.T) {
	got := FallbackTargets("")
	want := []string{
		"10.110.115.10", "10.110.115.255", "10.255.255.255",
		"192.168.1.1", "192.168.1.255", "255.255.255.255", "239.255.0.1",
	}
	if len(got) != len(want) {
		t.Fatalf("FallbackTargets() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FallbackTargets()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if got := FallbackTargets("239.255.0.7"); got[len(got)-1] != "239.255.0.7" {
		t.Errorf("Expected configured multicast group last, got %v", got)
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name    string
		primary string
		extra   []string
		verify  func(t *testing.T, dests []string, progress []string)
	}{
		{
			name:    "unrelated primary queries every fallback",
			primary: "10.0.0.5",
			verify: func(t *testing.T, dests []string, progress []string) {
				if len(dests) != 8 {
					t.Fatalf("sent %d queries, want 8: %v", len(dests), dests)
				}
				if dests[0] != "10.0.0.5" {
					t.Errorf("first query to %s, want 10.0.0.5", dests[0])
				}
				count := 0
				for _, d := range dests {
					if d == "10.0.0.5" {
						count++
					}
				}
				if count != 1 {
					t.Errorf("primary queried %d times, want 1", count)
				}
			},
		},
		{
			name:    "primary in fallback list is skipped",
			primary: "192.168.1.255",
			verify: func(t *testing.T, dests []string, progress []string) {
				if len(dests) != 7 {
					t.Fatalf("sent %d queries, want 7: %v", len(dests), dests)
				}
				for _, d := range dests[1:] {
					if d == "192.168.1.255" {
						t.Errorf("primary queried again: %v", dests)
					}
				}
			},
		},
		{
			name:    "extra targets follow the fallback list",
			primary: "10.0.0.5",
			extra:   []string{"10.0.0.77", "not-an-address.invalid"},
			verify: func(t *testing.T, dests []string, progress []string) {
				if len(dests) != 9 {
					t.Fatalf("sent %d queries, want 9: %v", len(dests), dests)
				}
				if dests[8] != "10.0.0.77" {
					t.Errorf("last query to %s, want 10.0.0.77", dests[8])
				}
				if len(progress) != 10 {
					t.Errorf("progress events = %d, want 10", len(progress))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{}
			var progress []string
			l := discovery.ListenerFuncs{OnSearchProgress: func(s string) { progress = append(progress, s) }}
			c, slept := newTestClient(sub, l)
			c.ExtraTargets = tt.extra
			c.resolve = func(ctx context.Context, s string) (protocol.IPv4, error) {
				return protocol.ParseAddress(s)
			}

			if err := c.Search(context.Background(), tt.primary, protocol.PortArtNet); err != nil {
				t.Fatalf("Search() unexpected error: %v", err)
			}

			for _, out := range sub.sent {
				if len(out.Data) != protocol.MinimalPacketSize || out.Data[8] != '?' {
					t.Errorf("Expected query packet, got % x", out.Data)
				}
				if out.Dest.Port() != protocol.PortArtNet {
					t.Errorf("port = %d", out.Dest.Port())
				}
				if out.ReportFailure {
					t.Error("queries must not report failures")
				}
			}
			if len(*slept) != len(sub.sent) {
				t.Errorf("waited %d times for %d queries", len(*slept), len(sub.sent))
			}
			if len(progress) == 0 || progress[0] != "searching: "+tt.primary {
				t.Errorf("progress = %v", progress)
			}
			tt.verify(t, sub.destinations(), progress)
		})
	}
}

func TestSearchBadPrimary(t *testing.T) {
	sub := &fakeSubmitter{}
	c, _ := newTestClient(sub, nil)

	err := c.Search(context.Background(), "", protocol.PortArtNet)
	if !IsAddressError(err) {
		t.Fatalf("Search() error = %v, want address error", err)
	}
	if len(sub.sent) != 0 {
		t.Errorf("sent %d packets, want 0", len(sub.sent))
	}
}

func TestSearchCancelled(t *testing.T) {
	sub := &fakeSubmitter{}
	c, _ := newTestClient(sub, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Search(ctx, "10.0.0.5", protocol.PortArtNet)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Search() error = %v, want context.Canceled", err)
	}
	if len(sub.sent) != 1 {
		t.Errorf("sent %d packets, want 1", len(sub.sent))
	}
}

func TestUpload(t *testing.T) {
	station := func() Fields {
		f := DefaultFields()
		f.Mode = ModeStation
		f.SSID = "StageNet"
		f.Password = "secret123"
		return f
	}

	tests := []struct {
		name    string
		fields  func() Fields
		target  string
		wantErr func(error) bool
		verify  func(t *testing.T, out *discovery.Outbound)
	}{
		{
			name:   "valid station upload",
			fields: station,
			target: "10.110.115.10",
			verify: func(t *testing.T, out *discovery.Outbound) {
				if len(out.Data) != protocol.PacketSize {
					t.Fatalf("len = %d", len(out.Data))
				}
				if out.Data[8] != '!' || out.Data[9] != protocol.ConfigVersion {
					t.Errorf("header = % x", out.Data[:12])
				}
				if !out.ReportFailure {
					t.Error("uploads must report failures")
				}
				if out.Dest != netip.MustParseAddrPort("10.110.115.10:6454") {
					t.Errorf("dest = %s", out.Dest)
				}
			},
		},
		{
			name: "empty SSID in station mode",
			fields: func() Fields {
				f := station()
				f.SSID = ""
				return f
			},
			target:  "10.110.115.10",
			wantErr: IsValidationError,
		},
		{
			name: "masked password in station mode",
			fields: func() Fields {
				f := station()
				f.Password = "****"
				return f
			},
			target:  "10.110.115.10",
			wantErr: IsValidationError,
		},
		{
			name: "AP mode with empty SSID",
			fields: func() Fields {
				f := DefaultFields()
				f.SSID = ""
				return f
			},
			target: "10.110.115.10",
			verify: func(t *testing.T, out *discovery.Outbound) {
				pkt := out.Data
				if string(pkt[12:19]) != "ESP-DMX" || pkt[19] != 0 {
					t.Errorf("SSID field = %q", pkt[12:20])
				}
			},
		},
		{
			name:    "bad target",
			fields:  station,
			target:  "10.110.115",
			wantErr: IsAddressError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{}
			c, _ := newTestClient(sub, nil)
			c.resolve = func(ctx context.Context, s string) (protocol.IPv4, error) {
				return protocol.ParseAddress(s)
			}
			f := tt.fields()

			err := c.Upload(context.Background(), &f, tt.target, protocol.PortArtNet)
			if tt.wantErr != nil {
				if !tt.wantErr(err) {
					t.Fatalf("Upload() error = %v", err)
				}
				if len(sub.sent) != 0 {
					t.Errorf("sent %d packets after error, want 0", len(sub.sent))
				}
				return
			}
			if err != nil {
				t.Fatalf("Upload() unexpected error: %v", err)
			}
			if len(sub.sent) != 1 {
				t.Fatalf("sent %d packets, want 1", len(sub.sent))
			}
			tt.verify(t, sub.sent[0])
		})
	}
}

func TestReset(t *testing.T) {
	sub := &fakeSubmitter{}
	c, _ := newTestClient(sub, nil)

	if err := c.Reset(context.Background(), "10.110.115.10", protocol.PortSACN); err != nil {
		t.Fatalf("Reset() unexpected error: %v", err)
	}
	if len(sub.sent) != 1 {
		t.Fatalf("sent %d packets, want 1", len(sub.sent))
	}
	out := sub.sent[0]
	if len(out.Data) != protocol.MinimalPacketSize || out.Data[8] != '^' {
		t.Errorf("reset packet = % x", out.Data)
	}
	if out.Dest.Port() != protocol.PortSACN {
		t.Errorf("port = %d, want %d", out.Dest.Port(), protocol.PortSACN)
	}
	if out.ReportFailure {
		t.Error("reset must not report failures")
	}
}

func TestSendCommand(t *testing.T) {
	tests := []struct {
		cmd  protocol.Command
		want byte
	}{
		{protocol.CommandCancelMerge, 0x01},
		{protocol.CommandClearOutput, 0x90},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.String(), func(t *testing.T) {
			sub := &fakeSubmitter{}
			c, _ := newTestClient(sub, nil)

			if err := c.SendCommand(context.Background(), "10.0.0.9", tt.cmd); err != nil {
				t.Fatalf("SendCommand() unexpected error: %v", err)
			}
			out := sub.sent[0]
			if len(out.Data) != protocol.CommandPacketSize {
				t.Fatalf("len = %d", len(out.Data))
			}
			if out.Data[106] != tt.want {
				t.Errorf("command byte = %#x, want %#x", out.Data[106], tt.want)
			}
			if out.Data[10] != 0 || out.Data[11] != 14 {
				t.Errorf("version bytes = %d %d, want 0 14", out.Data[10], out.Data[11])
			}
			if out.Dest != netip.MustParseAddrPort("10.0.0.9:6454") {
				t.Errorf("dest = %s", out.Dest)
			}
		})
	}
}

func TestSubmitError(t *testing.T) {
	sub := &fakeSubmitter{err: discovery.ErrEngineNotRunning}
	c, _ := newTestClient(sub, nil)

	err := c.Reset(context.Background(), "10.0.0.9", protocol.PortArtNet)
	if !errors.Is(err, discovery.ErrEngineNotRunning) {
		t.Fatalf("Reset() error = %v", err)
	}
	if Classify(err).Type != ErrTypeEngine {
		t.Errorf("Classify() = %s, want engine error", Classify(err).Type)
	}
}
