package nodeconfig

import (
	"testing"

	"github.com/lxdmxwifi/espdmx/internal/protocol"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    protocol.WiFiMode
		wantErr bool
	}{
		{"station", protocol.ModeStation, false},
		{"STA", protocol.ModeStation, false},
		{" access-point ", protocol.ModeAccessPoint, false},
		{"ap", protocol.ModeAccessPoint, false},
		{"", 0, true},
		{"mesh", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseMode(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestFieldsFromPacket(t *testing.T) {
	p := protocol.DefaultConfig()
	p.Mode = protocol.ModeStation
	p.ArtNetNet = 5
	p.ArtNetSubnet = 2
	p.ArtNetUniverse = 9
	p.DeviceAddress = 257

	f := FieldsFromPacket(p)

	if f.Mode != ModeStation {
		t.Errorf("Mode = %q, want %q", f.Mode, ModeStation)
	}
	if f.NodeName == nil || *f.NodeName != p.NodeName {
		t.Errorf("NodeName = %v, want %q", f.NodeName, p.NodeName)
	}
	if f.APAddress != "10.110.115.10" {
		t.Errorf("APAddress = %q", f.APAddress)
	}
	if f.MulticastGroup != "239.255.0.1" {
		t.Errorf("MulticastGroup = %q", f.MulticastGroup)
	}
	if f.ArtNetNet != 5 || f.ArtNetSubnet != 2 || f.ArtNetUniverse != 9 {
		t.Errorf("Art-Net = %d:%d:%d, want 5:2:9", f.ArtNetNet, f.ArtNetSubnet, f.ArtNetUniverse)
	}
	if f.DeviceAddress != 257 {
		t.Errorf("DeviceAddress = %d, want 257", f.DeviceAddress)
	}
	if !f.Flags.Multicast {
		t.Error("Expected multicast flag to carry over")
	}
}

func TestFieldsPacket(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(f *Fields)
		wantErr func(error) bool
		verify  func(t *testing.T, p *protocol.ConfigPacket)
	}{
		{
			name:   "AP mode with empty SSID uses default name",
			modify: func(f *Fields) { f.SSID = "" },
			verify: func(t *testing.T, p *protocol.ConfigPacket) {
				if p.SSID != DefaultAccessPointSSID {
					t.Errorf("SSID = %q, want %q", p.SSID, DefaultAccessPointSSID)
				}
				if p.Mode != protocol.ModeAccessPoint {
					t.Errorf("Mode = %s", p.Mode)
				}
			},
		},
		{
			name: "station mode carries credentials and addresses",
			modify: func(f *Fields) {
				f.Mode = ModeStation
				f.SSID = "StageNet"
				f.Password = "secret123"
				f.StationAddress = "192.168.1.50"
				f.Flags.Static = true
			},
			verify: func(t *testing.T, p *protocol.ConfigPacket) {
				if p.Opcode != protocol.OpcodeUpload {
					t.Errorf("Opcode = %s, want upload", p.Opcode)
				}
				if p.Version != protocol.ConfigVersion {
					t.Errorf("Version = %d", p.Version)
				}
				if p.SSID != "StageNet" || p.Password != "secret123" {
					t.Errorf("credentials = %q/%q", p.SSID, p.Password)
				}
				if p.StationAddress != (protocol.IPv4{192, 168, 1, 50}) {
					t.Errorf("StationAddress = %s", p.StationAddress)
				}
				if !p.Flags.Static {
					t.Error("Expected static flag")
				}
			},
		},
		{
			name:    "station mode with empty SSID",
			modify:  func(f *Fields) { f.Mode = ModeStation; f.SSID = ""; f.Password = "secret123" },
			wantErr: IsValidationError,
		},
		{
			name:    "bad address",
			modify:  func(f *Fields) { f.APGateway = "10.110.115" },
			wantErr: IsAddressError,
		},
		{
			name: "several validation errors are combined",
			modify: func(f *Fields) {
				f.Mode = ModeStation
				f.SSID = ""
				f.Password = ""
			},
			wantErr: IsValidationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultFields()
			tt.modify(&f)
			p, err := f.Packet()
			if tt.wantErr != nil {
				if err == nil || !tt.wantErr(err) {
					t.Fatalf("Packet() error = %v", err)
				}
				if p != nil {
					t.Error("Expected no packet on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Packet() unexpected error: %v", err)
			}
			tt.verify(t, p)
		})
	}
}

func TestFieldsRoundTrip(t *testing.T) {
	orig := protocol.DefaultConfig()
	orig.Flags = protocol.Flags{SACN: true, Static: true, RDM: true}
	orig.SACNUniverse = 0x1234
	orig.InputAddress = protocol.IPv4{10, 0, 0, 20}

	f := FieldsFromPacket(orig)
	p, err := f.Packet()
	if err != nil {
		t.Fatalf("Packet() unexpected error: %v", err)
	}
	if mismatches := CompareConfig(orig, p); len(mismatches) != 0 {
		t.Errorf("round trip mismatches: %v", mismatches)
	}
}
