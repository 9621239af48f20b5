package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/lxdmxwifi/espdmx/internal/nodeconfig"
)

// wifiPasswordEnv supplies the station password when --password is not given.
const wifiPasswordEnv = "ESPDMX_WIFI_PASSWORD"

// fieldFlags are the upload flags that override individual fields.
type fieldFlags struct {
	mode           string
	ssid           string
	password       string
	nodeName       string
	protocol       string
	static         bool
	multicast      bool
	input          bool
	rdm            bool
	apAddress      string
	apGateway      string
	apSubnet       string
	stationAddress string
	stationGateway string
	stationSubnet  string
	multicastGroup string
	inputAddress   string
	sacnUniverse   int
	artnetNet      int
	artnetSubnet   int
	artnetUniverse int
	deviceAddress  int
}

func (o *fieldFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.mode, "mode", "", "WiFi mode (station, access-point)")
	fs.StringVar(&o.ssid, "ssid", "", "WiFi network name")
	fs.StringVar(&o.password, "password", "", "WiFi password (default from "+wifiPasswordEnv+")")
	fs.StringVar(&o.nodeName, "name", "", "Node name (31 characters max)")
	fs.StringVar(&o.protocol, "protocol", "", "DMX protocol (artnet, sacn)")
	fs.BoolVar(&o.static, "static", false, "Use the static station address instead of DHCP")
	fs.BoolVar(&o.multicast, "multicast", false, "Receive sACN by multicast")
	fs.BoolVar(&o.input, "input", false, "Send DMX input to the network instead of output")
	fs.BoolVar(&o.rdm, "rdm", false, "Enable RDM")
	fs.StringVar(&o.apAddress, "ap-address", "", "Access point address")
	fs.StringVar(&o.apGateway, "ap-gateway", "", "Access point gateway")
	fs.StringVar(&o.apSubnet, "ap-subnet", "", "Access point subnet mask")
	fs.StringVar(&o.stationAddress, "station-address", "", "Static station address")
	fs.StringVar(&o.stationGateway, "station-gateway", "", "Static station gateway")
	fs.StringVar(&o.stationSubnet, "station-subnet", "", "Static station subnet mask")
	fs.StringVar(&o.multicastGroup, "multicast-group", "", "sACN multicast group")
	fs.StringVar(&o.inputAddress, "input-address", "", "Destination for DMX input")
	fs.IntVar(&o.sacnUniverse, "universe", 0, "sACN universe (0-65535)")
	fs.IntVar(&o.artnetNet, "artnet-net", 0, "Art-Net net (0-127)")
	fs.IntVar(&o.artnetSubnet, "artnet-subnet", 0, "Art-Net subnet (0-15)")
	fs.IntVar(&o.artnetUniverse, "artnet-universe", 0, "Art-Net universe (0-15)")
	fs.IntVar(&o.deviceAddress, "device-address", 0, "RDM device start address (0-512)")
}

// apply copies the flags set on fs into f. Unset flags leave f unchanged.
func (o *fieldFlags) apply(fs *pflag.FlagSet, f *nodeconfig.Fields) error {
	set := fs.Changed

	if set("mode") {
		if _, err := nodeconfig.ParseMode(o.mode); err != nil {
			return err
		}
		f.Mode = o.mode
	}
	if set("ssid") {
		f.SSID = o.ssid
	}
	if set("password") {
		f.Password = o.password
	} else if pw := os.Getenv(wifiPasswordEnv); pw != "" {
		f.Password = pw
	}
	if set("name") {
		name := o.nodeName
		f.NodeName = &name
	}
	if set("protocol") {
		switch strings.ToLower(o.protocol) {
		case "sacn", "e1.31":
			f.Flags.SACN = true
		case "artnet", "art-net":
			f.Flags.SACN = false
		default:
			return nodeconfig.NewValidationError("protocol", fmt.Sprintf("unknown protocol %q (use artnet or sacn)", o.protocol))
		}
	}
	if set("static") {
		f.Flags.Static = o.static
	}
	if set("multicast") {
		f.Flags.Multicast = o.multicast
	}
	if set("input") {
		f.Flags.Input = o.input
	}
	if set("rdm") {
		f.Flags.RDM = o.rdm
	}

	addresses := []struct {
		flag  string
		value string
		field *string
	}{
		{"ap-address", o.apAddress, &f.APAddress},
		{"ap-gateway", o.apGateway, &f.APGateway},
		{"ap-subnet", o.apSubnet, &f.APSubnet},
		{"station-address", o.stationAddress, &f.StationAddress},
		{"station-gateway", o.stationGateway, &f.StationGateway},
		{"station-subnet", o.stationSubnet, &f.StationSubnet},
		{"multicast-group", o.multicastGroup, &f.MulticastGroup},
		{"input-address", o.inputAddress, &f.InputAddress},
	}
	for _, a := range addresses {
		if set(a.flag) {
			*a.field = a.value
		}
	}

	numbers := []struct {
		flag  string
		value int
		field *int
	}{
		{"universe", o.sacnUniverse, &f.SACNUniverse},
		{"artnet-net", o.artnetNet, &f.ArtNetNet},
		{"artnet-subnet", o.artnetSubnet, &f.ArtNetSubnet},
		{"artnet-universe", o.artnetUniverse, &f.ArtNetUniverse},
		{"device-address", o.deviceAddress, &f.DeviceAddress},
	}
	for _, n := range numbers {
		if set(n.flag) {
			*n.field = n.value
		}
	}
	return nil
}

// loadFieldsFile reads a YAML field file over the factory defaults, so keys
// missing from the file keep their default values.
func loadFieldsFile(path string) (nodeconfig.Fields, error) {
	fields := nodeconfig.DefaultFields()
	data, err := os.ReadFile(path)
	if err != nil {
		return fields, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return fields, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return fields, nil
}
