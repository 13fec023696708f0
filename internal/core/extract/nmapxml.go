package extract

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"

	perrors "reconmcp/internal/platform/errors"
)

// nmapRun mirrors the subset of `nmap -oX` output we consume.
type nmapRun struct {
	XMLName xml.Name   `xml:"nmaprun"`
	Args    string     `xml:"args,attr"`
	Version string     `xml:"version,attr"`
	Hosts   []nmapHost `xml:"host"`
}

type nmapHost struct {
	Status    nmapStatus     `xml:"status"`
	Addresses []nmapAddress  `xml:"address"`
	Hostnames []nmapHostname `xml:"hostnames>hostname"`
	Ports     []nmapPort     `xml:"ports>port"`
}

type nmapStatus struct {
	State string `xml:"state,attr"`
}

type nmapAddress struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
}

type nmapHostname struct {
	Name string `xml:"name,attr"`
}

type nmapPort struct {
	Protocol string      `xml:"protocol,attr"`
	PortID   int         `xml:"portid,attr"`
	State    nmapState   `xml:"state"`
	Service  nmapService `xml:"service"`
}

type nmapState struct {
	State string `xml:"state,attr"`
}

type nmapService struct {
	Name      string `xml:"name,attr"`
	Product   string `xml:"product,attr"`
	Version   string `xml:"version,attr"`
	ExtraInfo string `xml:"extrainfo,attr"`
}

// ScanReport is the normalized result of one nmap run.
type ScanReport struct {
	Hosts []HostReport
}

// HostReport holds the ports of a single scanned host.
type HostReport struct {
	Address  string
	Hostname string
	State    string
	Ports    []PortReport
}

// PortReport is one port row. State is nmap's verbatim state string.
type PortReport struct {
	Number   int
	Protocol string
	State    string
	Service  string
	Product  string
	Version  string
}

// Open reports whether nmap saw the port as plainly open.
func (p PortReport) Open() bool {
	return p.State == "open"
}

// ParseNmapXML decodes an `nmap -oX -` document. Ports inside each host
// are sorted by number.
func ParseNmapXML(data []byte) (ScanReport, error) {
	var run nmapRun
	if err := xml.Unmarshal(data, &run); err != nil {
		return ScanReport{}, perrors.Wrap(perrors.ErrInvalidResponse, "nmap xml: "+err.Error())
	}

	report := ScanReport{Hosts: make([]HostReport, 0, len(run.Hosts))}
	for _, h := range run.Hosts {
		hr := HostReport{State: h.Status.State}
		for _, a := range h.Addresses {
			if a.AddrType == "mac" {
				continue
			}
			hr.Address = a.Addr
			break
		}
		if len(h.Hostnames) > 0 {
			hr.Hostname = h.Hostnames[0].Name
		}
		for _, p := range h.Ports {
			hr.Ports = append(hr.Ports, PortReport{
				Number:   p.PortID,
				Protocol: strings.ToLower(p.Protocol),
				State:    p.State.State,
				Service:  p.Service.Name,
				Product:  p.Service.Product,
				Version:  p.Service.Version,
			})
		}
		sort.Slice(hr.Ports, func(i, j int) bool { return hr.Ports[i].Number < hr.Ports[j].Number })
		report.Hosts = append(report.Hosts, hr)
	}
	return report, nil
}

// OpenPorts returns the open port numbers across all hosts, deduplicated
// and sorted.
func (r ScanReport) OpenPorts() []int {
	seen := make(map[int]struct{})
	var out []int
	for _, h := range r.Hosts {
		for _, p := range h.Ports {
			if !p.Open() {
				continue
			}
			if _, ok := seen[p.Number]; ok {
				continue
			}
			seen[p.Number] = struct{}{}
			out = append(out, p.Number)
		}
	}
	sort.Ints(out)
	return out
}

// Text renders the report in the line format Extract understands.
// Only open ports are listed.
func (r ScanReport) Text() string {
	if len(r.Hosts) == 0 {
		return "No hosts found\n"
	}

	var sb strings.Builder
	for i, h := range r.Hosts {
		if i > 0 {
			sb.WriteString("\n")
		}
		if h.Hostname != "" {
			fmt.Fprintf(&sb, "Host: %s (%s)\n", h.Address, h.Hostname)
		} else {
			fmt.Fprintf(&sb, "Host: %s\n", h.Address)
		}
		fmt.Fprintf(&sb, "Status: %s\n", h.State)

		open := 0
		for _, p := range h.Ports {
			if !p.Open() {
				continue
			}
			if open == 0 {
				sb.WriteString("Open ports:\n")
			}
			open++
			sb.WriteString("  " + strconv.Itoa(p.Number) + "/" + p.Protocol + " - open")
			if info := joinNonEmpty(p.Service, p.Product, p.Version); info != "" {
				sb.WriteString(" (" + info + ")")
			}
			sb.WriteString("\n")
		}
		if open == 0 {
			sb.WriteString("No open ports found\n")
		}
	}
	return sb.String()
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
