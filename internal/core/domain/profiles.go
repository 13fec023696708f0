// internal/core/domain/profiles.go
package domain

import "sort"

// PortProfile es un conjunto con nombre de puertos a escanear.
type PortProfile struct {
	Name string
	// Ports es una especificación "-p"; vacío cuando se usa TopPorts
	Ports string
	// TopPorts pide los N puertos más comunes al scanner
	TopPorts int
}

// DefaultPortProfile se usa cuando no se indica perfil.
const DefaultPortProfile = "top100"

var portProfiles = map[string]PortProfile{
	"web":     {Name: "web", Ports: "80,443,8080,8443,3000,5000"},
	"mail":    {Name: "mail", Ports: "25,110,143,993,995"},
	"db":      {Name: "db", Ports: "1433,3306,5432,27017,6379"},
	"remote":  {Name: "remote", Ports: "22,23,3389,5900"},
	"dns":     {Name: "dns", Ports: "53"},
	"top100":  {Name: "top100", TopPorts: 100},
	"top1000": {Name: "top1000", TopPorts: 1000},
}

// LookupPortProfile devuelve el perfil por nombre.
func LookupPortProfile(name string) (PortProfile, bool) {
	p, ok := portProfiles[name]
	return p, ok
}

// PortProfileNames devuelve los nombres de perfil ordenados.
func PortProfileNames() []string {
	names := make([]string, 0, len(portProfiles))
	for n := range portProfiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WebPorts son los puertos que disparan WEB_ANALYSIS.
var WebPorts = []int{80, 443, 8080, 8443}
