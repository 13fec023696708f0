// internal/core/domain/facts.go
package domain

import (
	"fmt"
	"sort"
)

// Port is an open (number, protocol) pair.
type Port struct {
	Number   int    `json:"number"`
	Protocol string `json:"protocol"`
}

func (p Port) String() string {
	return fmt.Sprintf("%d/%s", p.Number, p.Protocol)
}

// Service describes what answered on a port.
type Service struct {
	Name    string `json:"name,omitempty"`
	Product string `json:"product,omitempty"`
	Version string `json:"version,omitempty"`
}

// StructuredFacts es el resumen tipado de la salida cruda de un stage.
// Solo el extractor lo construye; todos los accesores devuelven copias.
type StructuredFacts struct {
	openPorts    map[Port]struct{}
	services     map[int]Service
	httpStatus   *int
	technologies map[string]struct{}
}

// FactsBuilder accumulates facts before freezing them into StructuredFacts.
type FactsBuilder struct {
	f StructuredFacts
}

func NewFactsBuilder() *FactsBuilder {
	return &FactsBuilder{f: StructuredFacts{
		openPorts:    make(map[Port]struct{}),
		services:     make(map[int]Service),
		technologies: make(map[string]struct{}),
	}}
}

func (b *FactsBuilder) AddPort(p Port) *FactsBuilder {
	b.f.openPorts[p] = struct{}{}
	return b
}

// AddService records a service. The first non-empty entry for a port wins.
func (b *FactsBuilder) AddService(port int, s Service) *FactsBuilder {
	if s == (Service{}) {
		return b
	}
	if _, ok := b.f.services[port]; !ok {
		b.f.services[port] = s
	}
	return b
}

func (b *FactsBuilder) SetHTTPStatus(code int) *FactsBuilder {
	c := code
	b.f.httpStatus = &c
	return b
}

func (b *FactsBuilder) AddTechnology(name string) *FactsBuilder {
	if name != "" {
		b.f.technologies[name] = struct{}{}
	}
	return b
}

// Build returns the frozen facts. The builder must not be reused.
func (b *FactsBuilder) Build() StructuredFacts {
	f := b.f
	b.f = StructuredFacts{}
	return f
}

// IsEmpty reports whether no fact at all was extracted.
func (f StructuredFacts) IsEmpty() bool {
	return len(f.openPorts) == 0 && len(f.services) == 0 && f.httpStatus == nil && len(f.technologies) == 0
}

// Ports returns the open ports sorted by number then protocol.
func (f StructuredFacts) Ports() []Port {
	out := make([]Port, 0, len(f.openPorts))
	for p := range f.openPorts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].Protocol < out[j].Protocol
	})
	return out
}

// HasPort reports whether the port number is open on any protocol.
func (f StructuredFacts) HasPort(number int) bool {
	for p := range f.openPorts {
		if p.Number == number {
			return true
		}
	}
	return false
}

func (f StructuredFacts) HasAnyPort(numbers ...int) bool {
	for _, n := range numbers {
		if f.HasPort(n) {
			return true
		}
	}
	return false
}

func (f StructuredFacts) Service(port int) (Service, bool) {
	s, ok := f.services[port]
	return s, ok
}

// Services returns a copy of the port to service mapping.
func (f StructuredFacts) Services() map[int]Service {
	out := make(map[int]Service, len(f.services))
	for k, v := range f.services {
		out[k] = v
	}
	return out
}

func (f StructuredFacts) HTTPStatus() (int, bool) {
	if f.httpStatus == nil {
		return 0, false
	}
	return *f.httpStatus, true
}

// Technologies returns detected technology names sorted alphabetically.
func (f StructuredFacts) Technologies() []string {
	out := make([]string, 0, len(f.technologies))
	for t := range f.technologies {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Equal compares two fact sets ignoring insertion order.
func (f StructuredFacts) Equal(o StructuredFacts) bool {
	if len(f.openPorts) != len(o.openPorts) || len(f.services) != len(o.services) || len(f.technologies) != len(o.technologies) {
		return false
	}
	for p := range f.openPorts {
		if _, ok := o.openPorts[p]; !ok {
			return false
		}
	}
	for k, v := range f.services {
		if ov, ok := o.services[k]; !ok || ov != v {
			return false
		}
	}
	for t := range f.technologies {
		if _, ok := o.technologies[t]; !ok {
			return false
		}
	}
	a, aok := f.HTTPStatus()
	b, bok := o.HTTPStatus()
	return aok == bok && a == b
}

// Merge returns a new value holding the union of both fact sets.
// On conflicts the receiver wins.
func (f StructuredFacts) Merge(o StructuredFacts) StructuredFacts {
	b := NewFactsBuilder()
	for _, src := range []StructuredFacts{f, o} {
		for p := range src.openPorts {
			b.AddPort(p)
		}
		for port, s := range src.services {
			b.AddService(port, s)
		}
		for t := range src.technologies {
			b.AddTechnology(t)
		}
	}
	if code, ok := f.HTTPStatus(); ok {
		b.SetHTTPStatus(code)
	} else if code, ok := o.HTTPStatus(); ok {
		b.SetHTTPStatus(code)
	}
	return b.Build()
}

// FactsSummary is the JSON view of StructuredFacts.
type FactsSummary struct {
	OpenPorts    []Port          `json:"open_ports,omitempty"`
	Services     map[int]Service `json:"services,omitempty"`
	HTTPStatus   *int            `json:"http_status,omitempty"`
	Technologies []string        `json:"technologies,omitempty"`
}

func (f StructuredFacts) Summary() FactsSummary {
	s := FactsSummary{
		OpenPorts:    f.Ports(),
		Technologies: f.Technologies(),
	}
	if len(f.services) > 0 {
		s.Services = f.Services()
	}
	if code, ok := f.HTTPStatus(); ok {
		s.HTTPStatus = &code
	}
	return s
}
