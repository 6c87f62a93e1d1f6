package payment

import (
	"fmt"
	"sort"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
	"github.com/Kreolis/cinema-ticketing/internal/core/ports"
)

// Registry holds the configured payment variants by name.
type Registry struct {
	variants map[string]ports.PaymentVariant
}

func NewRegistry(variants ...ports.PaymentVariant) *Registry {
	r := &Registry{variants: make(map[string]ports.PaymentVariant)}
	for _, v := range variants {
		r.Register(v)
	}
	return r
}

// Register adds v, replacing any variant with the same name.
func (r *Registry) Register(v ports.PaymentVariant) {
	r.variants[v.Name()] = v
}

func (r *Registry) Variant(name string) (ports.PaymentVariant, error) {
	v, ok := r.variants[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrVariantNotFound)
	}
	return v, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.variants))
	for name := range r.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
