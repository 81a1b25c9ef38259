package core

import (
	"fmt"
	"sort"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/apperr"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/ports"
)

// ProviderRegistry is filled once at startup and only read afterwards.
// Requests for an unregistered provider fail with a configuration error.
type ProviderRegistry struct {
	gateways map[model.PaymentProvider]ports.IPaymentGateway
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		gateways: make(map[model.PaymentProvider]ports.IPaymentGateway),
	}
}

func (r *ProviderRegistry) Register(gateway ports.IPaymentGateway) {
	r.gateways[gateway.Name()] = gateway
}

func (r *ProviderRegistry) Get(provider model.PaymentProvider) (ports.IPaymentGateway, error) {
	if g, exists := r.gateways[provider]; exists {
		return g, nil
	}
	return nil, apperr.Configuration(fmt.Sprintf("payment provider %s is not configured", provider))
}

func (r *ProviderRegistry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}
