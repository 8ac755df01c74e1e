package config

import (
	"sync"

	"github.com/pkg/errors"
)

// Provider is an interface that every configuration adapter
// should conform to.
type Provider interface {
	// Parse fills structure, a pointer to the configuration struct.
	Parse(structure interface{}) error
}

// Collector runs configuration providers over one structure.
type Collector struct {
	Service interface{}
	// All available configuration providers.
	providers sync.Map
	// ProvidersOrder is an ordering thing for configuration
	// providers. They'll be executed in exact order as defined here.
	// When parsing configuration latest defined wins.
	ProvidersOrder []string
}

func NewCollector(cfg interface{}) *Collector {
	return &Collector{
		Service: cfg,
	}
}

// Parse executes configuration parsing in ProvidersOrder.
func (cfg *Collector) Parse() error {
	for _, providerName := range cfg.ProvidersOrder {
		provider, err := cfg.GetProvider(providerName)
		if err != nil {
			return errors.Wrapf(err, "provider %q", providerName)
		}
		if err := provider.Parse(cfg.Service); err != nil {
			return errors.Wrapf(err, "parse config by %q", providerName)
		}
	}

	return nil
}

// RegisterProvider registers configuration adapter and appends it to the order.
func (cfg *Collector) RegisterProvider(providerName string, iface Provider) error {
	if providerName == "" {
		return ErrEmptyProviderName
	}

	if _, found := cfg.providers.LoadOrStore(providerName, iface); found {
		return errors.Wrapf(ErrProviderAlreadyRegistered, "providerName %q", providerName)
	}

	cfg.SetProvidersOrder(providerName)

	return nil
}

func (cfg *Collector) GetProvider(providerName string) (Provider, error) {
	v, found := cfg.providers.Load(providerName)
	if !found {
		return nil, ErrProviderNotRegistered
	}

	return v.(Provider), nil
}

// SetProvidersOrder appends providers to the execution order.
func (cfg *Collector) SetProvidersOrder(order ...string) {
	cfg.ProvidersOrder = append(cfg.ProvidersOrder, order...)
}
