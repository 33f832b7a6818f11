package extension

import (
	"sort"
	"sync"

	"github.com/viant/fleurflow/model/types"
)

// Actions provides calculation services by name
type Actions struct {
	services map[string]types.Service
	proxies  []types.Proxy
	mux      sync.RWMutex
}

// Lookup returns a service by name
func (s *Actions) Lookup(name string) types.Service {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.services[name]
}

// Register registers a service wrapped with the configured proxies
func (s *Actions) Register(service types.Service) {
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, proxy := range s.proxies {
		service = proxy(service)
	}
	s.services[service.Name()] = service
}

// Names returns registered service names
func (s *Actions) Names() []string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ret := make([]string, 0, len(s.services))
	for name := range s.services {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// NewActions creates a registry applying proxies to every registered service
func NewActions(proxies ...types.Proxy) *Actions {
	return &Actions{
		services: make(map[string]types.Service),
		proxies:  proxies,
	}
}
