package service

import "civic-ledger/internal/core/ports"

// StaticClientRegistry implements ports.ClientRegistry over the configured
// service clients.
type StaticClientRegistry struct {
	byKey map[string]*ports.ServiceClient
}

// NewStaticClientRegistry indexes clients by access key.
func NewStaticClientRegistry(clients []ports.ServiceClient) *StaticClientRegistry {
	r := &StaticClientRegistry{byKey: make(map[string]*ports.ServiceClient, len(clients))}
	for i := range clients {
		c := clients[i]
		r.byKey[c.AccessKey] = &c
	}
	return r
}

// Lookup returns the client holding accessKey.
func (r *StaticClientRegistry) Lookup(accessKey string) (*ports.ServiceClient, bool) {
	c, ok := r.byKey[accessKey]
	return c, ok
}
