package service

import (
	"testing"

	"civic-ledger/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticClientRegistry_Lookup(t *testing.T) {
	reg := NewStaticClientRegistry([]ports.ServiceClient{
		{Name: "task-engine", AccessKey: "ak_task", Secret: "sk_task", Scopes: []string{ports.ScopeIntents}},
		{Name: "kyc-provider", AccessKey: "ak_kyc", Secret: "sk_kyc", Scopes: []string{ports.ScopeKYC}},
	})

	c, ok := reg.Lookup("ak_kyc")
	require.True(t, ok)
	assert.Equal(t, "kyc-provider", c.Name)
	assert.True(t, c.HasScope(ports.ScopeKYC))
	assert.False(t, c.HasScope(ports.ScopeIntents))

	task, ok := reg.Lookup("ak_task")
	require.True(t, ok)
	assert.Equal(t, "sk_task", task.Secret, "entries must not alias the loop variable")

	_, ok = reg.Lookup("ak_unknown")
	assert.False(t, ok)
}
