package emailblock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk.co.dudmesh.agora/internal/model"
	"uk.co.dudmesh.agora/internal/store"
)

func newService(t *testing.T) *service {
	t.Helper()
	s, err := store.Open("file:" + model.CreateID() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestNormalizeDomain(t *testing.T) {
	assert := assert.New(t)

	domain, err := NormalizeDomain(" Example.COM. ")
	require.NoError(t, err)
	assert.Equal("example.com", domain)

	domain, err = NormalizeDomain("bücher.example")
	require.NoError(t, err)
	assert.Equal("xn--bcher-kva.example", domain)

	_, err = NormalizeDomain("")
	assert.ErrorIs(err, model.ErrorInvalidDomain)

	_, err = NormalizeDomain("bad domain")
	assert.ErrorIs(err, model.ErrorInvalidDomain)
}

func TestBlocked(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Create(ctx, "Spam.Example")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bücher.example")
	require.NoError(t, err)

	tests := []struct {
		email   string
		blocked bool
	}{
		{"alice@example.com", false},
		{"no-domain", true},
		{"bob@spam.example", true},
		{"bob@SPAM.EXAMPLE", true},
		{"bob@sub.spam.example", false},
		{"carol@freebie.tk", true},
		{"carol@freebie.ga", true},
		{"carol@freebie.ml", true},
		{"carol@freebie.cf", true},
		{"carol@tk.example", false},
		{"dave@xn--bcher-kva.example", true},
		{"dave@bücher.example", true},
		{"erin@bad domain", true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			blocked, err := svc.Blocked(ctx, tt.email)
			require.NoError(t, err)
			assert.Equal(t, tt.blocked, blocked)
		})
	}
}

func TestCreateListDelete(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	svc := newService(t)

	block, err := svc.Create(ctx, "Example.org")
	require.NoError(t, err)
	assert.Equal("example.org", block.Domain)

	_, err = svc.Create(ctx, "EXAMPLE.org")
	assert.ErrorIs(err, model.ErrorDuplicateEmailDomainBlock)

	_, err = svc.Create(ctx, "  ")
	assert.ErrorIs(err, model.ErrorInvalidDomain)

	blocks, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	assert.NoError(svc.Delete(ctx, block.ID))
	assert.ErrorIs(svc.Delete(ctx, block.ID), model.ErrorEmailDomainBlockNotFound)
}
