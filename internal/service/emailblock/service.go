package emailblock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/idna"
	"uk.co.dudmesh.agora/internal/model"
)

// BlockedTLDs are refused regardless of the stored blocks.
var BlockedTLDs = []string{"tk", "ga", "ml", "cf"}

type Store interface {
	CreateEmailDomainBlock(ctx context.Context, block *model.EmailDomainBlock) error
	EmailDomainBlockExists(ctx context.Context, domain string) (bool, error)
	ListEmailDomainBlocks(ctx context.Context) ([]*model.EmailDomainBlock, error)
	DeleteEmailDomainBlock(ctx context.Context, id model.EmailDomainBlockID) error
}

type service struct {
	store Store
}

func New(store Store) *service {
	return &service{store}
}

// NormalizeDomain lower-cases domain and converts it to its ASCII form.
func NormalizeDomain(domain string) (string, error) {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), ".")
	if domain == "" {
		return "", model.ErrorInvalidDomain
	}
	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return "", fmt.Errorf("%w: %s", model.ErrorInvalidDomain, err)
	}
	return strings.ToLower(ascii), nil
}

// Blocked reports whether sign ups from email must be refused. Addresses
// without a domain part or with a domain that cannot be normalised are
// refused too.
func (s *service) Blocked(ctx context.Context, email string) (bool, error) {
	_, domain, found := strings.Cut(email, "@")
	if !found {
		return true, nil
	}

	domain, err := NormalizeDomain(domain)
	if err != nil {
		return true, nil
	}

	for _, tld := range BlockedTLDs {
		if strings.HasSuffix(domain, "."+tld) {
			return true, nil
		}
	}

	exists, err := s.store.EmailDomainBlockExists(ctx, domain)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *service) Create(ctx context.Context, domain string) (*model.EmailDomainBlock, error) {
	normalized, err := NormalizeDomain(domain)
	if err != nil {
		return nil, err
	}
	block := &model.EmailDomainBlock{
		ID:        model.NewEmailDomainBlockID(),
		Domain:    normalized,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateEmailDomainBlock(ctx, block); err != nil {
		return nil, err
	}
	return block, nil
}

func (s *service) List(ctx context.Context) ([]*model.EmailDomainBlock, error) {
	return s.store.ListEmailDomainBlocks(ctx)
}

func (s *service) Delete(ctx context.Context, id model.EmailDomainBlockID) error {
	return s.store.DeleteEmailDomainBlock(ctx, id)
}
