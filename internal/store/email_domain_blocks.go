package store

import (
	"context"
	"fmt"

	"uk.co.dudmesh.agora/internal/model"
)

func (s *Store) CreateEmailDomainBlock(ctx context.Context, block *model.EmailDomainBlock) error {
	res, err := s.db.NamedExecContext(ctx, `insert into email_domain_blocks (id, domain, created_at)
		values(:id, :domain, :created_at)`, block)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrorDuplicateEmailDomainBlock
		}
		return fmt.Errorf("inserting email domain block: %w", err)
	}
	return expectOneRow(res)
}

func (s *Store) EmailDomainBlockExists(ctx context.Context, domain string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `select exists(select 1 from email_domain_blocks where domain = ?)`, domain)
	if err != nil {
		return false, fmt.Errorf("checking email domain block: %w", err)
	}
	return exists, nil
}

func (s *Store) ListEmailDomainBlocks(ctx context.Context) ([]*model.EmailDomainBlock, error) {
	blocks := []*model.EmailDomainBlock{}
	if err := s.db.SelectContext(ctx, &blocks, `select * from email_domain_blocks order by domain`); err != nil {
		return nil, fmt.Errorf("listing email domain blocks: %w", err)
	}
	return blocks, nil
}

func (s *Store) DeleteEmailDomainBlock(ctx context.Context, id model.EmailDomainBlockID) error {
	res, err := s.db.ExecContext(ctx, `delete from email_domain_blocks where id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting email domain block: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return model.ErrorEmailDomainBlockNotFound
	}
	return nil
}
