package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"

	"github.com/ringbill/ringbill/pkg/db/pagination"
)

type Service interface {
	// Create opens a dispute against a billed call. The call must still be
	// inside its dispute window and carry no other open dispute; it moves to
	// disputed in the same transaction.
	Create(ctx context.Context, orgID snowflake.ID, req CreateRequest) (*Dispute, error)
	Get(ctx context.Context, orgID, id snowflake.ID) (*Dispute, error)
	List(ctx context.Context, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]Dispute, *pagination.PageInfo, error)
	// Resolve closes an open dispute and settles the call: approved and
	// partial_refund move it to refunded, rejected returns it to billed.
	Resolve(ctx context.Context, orgID, id snowflake.ID, req ResolveRequest) (*Dispute, error)
}
