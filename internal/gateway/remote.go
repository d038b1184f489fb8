package gateway

import (
	"context"

	"github.com/robby/pflow/internal/domain"
)

// remoteCollection adapts the untyped record API to a typed Collection.
type remoteCollection[T any] struct {
	client *Client
	table  Table[T]
}

func (c remoteCollection[T]) List(ctx context.Context, filter Filter) ([]T, error) {
	records, err := c.client.FetchRecords(ctx, c.table.Name, filter)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		out = append(out, c.table.Decode(r))
	}
	return out, nil
}

func (c remoteCollection[T]) Get(ctx context.Context, id string) (T, error) {
	r, err := c.client.GetRecord(ctx, c.table.Name, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.table.Decode(r), nil
}

func (c remoteCollection[T]) Create(ctx context.Context, fields domain.Fields) (T, error) {
	r, err := c.client.CreateRecord(ctx, c.table.Name, fields)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.table.Decode(r), nil
}

func (c remoteCollection[T]) Update(ctx context.Context, id string, fields domain.Fields) (T, error) {
	r, err := c.client.UpdateRecord(ctx, c.table.Name, id, fields)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.table.Decode(r), nil
}

func (c remoteCollection[T]) Delete(ctx context.Context, id string) error {
	return c.client.DeleteRecord(ctx, c.table.Name, id)
}

// NewRemote returns a Gateway backed by the GraphQL record API.
func NewRemote(client *Client) *Gateway {
	return &Gateway{
		Deals:       remoteCollection[domain.Deal]{client, DealTable},
		Contacts:    remoteCollection[domain.Contact]{client, ContactTable},
		Companies:   remoteCollection[domain.Company]{client, CompanyTable},
		Quotes:      remoteCollection[domain.Quote]{client, QuoteTable},
		SalesOrders: remoteCollection[domain.SalesOrder]{client, SalesOrderTable},
		Activities:  remoteCollection[domain.Activity]{client, ActivityTable},
	}
}
