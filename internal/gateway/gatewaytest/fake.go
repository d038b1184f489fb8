// Package gatewaytest provides an in-memory gateway.Collection for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
)

// Operation names recorded in Call.Op.
const (
	OpList   = "list"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Call is one recorded invocation.
type Call struct {
	Op     string
	ID     string
	Fields domain.Fields
}

// Collection is a thread-safe in-memory Collection. Writes merge fields the
// way the record API does, without any server-side stamping.
type Collection[T any] struct {
	mu     sync.Mutex
	table  gateway.Table[T]
	items  []gateway.Record
	calls  []Call
	fail   map[string]error
	nextID int
}

// New returns a fake collection preloaded with items.
func New[T any](table gateway.Table[T], items ...T) *Collection[T] {
	c := &Collection[T]{table: table, fail: map[string]error{}}
	for _, it := range items {
		c.items = append(c.items, table.Encode(it))
	}
	c.nextID = len(items) + 1000
	return c
}

// Fail makes every later call of op return err; a nil err clears it.
func (c *Collection[T]) Fail(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.fail, op)
		return
	}
	c.fail[op] = err
}

// Calls returns the recorded calls of op, or all calls when op is empty.
func (c *Collection[T]) Calls(op string) []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Call
	for _, call := range c.calls {
		if op == "" || call.Op == op {
			out = append(out, call)
		}
	}
	return out
}

func (c *Collection[T]) record(op, id string, fields domain.Fields) error {
	c.calls = append(c.calls, Call{Op: op, ID: id, Fields: fields})
	return c.fail[op]
}

func (c *Collection[T]) index(id string) int {
	for i, r := range c.items {
		if c.table.ID(c.table.Decode(r)) == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) List(ctx context.Context, filter gateway.Filter) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpList, "", nil); err != nil {
		return nil, err
	}

	var out []T
	for _, r := range c.items {
		if filter.Search != "" {
			name := strings.ToLower(fmt.Sprint(r["name"], r["title"]))
			if !strings.Contains(name, strings.ToLower(filter.Search)) {
				continue
			}
		}
		if filter.ContactID != "" && fmt.Sprint(r[domain.FieldContactID]) != filter.ContactID {
			continue
		}
		if filter.Status != "" && filter.Status != "all" && fmt.Sprint(r["status"]) != filter.Status {
			continue
		}
		out = append(out, c.table.Decode(r))
	}

	if filter.Offset >= len(out) {
		return []T{}, nil
	}
	out = out[filter.Offset:]
	limit := filter.Limit
	if limit <= 0 {
		limit = gateway.DefaultPageSize
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if err := c.record(OpGet, id, nil); err != nil {
		return zero, err
	}
	i := c.index(id)
	if i < 0 {
		return zero, fmt.Errorf("%w: %s", gateway.ErrNotFound, id)
	}
	return c.table.Decode(c.items[i]), nil
}

func (c *Collection[T]) Create(ctx context.Context, fields domain.Fields) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if err := c.record(OpCreate, "", fields); err != nil {
		return zero, err
	}
	r := gateway.Record{}
	for k, v := range fields {
		r[k] = v
	}
	c.nextID++
	r["id"] = strconv.Itoa(c.nextID)
	c.items = append(c.items, r)
	return c.table.Decode(r), nil
}

func (c *Collection[T]) Update(ctx context.Context, id string, fields domain.Fields) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if err := c.record(OpUpdate, id, fields); err != nil {
		return zero, err
	}
	i := c.index(id)
	if i < 0 {
		return zero, fmt.Errorf("%w: %s", gateway.ErrNotFound, id)
	}
	r := gateway.Record{}
	for k, v := range c.items[i] {
		r[k] = v
	}
	for k, v := range fields {
		r[k] = v
	}
	c.items[i] = r
	return c.table.Decode(r), nil
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record(OpDelete, id, nil); err != nil {
		return err
	}
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", gateway.ErrNotFound, id)
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return nil
}

// Gateway returns a gateway whose collections are all empty fakes.
// Callers replace the collections they need to preload.
func Gateway() *gateway.Gateway {
	return &gateway.Gateway{
		Deals:       New(gateway.DealTable),
		Contacts:    New(gateway.ContactTable),
		Companies:   New(gateway.CompanyTable),
		Quotes:      New(gateway.QuoteTable),
		SalesOrders: New(gateway.SalesOrderTable),
		Activities:  New(gateway.ActivityTable),
	}
}
