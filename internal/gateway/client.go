package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/machinebox/graphql"
)

// Client is a GraphQL client for the record API.
// It exposes generic record queries and mutations addressed by table name.
type Client struct {
	gql     *graphql.Client
	token   string
	timeout time.Duration
}

// NewClient creates a record API client for endpoint. token is sent as a
// bearer token on every request; timeout bounds each call (0 disables).
func NewClient(endpoint, token string, timeout time.Duration) *Client {
	return &Client{
		gql:     graphql.NewClient(endpoint),
		token:   token,
		timeout: timeout,
	}
}

// makeRequest executes a GraphQL request with authentication.
func (c *Client) makeRequest(ctx context.Context, req *graphql.Request, resp interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.gql.Run(ctx, req, resp)
}

// condition is one where-clause entry understood by the record API.
type condition struct {
	FieldName string   `json:"fieldName"`
	Operator  string   `json:"operator"`
	Values    []string `json:"values"`
}

type ordering struct {
	FieldName string `json:"fieldName"`
	SortType  string `json:"sorttype"`
}

type paging struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FetchRecords lists raw records from table matching filter.
func (c *Client) FetchRecords(ctx context.Context, table string, filter Filter) ([]Record, error) {
	req := graphql.NewRequest(`
		query($table: String!, $where: [RecordCondition!], $orderBy: [RecordOrder!], $paging: RecordPaging) {
			records(table: $table, where: $where, orderBy: $orderBy, paging: $paging) {
				nodes
				total
			}
		}
	`)

	where := []condition{}
	if filter.Search != "" {
		where = append(where, condition{FieldName: "Name", Operator: "Contains", Values: []string{filter.Search}})
	}
	if s := filter.status(); s != "" {
		where = append(where, condition{FieldName: "status", Operator: "EqualTo", Values: []string{s}})
	}
	if filter.ContactID != "" {
		where = append(where, condition{FieldName: "contactId", Operator: "EqualTo", Values: []string{filter.ContactID}})
	}

	orderBy := []ordering{}
	if filter.OrderBy != "" {
		sortType := "ASC"
		if filter.Desc {
			sortType = "DESC"
		}
		orderBy = append(orderBy, ordering{FieldName: filter.OrderBy, SortType: sortType})
	}

	req.Var("table", table)
	req.Var("where", where)
	req.Var("orderBy", orderBy)
	req.Var("paging", paging{Limit: filter.limit(), Offset: filter.Offset})

	var resp struct {
		Records struct {
			Nodes []Record `json:"nodes"`
			Total int      `json:"total"`
		} `json:"records"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch %s records: %w", table, err)
	}

	return resp.Records.Nodes, nil
}

// GetRecord fetches a single raw record, returning ErrNotFound for a null node.
func (c *Client) GetRecord(ctx context.Context, table, id string) (Record, error) {
	req := graphql.NewRequest(`
		query($table: String!, $id: ID!) {
			record(table: $table, id: $id)
		}
	`)
	req.Var("table", table)
	req.Var("id", id)

	var resp struct {
		Record Record `json:"record"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to get %s record %s: %w", table, id, err)
	}
	if resp.Record == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, table, id)
	}

	return resp.Record, nil
}

// writeResult is the payload every record mutation returns.
type writeResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Record  Record   `json:"record"`
	Errors  []string `json:"errors"`
}

func (w writeResult) err(op, table string) error {
	if w.Success {
		return nil
	}
	msg := w.Message
	if msg == "" && len(w.Errors) > 0 {
		msg = w.Errors[0]
	}
	return fmt.Errorf("%w: %s %s: %s", ErrRejected, op, table, msg)
}

// CreateRecord inserts fields into table and returns the stored record.
func (c *Client) CreateRecord(ctx context.Context, table string, fields map[string]any) (Record, error) {
	req := graphql.NewRequest(`
		mutation($table: String!, $fields: JSON!) {
			createRecord(table: $table, fields: $fields) {
				success
				message
				record
				errors
			}
		}
	`)
	req.Var("table", table)
	req.Var("fields", fields)

	var resp struct {
		CreateRecord writeResult `json:"createRecord"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", table, err)
	}
	if err := resp.CreateRecord.err("create", table); err != nil {
		return nil, err
	}

	return resp.CreateRecord.Record, nil
}

// UpdateRecord merges fields into the record and returns the stored result.
func (c *Client) UpdateRecord(ctx context.Context, table, id string, fields map[string]any) (Record, error) {
	req := graphql.NewRequest(`
		mutation($table: String!, $id: ID!, $fields: JSON!) {
			updateRecord(table: $table, id: $id, fields: $fields) {
				success
				message
				record
				errors
			}
		}
	`)
	req.Var("table", table)
	req.Var("id", id)
	req.Var("fields", fields)

	var resp struct {
		UpdateRecord writeResult `json:"updateRecord"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to update %s record %s: %w", table, id, err)
	}
	if err := resp.UpdateRecord.err("update", table); err != nil {
		return nil, err
	}
	if resp.UpdateRecord.Record == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, table, id)
	}

	return resp.UpdateRecord.Record, nil
}

// DeleteRecord removes a record from table.
func (c *Client) DeleteRecord(ctx context.Context, table, id string) error {
	req := graphql.NewRequest(`
		mutation($table: String!, $id: ID!) {
			deleteRecord(table: $table, id: $id) {
				success
				message
			}
		}
	`)
	req.Var("table", table)
	req.Var("id", id)

	var resp struct {
		DeleteRecord writeResult `json:"deleteRecord"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return fmt.Errorf("failed to delete %s record %s: %w", table, id, err)
	}

	return resp.DeleteRecord.err("delete", table)
}
