package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/robby/pflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// fakeRecordAPI serves canned GraphQL responses and records every request.
type fakeRecordAPI struct {
	mu       sync.Mutex
	requests []gqlRequest
	auth     []string
	respond  func(req gqlRequest) any
}

func (f *fakeRecordAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req gqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(f.respond(req))
}

func newTestRemote(t *testing.T, respond func(req gqlRequest) any) (*Gateway, *fakeRecordAPI) {
	t.Helper()
	api := &fakeRecordAPI{respond: respond}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewRemote(NewClient(srv.URL, "tok123", 5*time.Second)), api
}

func TestRemoteDeals_List(t *testing.T) {
	gw, api := newTestRemote(t, func(req gqlRequest) any {
		return map[string]any{"data": map[string]any{"records": map[string]any{
			"nodes": []any{
				map[string]any{"Id": 1, "title": "One", "value": "1000", "stage": "lead"},
				map[string]any{"Id": 2, "title": "Two", "value": 2000, "stage": "qualified"},
			},
			"total": 2,
		}}}
	})

	deals, err := gw.Deals.List(context.Background(), Filter{Search: "o", Status: "all"})
	require.NoError(t, err)
	require.Len(t, deals, 2)
	assert.Equal(t, "1", deals[0].ID)
	assert.Equal(t, domain.StageQualified, deals[1].Stage)
	assert.Equal(t, "2000", deals[1].Value.String())

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.Equal(t, "deal_c", req.Variables["table"])
	assert.Equal(t, "Bearer tok123", api.auth[0])

	where := req.Variables["where"].([]any)
	require.Len(t, where, 1, "status=all adds no condition")
	assert.Equal(t, "Contains", where[0].(map[string]any)["operator"])
	assert.EqualValues(t, DefaultPageSize, req.Variables["paging"].(map[string]any)["limit"])
}

func TestRemoteDeals_GetMissing(t *testing.T) {
	gw, _ := newTestRemote(t, func(req gqlRequest) any {
		return map[string]any{"data": map[string]any{"record": nil}}
	})

	_, err := gw.Deals.Get(context.Background(), "404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoteDeals_Update(t *testing.T) {
	gw, api := newTestRemote(t, func(req gqlRequest) any {
		fields := req.Variables["fields"].(map[string]any)
		return map[string]any{"data": map[string]any{"updateRecord": map[string]any{
			"success": true,
			"record": map[string]any{
				"Id": req.Variables["id"], "title": "One", "value": 1000,
				"stage": fields["stage"], "movedToStageAt": fields["movedToStageAt"],
			},
		}}}
	})

	d, err := gw.Deals.Update(context.Background(), "1", domain.Fields{
		domain.FieldStage:          "proposal",
		domain.FieldMovedToStageAt: "2026-04-01T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StageProposal, d.Stage)
	assert.Equal(t, "1", d.ID)
	assert.True(t, strings.Contains(api.requests[0].Query, "updateRecord"))
}

func TestRemoteDeals_UpdateRejected(t *testing.T) {
	gw, _ := newTestRemote(t, func(req gqlRequest) any {
		return map[string]any{"data": map[string]any{"updateRecord": map[string]any{
			"success": false, "message": "stage is read-only",
		}}}
	})

	_, err := gw.Deals.Update(context.Background(), "1", domain.Fields{domain.FieldStage: "lead"})
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "stage is read-only")
}

func TestRemote_GraphQLError(t *testing.T) {
	gw, _ := newTestRemote(t, func(req gqlRequest) any {
		return map[string]any{"errors": []any{map[string]any{"message": "boom"}}}
	})

	_, err := gw.Contacts.List(context.Background(), Filter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch contact_c records")
}

func TestRemote_DeleteAndCreate(t *testing.T) {
	gw, api := newTestRemote(t, func(req gqlRequest) any {
		switch {
		case strings.Contains(req.Query, "deleteRecord"):
			return map[string]any{"data": map[string]any{"deleteRecord": map[string]any{"success": true}}}
		default:
			return map[string]any{"data": map[string]any{"createRecord": map[string]any{
				"success": true,
				"record":  map[string]any{"Id": 9, "type": "note", "description": "hi"},
			}}}
		}
	})

	a, err := gw.Activities.Create(context.Background(), domain.Fields{"description": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "9", a.ID)
	assert.Equal(t, "activity_c", api.requests[0].Variables["table"])

	require.NoError(t, gw.Activities.Delete(context.Background(), "9"))
}

func TestListAll_Pages(t *testing.T) {
	gw, api := newTestRemote(t, func(req gqlRequest) any {
		offset := int(req.Variables["paging"].(map[string]any)["offset"].(float64))
		var nodes []any
		if offset == 0 {
			nodes = []any{map[string]any{"Id": 1}, map[string]any{"Id": 2}}
		} else {
			nodes = []any{map[string]any{"Id": 3}}
		}
		return map[string]any{"data": map[string]any{"records": map[string]any{"nodes": nodes}}}
	})

	all, err := ListAll(context.Background(), gw.Contacts, Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Len(t, api.requests, 2)
}

func TestOpen_Backends(t *testing.T) {
	_, _, err := Open(Options{Backend: "mongo"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, _, err = Open(Options{Backend: BackendGraphQL})
	assert.Error(t, err)

	gw, closer, err := Open(Options{Backend: BackendSQLite, DBPath: ":memory:"})
	require.NoError(t, err)
	defer closer.Close()
	assert.NotNil(t, gw.Deals)
}
