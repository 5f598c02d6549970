package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appAudit "github.com/tradepost/tradepost/internal/application/audit"
	appAuth "github.com/tradepost/tradepost/internal/application/auth"
	appConversation "github.com/tradepost/tradepost/internal/application/conversation"
	appListing "github.com/tradepost/tradepost/internal/application/listing"
	appMessage "github.com/tradepost/tradepost/internal/application/message"
	appModeration "github.com/tradepost/tradepost/internal/application/moderation"
	appPermission "github.com/tradepost/tradepost/internal/application/permission"
	appPrincipal "github.com/tradepost/tradepost/internal/application/principal"
	"github.com/tradepost/tradepost/internal/domain/audit"
	"github.com/tradepost/tradepost/internal/domain/listing"
	"github.com/tradepost/tradepost/internal/domain/message"
	"github.com/tradepost/tradepost/internal/domain/moderation"
	"github.com/tradepost/tradepost/internal/domain/principal"
	"github.com/tradepost/tradepost/internal/domain/session"
	"github.com/tradepost/tradepost/internal/infrastructure/memstore"
)

// In-memory repositories. Only the behavior the handlers exercise is
// implemented.

type memPrincipalRepo struct {
	mu   sync.Mutex
	rows map[int64]*principal.Principal
}

func newMemPrincipalRepo() *memPrincipalRepo {
	return &memPrincipalRepo{rows: map[int64]*principal.Principal{}}
}

func (r *memPrincipalRepo) Create(_ context.Context, p *principal.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

func (r *memPrincipalRepo) Update(_ context.Context, p *principal.Principal) error {
	return r.Create(nil, p)
}

func (r *memPrincipalRepo) GetByID(_ context.Context, id int64) (*principal.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memPrincipalRepo) List(_ context.Context, _ principal.Filter, _, _ int) ([]*principal.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*principal.Principal, 0, len(r.rows))
	for _, p := range r.rows {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memPrincipalRepo) SetActive(_ context.Context, id int64, active bool, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.rows[id]; ok {
		p.Active = active
		p.SuspensionReason = reason
	}
	return nil
}

func (r *memPrincipalRepo) SetRole(_ context.Context, id int64, role principal.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.rows[id]; ok {
		p.Role = role
	}
	return nil
}

func (r *memPrincipalRepo) IncrementWarnings(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.rows[id]; ok {
		p.WarningCount++
	}
	return nil
}

func (r *memPrincipalRepo) Count(_ context.Context, _ principal.Filter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows), nil
}

type memSessionRepo struct {
	mu   sync.Mutex
	rows map[string]*session.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{rows: map[string]*session.Session{}}
}

func (r *memSessionRepo) Create(_ context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.rows[s.TokenHash] = &cp
	return nil
}

func (r *memSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[tokenHash]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) DeleteByID(_ context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.rows {
		if s.SessionID == sessionID {
			delete(r.rows, k)
		}
	}
	return nil
}

func (r *memSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, tokenHash)
	return nil
}

func (r *memSessionRepo) UpdateLastSeen(_ context.Context, _ uuid.UUID) error { return nil }

func (r *memSessionRepo) DeleteExpired(_ context.Context) (int, error) { return 0, nil }

type memListingRepo struct {
	mu   sync.Mutex
	next int64
	rows map[int64]*listing.Listing
}

func newMemListingRepo() *memListingRepo {
	return &memListingRepo{rows: map[int64]*listing.Listing{}}
}

func (r *memListingRepo) Create(_ context.Context, l *listing.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	l.ID = r.next
	cp := *l
	r.rows[l.ID] = &cp
	return nil
}

func (r *memListingRepo) Update(_ context.Context, l *listing.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.rows[l.ID] = &cp
	return nil
}

func (r *memListingRepo) GetByID(_ context.Context, id int64) (*listing.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *memListingRepo) Search(_ context.Context, filter listing.Filter, _, _ int) ([]*listing.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*listing.Listing
	for _, l := range r.rows {
		if filter.Flagged != nil && l.Flagged != *filter.Flagged {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memListingRepo) Count(ctx context.Context, filter listing.Filter) (int, error) {
	rows, err := r.Search(ctx, filter, 0, 0)
	return len(rows), err
}

func (r *memListingRepo) AddPhoto(_ context.Context, _ *listing.Photo) error { return nil }

func (r *memListingRepo) SetFlag(_ context.Context, id int64, flagged bool, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.rows[id]; ok {
		l.Flagged = flagged
		l.FlagReason = reason
	}
	return nil
}

func (r *memListingRepo) SetStatus(_ context.Context, id int64, status listing.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.rows[id]; ok {
		l.Status = status
	}
	return nil
}

func (r *memListingRepo) IncrementViews(_ context.Context, _ int64) error { return nil }

type memMessageRepo struct{}

func (memMessageRepo) Create(_ context.Context, _ *message.Message) error { return nil }
func (memMessageRepo) ListBetween(_ context.Context, _, _ int64, _, _ int) ([]*message.Message, error) {
	return nil, nil
}
func (memMessageRepo) MarkRead(_ context.Context, _ int64) error           { return nil }
func (memMessageRepo) CountUnread(_ context.Context, _ int64) (int, error) { return 0, nil }

type memWarningRepo struct {
	mu   sync.Mutex
	rows []*moderation.Warning
}

func (r *memWarningRepo) Create(_ context.Context, w *moderation.Warning) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w.ID = int64(len(r.rows) + 1)
	cp := *w
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *memWarningRepo) ListByUser(_ context.Context, userID int64, activeOnly bool) ([]*moderation.Warning, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*moderation.Warning
	for _, w := range r.rows {
		if w.UserID != userID {
			continue
		}
		if activeOnly && !w.Active {
			continue
		}
		cp := *w
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memWarningRepo) CountActive(ctx context.Context, userID int64) (int, error) {
	rows, err := r.ListByUser(ctx, userID, true)
	return len(rows), err
}

func (r *memWarningRepo) Deactivate(_ context.Context, _ int64) error { return nil }

func (r *memWarningRepo) DeactivateExpired(_ context.Context) (int, error) { return 0, nil }

type memFilterRepo struct{}

func (memFilterRepo) Upsert(_ context.Context, _ *moderation.FilterRule) error { return nil }
func (memFilterRepo) ListActive(_ context.Context) ([]*moderation.FilterRule, error) {
	return nil, nil
}
func (memFilterRepo) SetActive(_ context.Context, _ int64, _ bool) error { return nil }

type memAuditRepo struct {
	mu   sync.Mutex
	rows []*audit.Entry
}

func (r *memAuditRepo) Create(_ context.Context, e *audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = int64(len(r.rows) + 1)
	cp := *e
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *memAuditRepo) GetByEntryID(_ context.Context, entryID uuid.UUID) (*audit.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if e.EntryID == entryID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memAuditRepo) Query(_ context.Context, _ audit.QueryFilter, _ *audit.Cursor, _ int) ([]*audit.Entry, *audit.Cursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*audit.Entry, 0, len(r.rows))
	for _, e := range r.rows {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil, nil
}

func (r *memAuditRepo) GetByTarget(_ context.Context, targetType audit.TargetType, targetID string) ([]*audit.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*audit.Entry
	for _, e := range r.rows {
		if e.TargetType == targetType && e.TargetID == targetID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memAuditRepo) Count(_ context.Context, _ audit.QueryFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

const (
	adminID      = int64(10)
	moderatorID  = int64(20)
	regularID    = int64(30)
	testPassword = "Dashb0ardPass!x"
)

type testEnv struct {
	server     *httptest.Server
	principals *memPrincipalRepo
	audits     *memAuditRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	principals := newMemPrincipalRepo()
	sessions := newMemSessionRepo()
	listings := newMemListingRepo()
	warnings := &memWarningRepo{}
	audits := &memAuditRepo{}

	hash, err := principal.HashPassword(testPassword)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, principals.Create(context.Background(), &principal.Principal{
		ID: adminID, Username: "admin", Role: principal.RoleAdmin, Active: true,
		PasswordHash: hash, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, principals.Create(context.Background(), &principal.Principal{
		ID: moderatorID, Username: "mod", Role: principal.RoleModerator, Active: true,
		PasswordHash: hash, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, principals.Create(context.Background(), &principal.Principal{
		ID: regularID, Username: "bob", Active: true, CreatedAt: now, UpdatedAt: now,
	}))

	perms := appPermission.NewService([]int64{adminID, moderatorID}, logger)
	principalSvc := appPrincipal.NewService(principals, logger)
	listingSvc := appListing.NewService(listings, appListing.Limits{MaxPhotos: 3}, logger)
	messageSvc := appMessage.NewService(memMessageRepo{}, listings, logger)
	auditSvc := appAudit.NewService(audits, logger, []byte("test-signing-key"))
	moderationSvc := appModeration.NewService(
		perms, auditSvc, principals, listings, warnings, memFilterRepo{}, false, logger,
	)
	authSvc := appAuth.NewService(principals, sessions, time.Hour, logger)
	controller := appConversation.NewController(
		memstore.New(), principalSvc, listingSvc, messageSvc, moderationSvc, perms,
		appConversation.Options{MaxPhotos: 3, PageSize: 5}, logger,
	)

	srv := NewServer(
		controller, authSvc, auditSvc, moderationSvc, principalSvc, listingSvc, perms,
		"tradepost_session", false,
	)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, principals: principals, audits: audits}
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) getJSON(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) login(t *testing.T, id int64) string {
	t.Helper()
	resp := e.postJSON(t, "/v1/auth/login", map[string]interface{}{
		"principal_id": id,
		"password":     testPassword,
	}, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.SessionToken)
	return body.SessionToken
}

func decodeResp(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestGatewayEventReturnsActions(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/v1/gateway/events", map[string]interface{}{
		"sender": map[string]interface{}{"id": regularID, "username": "bob"},
		"event":  map[string]interface{}{"input": "text", "text": "hello"},
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body gatewayEventResponse
	decodeResp(t, resp, &body)
	require.Len(t, body.Actions, 1)
	assert.Equal(t, regularID, body.Actions[0].PrincipalID)
	assert.NotEmpty(t, body.Actions[0].Suggest)
}

func TestGatewayEventRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/v1/gateway/events", map[string]interface{}{
		"sender": map[string]interface{}{"id": regularID},
		"event":  map[string]interface{}{"input": "carrier-pigeon"},
	}, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.postJSON(t, "/v1/gateway/events", map[string]interface{}{
		"event": map[string]interface{}{"input": "text", "text": "hi"},
	}, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginAndMe(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, adminID)

	resp := env.getJSON(t, "/v1/auth/me", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p principal.Principal
	decodeResp(t, resp, &p)
	assert.Equal(t, adminID, p.ID)
	assert.Equal(t, principal.RoleAdmin, p.Role)
}

func TestLoginRejectsPrincipalWithoutRole(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/v1/auth/login", map[string]interface{}{
		"principal_id": regularID,
		"password":     testPassword,
	}, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.getJSON(t, "/v1/admin/audit", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.getJSON(t, "/v1/admin/audit", "not-a-real-token")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuditQueryGatedByPermission(t *testing.T) {
	env := newTestEnv(t)

	modToken := env.login(t, moderatorID)
	resp := env.getJSON(t, "/v1/admin/audit", modToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	adminToken := env.login(t, adminID)
	resp = env.getJSON(t, "/v1/admin/audit", adminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body appAudit.QueryResult
	decodeResp(t, resp, &body)
	assert.Equal(t, len(body.Entries), body.Count)
}

func TestTargetHistoryShowsModerationTrail(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.login(t, adminID)

	// Drive a block through the chat flow so the trail has an entry.
	send := func(ev map[string]interface{}) {
		resp := env.postJSON(t, "/v1/gateway/events", map[string]interface{}{
			"sender": map[string]interface{}{"id": adminID, "username": "admin"},
			"event":  ev,
		}, "")
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	send(map[string]interface{}{"input": "selection", "action": "admin_block"})
	send(map[string]interface{}{"input": "text", "text": "30"})
	send(map[string]interface{}{"input": "text", "text": "spamming other users"})

	resp := env.getJSON(t, "/v1/admin/targets/user/30/history", adminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Entries []*audit.Entry `json:"entries"`
	}
	decodeResp(t, resp, &body)
	require.NotEmpty(t, body.Entries)
	assert.Equal(t, adminID, body.Entries[0].ActorID)
	assert.NotEmpty(t, body.Entries[0].Signature)

	resp = env.getJSON(t, "/v1/admin/targets/carrier/30/history", adminToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, adminID)

	resp := env.postJSON(t, "/v1/auth/logout", map[string]interface{}{}, token)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.getJSON(t, "/v1/auth/me", token)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp := env.getJSON(t, "/healthz", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthorizeProbe(t *testing.T) {
	env := newTestEnv(t)

	var body struct {
		Role        principal.Role `json:"role"`
		Permissions []string       `json:"permissions"`
		Authorized  bool           `json:"authorized"`
	}

	modToken := env.login(t, moderatorID)
	resp := env.getJSON(t, "/v1/admin/authorize?permission=block_users", modToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeResp(t, resp, &body)
	assert.Equal(t, principal.RoleModerator, body.Role)
	assert.False(t, body.Authorized)
	assert.NotEmpty(t, body.Permissions)

	adminToken := env.login(t, adminID)
	resp = env.getJSON(t, "/v1/admin/authorize?permission=block_users", adminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeResp(t, resp, &body)
	assert.Equal(t, principal.RoleAdmin, body.Role)
	assert.True(t, body.Authorized)
}
