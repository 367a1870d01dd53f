package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/internal/server/handlers"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
	"github.com/cabecera/ing-software-caba-itas/pkg/core/services"
	"github.com/cabecera/ing-software-caba-itas/pkg/locks"
	"github.com/cabecera/ing-software-caba-itas/pkg/memstore"
	"github.com/cabecera/ing-software-caba-itas/pkg/notify"
)

var now = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

var (
	admin    = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
	ops      = model.Actor{ID: "ops-1", Role: model.RoleOperations}
	customer = model.Actor{ID: "cust-1", Role: model.RoleCustomer}
)

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memstore.New()
	clock := func() time.Time { return now }
	rt := services.Runtime{
		Locker:   locks.NewMemory(),
		Notifier: notify.NewInbox(store, clock),
		Logger:   zap.NewNop(),
		Now:      clock,
	}
	h := handlers.NewHandler(store, rt, handlers.Options{HorizonDays: 30}, zap.NewNop())
	return &testServer{t: t, engine: New(h, zap.NewNop())}
}

func (s *testServer) do(actor *model.Actor, method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		req.Header.Set(handlers.HeaderActorID, actor.ID)
		req.Header.Set(handlers.HeaderActorRole, string(actor.Role))
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func day(offset int) string {
	return now.AddDate(0, 0, offset).Format(model.DateLayout)
}

func TestHealthAndIdentity(t *testing.T) {
	s := newTestServer(t)

	w := s.do(nil, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(nil, http.MethodGet, "/cabins", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(&model.Actor{ID: "x", Role: "guest"}, http.MethodGet, "/cabins", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(&customer, http.MethodGet, "/cabins", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestReservationFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(&admin, http.MethodPost, "/cabins", map[string]any{"name": "Alerce", "capacity": 4, "nightly_price": "50000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cabin := decode[model.Cabin](t, w)

	w = s.do(&customer, http.MethodPost, "/customers", map[string]any{"name": "Ana Rojas", "email": "ana@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(&customer, http.MethodPost, "/reservations", map[string]any{
		"cabin_id": cabin.ID, "start": day(10), "end": day(13), "guests": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	r := decode[model.Reservation](t, w)
	assert.Equal(t, model.ReservationPending, r.Status)
	assert.Equal(t, "150000.00", r.Amount.StringFixed(2))

	tests := []struct {
		name   string
		actor  model.Actor
		method string
		path   string
		body   any
		status int
		kind   model.Kind
	}{
		{
			name: "overlap is a conflict", actor: customer, method: http.MethodPost, path: "/reservations",
			body:   map[string]any{"cabin_id": cabin.ID, "start": day(12), "end": day(15), "guests": 2},
			status: http.StatusConflict, kind: model.KindConflict,
		},
		{
			name: "short lead time is invalid", actor: customer, method: http.MethodPost, path: "/reservations",
			body:   map[string]any{"cabin_id": cabin.ID, "start": day(1), "end": day(3), "guests": 2},
			status: http.StatusBadRequest, kind: model.KindValidation,
		},
		{
			name: "operations may not confirm", actor: ops, method: http.MethodPost, path: "/reservations/" + r.ID + "/confirm",
			status: http.StatusForbidden, kind: model.KindForbidden,
		},
		{
			name: "unknown reservation", actor: admin, method: http.MethodGet, path: "/reservations/nope",
			status: http.StatusNotFound, kind: model.KindNotFound,
		},
		{
			name: "completing a pending reservation", actor: admin, method: http.MethodPost, path: "/reservations/" + r.ID + "/complete",
			status: http.StatusUnprocessableEntity, kind: model.KindState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(&tt.actor, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			body := decode[map[string]any](t, w)
			assert.Equal(t, string(tt.kind), body["kind"])
		})
	}

	w = s.do(&customer, http.MethodGet, "/cabins/"+cabin.ID+"/availability?start="+day(11)+"&end="+day(12), nil)
	require.Equal(t, http.StatusOK, w.Code)
	avail := decode[map[string]any](t, w)
	assert.Equal(t, false, avail["available"])
	assert.Equal(t, r.ID, avail["ref"])

	w = s.do(&admin, http.MethodPost, "/reservations/"+r.ID+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.ReservationConfirmed, decode[model.Reservation](t, w).Status)

	w = s.do(&customer, http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	inbox := decode[[]model.Notification](t, w)
	require.NotEmpty(t, inbox)

	w = s.do(&customer, http.MethodPost, "/notifications/"+inbox[0].ID+"/read", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(&customer, http.MethodGet, "/reservations?status=confirmed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Reservation](t, w), 1)

	w = s.do(&customer, http.MethodGet, "/reservations?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReports(t *testing.T) {
	s := newTestServer(t)

	w := s.do(&admin, http.MethodPost, "/cabins", map[string]any{"name": "Alerce", "capacity": 4, "nightly_price": "50000"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(&admin, http.MethodGet, "/reports/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dash := decode[map[string]any](t, w)
	assert.EqualValues(t, 0, dash["total_reservations"])

	w = s.do(&ops, http.MethodGet, "/reports/dashboard", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(&admin, http.MethodGet, "/reports/annual/2026?format=xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/vnd.openxmlformats"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "annual_report_2026.xlsx")
	assert.NotZero(t, w.Body.Len())

	w = s.do(&admin, http.MethodGet, "/reports/annual/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, handlers.StatusFor(""))
	assert.Equal(t, http.StatusUnprocessableEntity, handlers.StatusFor(model.KindState))
}

func TestEquipmentRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(&ops, http.MethodPost, "/equipment", map[string]any{"name": "Kayak", "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	kayak := decode[model.Equipment](t, w)
	assert.Equal(t, model.EquipmentAvailable, kayak.Status)

	w = s.do(&customer, http.MethodPost, "/equipment", map[string]any{"name": "Grill", "quantity": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(&customer, http.MethodGet, "/equipment", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Equipment](t, w), 1)

	w = s.do(&admin, http.MethodPost, "/cabins", map[string]any{"name": "Alerce", "capacity": 4, "nightly_price": "50000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cabin := decode[model.Cabin](t, w)
	w = s.do(&customer, http.MethodPost, "/customers", map[string]any{"name": "Ana Rojas", "email": "ana@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(&customer, http.MethodPost, "/reservations", map[string]any{
		"cabin_id": cabin.ID, "start": day(10), "end": day(13), "guests": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	r := decode[model.Reservation](t, w)

	w = s.do(&customer, http.MethodPost, "/reservations/"+r.ID+"/loans", map[string]any{"equipment_id": kayak.ID, "quantity": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "no loans before the stay")

	w = s.do(&customer, http.MethodGet, "/reservations/"+r.ID+"/loans", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]model.EquipmentLoan](t, w))

	w = s.do(&customer, http.MethodGet, "/loans", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(&ops, http.MethodGet, "/loans?outstanding=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(&ops, http.MethodPost, "/loans/ghost/return", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(&ops, http.MethodPost, "/equipment/"+kayak.ID+"/maintenance", map[string]any{"under_maintenance": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.EquipmentMaintenance, decode[model.Equipment](t, w).Status)
}
