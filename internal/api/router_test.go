package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"smart-factory-backend/internal/auth"
	"smart-factory-backend/internal/db"
	"smart-factory-backend/internal/model"
	"smart-factory-backend/internal/store"
)

var testSecret = []byte("test-secret")

// newTestRouter builds the full router over an in-memory SQLite store. Rate
// limits are effectively disabled so bursts of test requests don't trip 429s.
func newTestRouter(t *testing.T) (*gin.Engine, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := testDB.DB()
		sqlDB.Close()
	})
	require.NoError(t, db.Migrate(testDB))

	s := store.NewGormStore(testDB)
	r := NewRouter(s, Options{
		JWTSecret:       testSecret,
		RateLimitPerSec: 10000,
		RateLimitBurst:  10000,
	})
	return r, s
}

func createTestMachine(t *testing.T, s store.Store, name, code string) model.Machine {
	t.Helper()
	m := model.Machine{Name: name, Code: code, Status: model.StatusRunning}
	require.NoError(t, s.CreateMachine(context.Background(), &m))
	return m
}

func int64String(v int64) string {
	return strconv.FormatInt(v, 10)
}

type request struct {
	method string
	path   string
	body   string
	token  string
}

func do(r *gin.Engine, req request) *httptest.ResponseRecorder {
	var httpReq *http.Request
	if req.body != "" {
		httpReq = httptest.NewRequest(req.method, req.path, strings.NewReader(req.body))
		httpReq.Header.Set("Content-Type", "application/json")
	} else {
		httpReq = httptest.NewRequest(req.method, req.path, nil)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httpReq)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func loginAs(t *testing.T, r *gin.Engine, email, password string) string {
	t.Helper()
	w := do(r, request{method: "POST", path: "/auth/login",
		body: fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "bearer", resp.TokenType)
	return resp.AccessToken
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, request{method: "GET", path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSignupAndLogin(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("signup always creates an operator", func(t *testing.T) {
		w := do(r, request{method: "POST", path: "/auth/signup",
			body: `{"email":"op@test.fr","password":"pass1234"}`})
		require.Equal(t, http.StatusCreated, w.Code)

		var u model.User
		decode(t, w, &u)
		assert.Equal(t, "op@test.fr", u.Email)
		assert.Equal(t, model.RoleOperator, u.Role)
		assert.NotContains(t, w.Body.String(), "password", "the hash must never leak")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		w := do(r, request{method: "POST", path: "/auth/signup",
			body: `{"email":"op@test.fr","password":"other"}`})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("malformed email rejected", func(t *testing.T) {
		w := do(r, request{method: "POST", path: "/auth/signup",
			body: `{"email":"not-an-email","password":"pass1234"}`})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("login issues a usable token", func(t *testing.T) {
		token := loginAs(t, r, "op@test.fr", "pass1234")

		w := do(r, request{method: "GET", path: "/auth/me", token: token})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "op@test.fr")
	})

	t.Run("wrong password and unknown email look identical", func(t *testing.T) {
		wrong := do(r, request{method: "POST", path: "/auth/login",
			body: `{"email":"op@test.fr","password":"nope"}`})
		unknown := do(r, request{method: "POST", path: "/auth/login",
			body: `{"email":"ghost@test.fr","password":"nope"}`})

		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
	})

	t.Run("me without token", func(t *testing.T) {
		w := do(r, request{method: "GET", path: "/auth/me"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMachineCRUDAndOwnership(t *testing.T) {
	r, s := newTestRouter(t)

	signup := func(email string) {
		w := do(r, request{method: "POST", path: "/auth/signup",
			body: fmt.Sprintf(`{"email":%q,"password":"pass1234"}`, email)})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	signup("alice@test.fr")
	signup("bob@test.fr")
	aliceToken := loginAs(t, r, "alice@test.fr", "pass1234")
	bobToken := loginAs(t, r, "bob@test.fr", "pass1234")

	// A chef account comes from seeding, not self-service signup.
	chefHash, err := auth.HashPassword("pass1234")
	require.NoError(t, err)
	chef := model.User{Email: "chef@test.fr", PasswordHash: chefHash, Role: model.RoleChef}
	require.NoError(t, s.CreateUser(context.Background(), &chef))
	chefToken := loginAs(t, r, "chef@test.fr", "pass1234")

	t.Run("mutations require authentication", func(t *testing.T) {
		w := do(r, request{method: "POST", path: "/machines",
			body: `{"name":"Fraiseuse Mazak","code":"CNC-01"}`})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	var machine model.Machine
	t.Run("create records the creator", func(t *testing.T) {
		w := do(r, request{method: "POST", path: "/machines", token: aliceToken,
			body: `{"name":"Fraiseuse Mazak","code":"CNC-01","status":"running","target_rate_per_hour":40}`})
		require.Equal(t, http.StatusCreated, w.Code)

		decode(t, w, &machine)
		require.NotNil(t, machine.CreatedBy)
	})

	t.Run("duplicate code conflicts", func(t *testing.T) {
		w := do(r, request{method: "POST", path: "/machines", token: aliceToken,
			body: `{"name":"Clone","code":"CNC-01"}`})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("reads are public", func(t *testing.T) {
		w := do(r, request{method: "GET", path: "/machines"})
		require.Equal(t, http.StatusOK, w.Code)

		w = do(r, request{method: "GET", path: "/machines/" + int64String(machine.ID)})
		require.Equal(t, http.StatusOK, w.Code)

		assert.Equal(t, http.StatusNotFound,
			do(r, request{method: "GET", path: "/machines/9999"}).Code)
		assert.Equal(t, http.StatusBadRequest,
			do(r, request{method: "GET", path: "/machines/abc"}).Code)
	})

	t.Run("another operator cannot mutate it", func(t *testing.T) {
		path := "/machines/" + int64String(machine.ID)

		w := do(r, request{method: "DELETE", path: path, token: bobToken})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = do(r, request{method: "PATCH", path: path, token: bobToken, body: `{"name":"hijack"}`})
		assert.Equal(t, http.StatusForbidden, w.Code)

		// The failed delete must not have removed the row.
		w = do(r, request{method: "GET", path: path})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Fraiseuse Mazak")
	})

	t.Run("chef can mutate any machine", func(t *testing.T) {
		w := do(r, request{method: "PATCH", path: "/machines/" + int64String(machine.ID),
			token: chefToken, body: `{"status":"setup"}`})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"setup"`)
	})

	t.Run("owner can patch and delete", func(t *testing.T) {
		path := "/machines/" + int64String(machine.ID)

		w := do(r, request{method: "PATCH", path: path, token: aliceToken,
			body: `{"status":"bogus"}`})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(r, request{method: "PATCH", path: path, token: aliceToken,
			body: `{"status":"running","target_rate_per_hour":45}`})
		require.Equal(t, http.StatusOK, w.Code)

		w = do(r, request{method: "DELETE", path: path, token: aliceToken})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true}`, w.Body.String())

		assert.Equal(t, http.StatusNotFound, do(r, request{method: "GET", path: path}).Code)
	})
}

func TestWorkOrderRoles(t *testing.T) {
	r, s := newTestRouter(t)

	w := do(r, request{method: "POST", path: "/auth/signup",
		body: `{"email":"op@test.fr","password":"pass1234"}`})
	require.Equal(t, http.StatusCreated, w.Code)
	opToken := loginAs(t, r, "op@test.fr", "pass1234")

	chefHash, err := auth.HashPassword("pass1234")
	require.NoError(t, err)
	chef := model.User{Email: "chef@test.fr", PasswordHash: chefHash, Role: model.RoleChef}
	require.NoError(t, s.CreateUser(context.Background(), &chef))
	chefToken := loginAs(t, r, "chef@test.fr", "pass1234")

	body := `{"number":"OF-2026-0001","client":"ACME","part_ref":"P-12","target_qty":200,"due_on":"2026-09-15"}`

	t.Run("operators may not create work orders", func(t *testing.T) {
		w := do(r, request{method: "POST", path: "/work_orders", token: opToken, body: body})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("chef creates and anyone lists", func(t *testing.T) {
		w := do(r, request{method: "POST", path: "/work_orders", token: chefToken, body: body})
		require.Equal(t, http.StatusCreated, w.Code)

		var wo model.WorkOrder
		decode(t, w, &wo)
		assert.Equal(t, "OF-2026-0001", wo.Number)
		require.NotNil(t, wo.DueOn)
		assert.True(t, wo.DueOn.Equal(time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)))

		list := do(r, request{method: "GET", path: "/work_orders"})
		require.Equal(t, http.StatusOK, list.Code)
		assert.Contains(t, list.Body.String(), "OF-2026-0001")
	})

	t.Run("duplicate number conflicts", func(t *testing.T) {
		w := do(r, request{method: "POST", path: "/work_orders", token: chefToken, body: body})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("bad due date rejected", func(t *testing.T) {
		w := do(r, request{method: "POST", path: "/work_orders", token: chefToken,
			body: `{"number":"OF-2026-0002","due_on":"15/09/2026"}`})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestEventIngestionAndAggregates(t *testing.T) {
	r, s := newTestRouter(t)

	w := do(r, request{method: "POST", path: "/auth/signup",
		body: `{"email":"op@test.fr","password":"pass1234"}`})
	require.Equal(t, http.StatusCreated, w.Code)
	token := loginAs(t, r, "op@test.fr", "pass1234")

	machine := createTestMachine(t, s, "Fraiseuse Mazak", "CNC-01")
	idStr := int64String(machine.ID)

	post := func(body string) *httptest.ResponseRecorder {
		return do(r, request{method: "POST", path: "/events", token: token, body: body})
	}

	t.Run("ingestion requires authentication", func(t *testing.T) {
		w := do(r, request{method: "POST", path: "/events",
			body: `{"machine_id":` + idStr + `,"event_type":"good","qty":1}`})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("good and scrap recorded as submitted", func(t *testing.T) {
		w := post(`{"machine_id":` + idStr + `,"event_type":"good","qty":10}`)
		require.Equal(t, http.StatusCreated, w.Code)

		w = post(`{"machine_id":` + idStr + `,"event_type":"scrap","qty":5,"notes":"worn tool"}`)
		require.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("stop is normalized to qty zero", func(t *testing.T) {
		w := post(`{"machine_id":` + idStr + `,"event_type":"stop","qty":7}`)
		require.Equal(t, http.StatusCreated, w.Code)

		var ev model.ProductionEvent
		decode(t, w, &ev)
		assert.Equal(t, 0, ev.Qty)

		got := do(r, request{method: "GET", path: "/events/" + int64String(ev.ID)})
		require.Equal(t, http.StatusOK, got.Code)
		assert.Contains(t, got.Body.String(), `"qty":0`)
	})

	t.Run("rejections", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest,
			post(`{"machine_id":`+idStr+`,"event_type":"rework","qty":1}`).Code)
		assert.Equal(t, http.StatusBadRequest,
			post(`{"machine_id":`+idStr+`,"event_type":"good","qty":-1}`).Code)
		assert.Equal(t, http.StatusNotFound,
			post(`{"machine_id":9999,"event_type":"good","qty":1}`).Code)
		assert.Equal(t, http.StatusNotFound,
			post(`{"machine_id":`+idStr+`,"event_type":"good","qty":1,"work_order_id":9999}`).Code)
	})

	t.Run("event listing filters", func(t *testing.T) {
		w := do(r, request{method: "GET", path: "/events?machine_id=" + idStr + "&event_type=good"})
		require.Equal(t, http.StatusOK, w.Code)

		var events []model.ProductionEvent
		decode(t, w, &events)
		require.Len(t, events, 1)
		assert.Equal(t, 10, events[0].Qty)

		assert.Equal(t, http.StatusBadRequest,
			do(r, request{method: "GET", path: "/events?since=yesterday"}).Code)
		assert.Equal(t, http.StatusNotFound,
			do(r, request{method: "GET", path: "/events/9999"}).Code)
	})

	t.Run("machine KPIs", func(t *testing.T) {
		w := do(r, request{method: "GET", path: "/machines/" + idStr + "/kpis?minutes=60"})
		require.Equal(t, http.StatusOK, w.Code)

		var kpi store.KPIResult
		decode(t, w, &kpi)
		assert.Equal(t, store.KPIResult{Good: 10, Scrap: 5, TRS: 66.7}, kpi)

		assert.Equal(t, http.StatusNotFound,
			do(r, request{method: "GET", path: "/machines/9999/kpis"}).Code)
	})

	t.Run("global KPIs", func(t *testing.T) {
		w := do(r, request{method: "GET", path: "/kpis/global?minutes=60"})
		require.Equal(t, http.StatusOK, w.Code)

		var kpi store.KPIResult
		decode(t, w, &kpi)
		assert.Equal(t, int64(10), kpi.Good)
	})

	t.Run("activity feed is enriched and ordered", func(t *testing.T) {
		w := do(r, request{method: "GET", path: "/activities/recent?limit=2&minutes=120"})
		require.Equal(t, http.StatusOK, w.Code)

		var items []store.ActivityItem
		decode(t, w, &items)
		require.Len(t, items, 2)
		assert.Equal(t, "CNC-01", items[0].MachineCode)
		assert.False(t, items[1].HappenedAt.After(items[0].HappenedAt))

		scoped := do(r, request{method: "GET", path: "/machines/" + idStr + "/activity"})
		require.Equal(t, http.StatusOK, scoped.Code)

		assert.Equal(t, http.StatusNotFound,
			do(r, request{method: "GET", path: "/machines/9999/activity"}).Code)
	})

	t.Run("dashboard summary", func(t *testing.T) {
		w := do(r, request{method: "GET", path: "/dashboard/summary?limit_recent=2&minutes=60"})
		require.Equal(t, http.StatusOK, w.Code)

		var summary store.DashboardSummary
		decode(t, w, &summary)
		assert.Equal(t, int64(1), summary.KPIs.TotalMachines)
		assert.Equal(t, int64(1), summary.KPIs.Running)
		assert.Equal(t, 66.7, summary.KPIs.TRSAvg)
		assert.Len(t, summary.Recent, 2)
	})
}

func TestAggregateResponsesAreCached(t *testing.T) {
	r, s := newTestRouter(t)
	machine := createTestMachine(t, s, "Fraiseuse Mazak", "CNC-01")

	path := "/machines/" + int64String(machine.ID) + "/kpis?minutes=60"
	first := do(r, request{method: "GET", path: path})
	require.Equal(t, http.StatusOK, first.Code)

	_, err := s.CreateEvent(context.Background(), store.EventInput{
		MachineID: machine.ID, EventType: model.EventGood, Qty: 10,
	})
	require.NoError(t, err)

	// Within the TTL the cached body is served, so the new event is not
	// visible yet.
	second := do(r, request{method: "GET", path: path})
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestRoutesIntrospection(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, request{method: "GET", path: "/routes"})
	require.Equal(t, http.StatusOK, w.Code)

	var routes []struct {
		Method string `json:"method"`
		Path   string `json:"path"`
	}
	decode(t, w, &routes)

	has := func(method, path string) bool {
		for _, rt := range routes {
			if rt.Method == method && rt.Path == path {
				return true
			}
		}
		return false
	}
	assert.True(t, has("GET", "/health"))
	assert.True(t, has("POST", "/events"))
	assert.True(t, has("GET", "/machines/:id/kpis"))
	assert.True(t, has("PUT", "/subscriptions"))
}
