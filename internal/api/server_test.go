package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talgya/kitten-world/internal/agents"
	"github.com/talgya/kitten-world/internal/config"
	"github.com/talgya/kitten-world/internal/engine"
	"github.com/talgya/kitten-world/internal/toys"
	"github.com/talgya/kitten-world/internal/world"
)

const testKey = "secret"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	return newTestServerKey(t, testKey)
}

func newTestServerKey(t *testing.T, key string) (*Server, *httptest.Server) {
	t.Helper()
	m := world.Generate(world.SmallTestConfig())
	tun := config.DefaultTuning()
	tun.SickOnsetChance = 0
	sim := engine.NewSimulation(tun, m, 1)
	sim.SpawnKittens(2)

	eng := engine.NewEngine(tun.TicksPerSecond)
	eng.OnTick = sim.Tick
	eng.OnIdle = sim.Drain
	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	t.Cleanup(cancel)

	s := &Server{Sim: sim, Eng: eng, AdminKey: key}
	h, err := s.Handler()
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, ts *httptest.Server, method, path, key, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestStatus(t *testing.T) {
	_, ts := newTestServer(t)
	resp := do(t, ts, http.MethodGet, "/api/v1/status", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Game engine.Status `json:"game"`
	}
	decodeBody(t, resp, &body)
	if body.Game.Kittens != 2 || body.Game.Game.Money != 100 {
		t.Errorf("status = %+v", body.Game)
	}
}

func TestAdminAuth(t *testing.T) {
	_, ts := newTestServer(t)
	body := `{"speed": 2}`
	if resp := do(t, ts, http.MethodPost, "/api/v1/speed", "", body); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodPost, "/api/v1/speed", "wrong", body); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", resp.StatusCode)
	}

	_, disabled := newTestServerKey(t, "")
	if resp := do(t, disabled, http.MethodPost, "/api/v1/speed", testKey, body); resp.StatusCode != http.StatusForbidden {
		t.Errorf("disabled: status = %d, want 403", resp.StatusCode)
	}
}

func TestSetSpeed(t *testing.T) {
	s, ts := newTestServer(t)
	resp := do(t, ts, http.MethodPost, "/api/v1/speed", testKey, `{"speed": 2.5}`)
	if resp.StatusCode != http.StatusOK || s.Eng.Speed() != 2.5 {
		t.Errorf("status = %d speed = %v", resp.StatusCode, s.Eng.Speed())
	}
	resp = do(t, ts, http.MethodPost, "/api/v1/speed", testKey, `{"speed": 5000}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("out of range: status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateToyValidation(t *testing.T) {
	_, ts := newTestServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"missing y", `{"kind": "feed", "x": 10}`},
		{"unknown kind", `{"kind": "laser", "x": 10, "y": 10}`},
		{"extra field", `{"kind": "feed", "x": 10, "y": 10, "free": true}`},
		{"not json", `kind=feed`},
	}
	for _, tt := range tests {
		resp := do(t, ts, http.MethodPost, "/api/v1/toys", testKey, tt.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.name, resp.StatusCode)
		}
	}
}

func TestBuyAndRemoveToy(t *testing.T) {
	s, ts := newTestServer(t)
	spawn := world.SpawnPoint(s.Sim.Level)
	body := `{"kind": "feed", "x": ` + ftoa(spawn.X) + `, "y": ` + ftoa(spawn.Y) + `, "place": true}`

	resp := do(t, ts, http.MethodPost, "/api/v1/toys", testKey, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d", resp.StatusCode)
	}
	var toy toys.Toy
	decodeBody(t, resp, &toy)
	if toy.State != toys.StatePlaced || !toy.Paid {
		t.Errorf("toy = %+v, want placed and paid", toy)
	}
	if money := s.Sim.Status().Game.Money; money != 100-toy.Cost {
		t.Errorf("money = %d, want %d", money, 100-toy.Cost)
	}

	var list []toys.Toy
	decodeBody(t, do(t, ts, http.MethodGet, "/api/v1/toys", "", ""), &list)
	if len(list) != 1 || list[0].ID != toy.ID {
		t.Fatalf("toys = %+v", list)
	}

	resp = do(t, ts, http.MethodDelete, "/api/v1/toys/"+toy.ID.String(), testKey, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status = %d", resp.StatusCode)
	}
	if _, ok := s.Sim.Toy(toy.ID); ok {
		t.Error("toy still present after delete")
	}
}

func TestDragLifecycle(t *testing.T) {
	s, ts := newTestServer(t)
	spawn := world.SpawnPoint(s.Sim.Level)
	body := `{"kind": "play", "x": ` + ftoa(spawn.X) + `, "y": ` + ftoa(spawn.Y) + `}`

	resp := do(t, ts, http.MethodPost, "/api/v1/toys", testKey, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("spawn: status = %d", resp.StatusCode)
	}
	var toy toys.Toy
	decodeBody(t, resp, &toy)
	if toy.State != toys.StateHeld {
		t.Fatalf("state = %v, want held", toy.State)
	}

	path := "/api/v1/toys/" + toy.ID.String()
	resp = do(t, ts, http.MethodPost, path+"/move", testKey, `{"x": `+ftoa(spawn.X+32)+`, "y": `+ftoa(spawn.Y)+`}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move: status = %d", resp.StatusCode)
	}
	resp = do(t, ts, http.MethodPost, path+"/drop", testKey, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("drop: status = %d", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodPost, path+"/drop", testKey, ""); resp.StatusCode != http.StatusConflict {
		t.Errorf("second drop: status = %d, want 409", resp.StatusCode)
	}
}

func TestKittenLookup(t *testing.T) {
	s, ts := newTestServer(t)
	if resp := do(t, ts, http.MethodGet, "/api/v1/kitten/nope", "", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id: status = %d", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodGet, "/api/v1/kitten/"+uuid.NewString(), "", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id: status = %d", resp.StatusCode)
	}

	id := s.Sim.KittenList()[0].ID
	var k agents.Kitten
	decodeBody(t, do(t, ts, http.MethodGet, "/api/v1/kitten/"+id.String(), "", ""), &k)
	if k.ID != id {
		t.Errorf("kitten = %s, want %s", k.ID, id)
	}
}

func TestStreamBacklog(t *testing.T) {
	_, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	births := 0
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for births < 2 {
		var m engine.Message
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read after %d births: %v", births, err)
		}
		if m.Type == engine.MessageEvent && m.Event.Kind == agents.EventBorn {
			births++
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests refused")
	}
	if rl.Allow("a") {
		t.Error("third request allowed")
	}
	if !rl.Allow("b") {
		t.Error("other client limited")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Errorf("RetryAfter = %d, want 61", got)
	}
	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("not reset after window")
	}
}

func ftoa(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
