package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/gambitworks/chessvault/internal/domain"
	"github.com/gambitworks/chessvault/internal/engine"
	"github.com/gambitworks/chessvault/internal/events"
	"github.com/gambitworks/chessvault/internal/ledger"
	"github.com/gambitworks/chessvault/internal/rating"
	"github.com/gambitworks/chessvault/internal/registry"
)

const (
	testAsset uint32        = 7
	testBet   domain.Amount = 50
)

type testServer struct {
	srv  *httptest.Server
	emit *events.Emitter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	led := ledger.NewMemoryLedger()
	ctx := context.Background()
	if err := led.RegisterAsset(ctx, domain.AssetID(testAsset), 10); err != nil {
		t.Fatalf("RegisterAsset: %v", err)
	}
	for _, acct := range []domain.AccountID{"alice", "bob"} {
		if err := led.Mint(ctx, domain.AssetID(testAsset), acct, 1000); err != nil {
			t.Fatalf("Mint: %v", err)
		}
	}

	emit := events.NewEmitter(nil)
	eng := engine.New(
		registry.New(rdb),
		ledger.NewEscrow(led, "custody"),
		rating.NewMemoryStore(),
		emit,
		engine.Config{
			Periods:        domain.Periods{Bullet: 10, Blitz: 50, Rapid: 250, Daily: 7200},
			IncentiveShare: 10,
			EloK:           32,
			EloInitial:     1500,
		},
		func() domain.BlockNumber { return 1 },
	)

	srv := httptest.NewServer(New(eng, emit).Router())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, emit: emit}
}

func (s *testServer) post(t *testing.T, path, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Post(s.srv.URL+path, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp, out
}

func (s *testServer) get(t *testing.T, path string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Get(s.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp, out
}

func (s *testServer) createMatch(t *testing.T) string {
	t.Helper()
	body := fmt.Sprintf(`{"challenger":"alice","opponent":"bob","style":"bullet","bet_asset_id":%d,"bet_amount":%d}`, testAsset, testBet)
	resp, out := s.post(t, "/v1/matches", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var m domain.Match
	if err := json.Unmarshal(out["match"], &m); err != nil {
		t.Fatalf("decode match: %v", err)
	}
	return string(m.ID)
}

func TestMatchLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	id := s.createMatch(t)

	resp, out := s.post(t, "/v1/matches/"+id+"/join", `{"caller":"bob"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status = %d", resp.StatusCode)
	}
	var m domain.Match
	if err := json.Unmarshal(out["match"], &m); err != nil {
		t.Fatalf("decode match: %v", err)
	}
	if !m.State.IsOnGoing() || m.State.Turn != domain.Whites {
		t.Fatalf("state after join: %+v", m.State)
	}

	resp, out = s.post(t, "/v1/matches/"+id+"/move", `{"caller":"alice","move":"e2e4"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(out["match"], &m); err != nil {
		t.Fatalf("decode match: %v", err)
	}
	if m.State.Turn != domain.Blacks {
		t.Fatalf("turn after move: %s", m.State.Turn)
	}

	resp, _ = s.get(t, "/v1/matches/"+id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	resp, out = s.get(t, "/v1/players/alice/matches")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("player matches status = %d", resp.StatusCode)
	}
	var ids []string
	if err := json.Unmarshal(out["matches"], &ids); err != nil {
		t.Fatalf("decode matches: %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("player matches = %v", ids)
	}

	resp, out = s.get(t, "/v1/matches/"+id+"/incentive")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("incentive status = %d", resp.StatusCode)
	}
	var incentive domain.Amount
	if err := json.Unmarshal(out["incentive"], &incentive); err != nil {
		t.Fatalf("decode incentive: %v", err)
	}
	if incentive != 2*testBet/10 {
		t.Fatalf("incentive = %d", incentive)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t)
	id := s.createMatch(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown match", "GET", "/v1/matches/nope", "", http.StatusNotFound},
		{"move before join", "POST", "/v1/matches/" + id + "/move", `{"caller":"alice","move":"e2e4"}`, http.StatusConflict},
		{"abort by opponent", "POST", "/v1/matches/" + id + "/abort", `{"caller":"bob"}`, http.StatusForbidden},
		{"join by stranger", "POST", "/v1/matches/" + id + "/join", `{"caller":"mallory"}`, http.StatusForbidden},
		{"clear awaiting", "POST", "/v1/matches/" + id + "/clear", `{"caller":"alice"}`, http.StatusConflict},
		{"missing caller", "POST", "/v1/matches/" + id + "/join", `{}`, http.StatusBadRequest},
		{"bad style", "POST", "/v1/matches", `{"challenger":"a","opponent":"b","style":"lightning","bet_asset_id":7,"bet_amount":50}`, http.StatusBadRequest},
		{"self match", "POST", "/v1/matches", fmt.Sprintf(`{"challenger":"alice","opponent":"alice","style":"bullet","bet_asset_id":%d,"bet_amount":%d}`, testAsset, testBet), http.StatusUnprocessableEntity},
		{"unknown asset", "POST", "/v1/matches", fmt.Sprintf(`{"challenger":"alice","opponent":"bob","style":"bullet","bet_asset_id":99,"bet_amount":%d}`, testBet), http.StatusUnprocessableEntity},
		{"bad nonce", "GET", "/v1/matches/nonce/abc", "", http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var resp *http.Response
			if tc.method == "GET" {
				resp, _ = s.get(t, tc.path)
			} else {
				resp, _ = s.post(t, tc.path, tc.body)
			}
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestMoveErrorStatuses(t *testing.T) {
	s := newTestServer(t)
	id := s.createMatch(t)
	if resp, _ := s.post(t, "/v1/matches/"+id+"/join", `{"caller":"bob"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("join failed")
	}

	if resp, _ := s.post(t, "/v1/matches/"+id+"/move", `{"caller":"bob","move":"e7e5"}`); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("out-of-turn move not 403")
	}
	if resp, _ := s.post(t, "/v1/matches/"+id+"/move", `{"caller":"alice","move":"e2e5"}`); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("illegal move not 422")
	}
	if resp, _ := s.post(t, "/v1/matches/"+id+"/move", `{"caller":"alice","move":"1234"}`); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("malformed move not 422")
	}
}

func TestEventsWebSocket(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/v1/events"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// the handler subscribes after the handshake completes
	deadline := time.Now().Add(2 * time.Second)
	for s.emit.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	id := s.createMatch(t)

	var ev events.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Kind != events.MatchCreated || string(ev.MatchID) != id {
		t.Fatalf("event = %+v", ev)
	}
}
