package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/okian/cricscore/internal/adapters/http/api"
	"github.com/okian/cricscore/internal/adapters/ws"
	service "github.com/okian/cricscore/internal/app"
	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fixture struct {
	srv  *httptest.Server
	svc  *service.Service
	stop func()
}

func newFixture() *fixture {
	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub()
	go hub.Run(ctx)

	svc := service.New(service.WithPublisher(hub))
	So(svc.Start(ctx), ShouldBeNil)

	r := chi.NewRouter()
	api.NewServer(svc, svc, ws.NewHandler(ctx, hub, nil)).Register(ctx, r, nil)
	srv := httptest.NewServer(r)

	return &fixture{srv: srv, svc: svc, stop: func() {
		srv.Close()
		svc.Stop()
		cancel()
	}}
}

func (f *fixture) do(method, path string, body any, header ...string) (*http.Response, []byte) {
	var rdr io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		So(err, ShouldBeNil)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rdr)
	So(err, ShouldBeNil)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	So(err, ShouldBeNil)
	return resp, out
}

func players(prefix string, n int) []map[string]string {
	out := make([]map[string]string, n)
	for i := range out {
		id := fmt.Sprintf("%s%d", prefix, i+1)
		out[i] = map[string]string{"id": id, "name": "Player " + id}
	}
	return out
}

func createBody(id string, overs int) map[string]any {
	return map[string]any{
		"id":          id,
		"overs_limit": overs,
		"team_a":      map[string]any{"name": "Lions", "players": players("A", 3)},
		"team_b":      map[string]any{"name": "Tigers", "players": players("B", 3)},
		"toss":        map[string]string{"winner": "a", "decision": "bat"},
	}
}

func decodeMatch(raw []byte) model.Match {
	var m model.Match
	So(json.Unmarshal(raw, &m), ShouldBeNil)
	return m
}

func ballBody(m model.Match, runs int) map[string]any {
	inn := m.Current()
	p := inn.ActivePartnership()
	return map[string]any{
		"striker_id":     p.Batsman1ID,
		"non_striker_id": p.Batsman2ID,
		"bowler_id":      m.BowlingTeam(inn).Players[0].ID,
		"runs_off_bat":   runs,
		"counts_as_ball": true,
	}
}

func errorCode(raw []byte) string {
	var e struct {
		Code string `json:"code"`
	}
	So(json.Unmarshal(raw, &e), ShouldBeNil)
	return e.Code
}

func TestMatchRoutes(t *testing.T) {
	Convey("Given a running API", t, func() {
		f := newFixture()
		defer f.stop()

		resp, raw := f.do(http.MethodPost, "/matches", createBody("m1", 1))
		So(resp.StatusCode, ShouldEqual, http.StatusCreated)
		So(resp.Header.Get("Location"), ShouldEqual, "/matches/m1")
		m := decodeMatch(raw)
		So(m.Teams.A.Name, ShouldEqual, "Lions")

		Convey("When the match is fetched", func() {
			resp, raw := f.do(http.MethodGet, "/matches/m1", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(decodeMatch(raw).ID, ShouldEqual, "m1")
		})

		Convey("When a keyed ball is posted twice", func() {
			resp, _ := f.do(http.MethodPost, "/matches/m1/balls", ballBody(m, 4), "Idempotency-Key", "b-1")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			resp, raw := f.do(http.MethodPost, "/matches/m1/balls", ballBody(m, 4), "Idempotency-Key", "b-1")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			got := decodeMatch(raw)
			So(got.Current().TotalRuns, ShouldEqual, 4)
			So(got.Current().Deliveries, ShouldHaveLength, 1)

			Convey("Then undo takes it back", func() {
				resp, raw := f.do(http.MethodPost, "/matches/m1/undo", nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				undone := decodeMatch(raw)
				So(undone.Current().TotalRuns, ShouldEqual, 0)
			})
		})

		Convey("When the key is sent in the body", func() {
			body := ballBody(m, 2)
			body["key"] = "body-key"
			f.do(http.MethodPost, "/matches/m1/balls", body)
			_, raw := f.do(http.MethodPost, "/matches/m1/balls", body)
			after := decodeMatch(raw)
			So(after.Current().TotalRuns, ShouldEqual, 2)
		})

		Convey("When a ball breaks the rules", func() {
			resp, raw := f.do(http.MethodPost, "/matches/m1/balls", ballBody(m, 9))
			So(resp.StatusCode, ShouldEqual, http.StatusUnprocessableEntity)
			So(errorCode(raw), ShouldEqual, "invalid_runs")

			wide := ballBody(m, 1)
			wide["extras"] = map[string]int{"wide": 1}
			wide["counts_as_ball"] = false
			resp, raw = f.do(http.MethodPost, "/matches/m1/balls", wide)
			So(resp.StatusCode, ShouldEqual, http.StatusUnprocessableEntity)
			So(errorCode(raw), ShouldEqual, "invalid_wide")
		})

		Convey("When the body is not valid JSON", func() {
			resp, raw := f.do(http.MethodPost, "/matches/m1/balls", "{not json")
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(errorCode(raw), ShouldEqual, "bad_request")

			resp, _ = f.do(http.MethodPost, "/matches/m1/balls", `{"runs_off_bat":1,"bogus":true}`)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When there is nothing to undo", func() {
			resp, raw := f.do(http.MethodPost, "/matches/m1/undo", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			So(errorCode(raw), ShouldEqual, "nothing_to_undo")
		})

		Convey("When lineup changes are posted", func() {
			resp, raw := f.do(http.MethodPost, "/matches/m1/bowlers", map[string]string{"player_id": "B2"})
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			lineup := decodeMatch(raw)
			So(lineup.Current().Bowlers, ShouldContainKey, "B2")

			resp, _ = f.do(http.MethodPost, "/matches/m1/batsmen", map[string]string{"player_id": " "})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)

			resp, raw = f.do(http.MethodPost, "/matches/m1/batsmen", map[string]string{"player_id": "A3"})
			So(resp.StatusCode, ShouldEqual, http.StatusUnprocessableEntity)
			So(errorCode(raw), ShouldEqual, "crease_occupied")
		})

		Convey("When the same match id is created again", func() {
			resp, raw := f.do(http.MethodPost, "/matches", createBody("m1", 1))
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			So(errorCode(raw), ShouldEqual, "match_exists")
		})

		Convey("When the setup is invalid", func() {
			resp, raw := f.do(http.MethodPost, "/matches", createBody("m2", 0))
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(errorCode(raw), ShouldEqual, "invalid_setup")
		})

		Convey("When an unknown match is addressed", func() {
			for _, path := range []string{"/matches/nope", "/matches/nope/scorecard", "/matches/nope/live"} {
				resp, raw := f.do(http.MethodGet, path, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				So(errorCode(raw), ShouldEqual, "not_found")
			}
			resp, _ := f.do(http.MethodPost, "/matches/nope/balls", ballBody(m, 1))
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the match is played to the end", func() {
			for i := 0; i < model.BallsPerOver; i++ {
				_, raw := f.do(http.MethodPost, "/matches/m1/balls", ballBody(m, 0))
				m = decodeMatch(raw)
			}
			resp, raw := f.do(http.MethodPost, "/matches/m1/balls", ballBody(m, 1))
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			final := decodeMatch(raw)
			So(final.Completed(), ShouldBeTrue)

			Convey("Then the scorecard is available as JSON and text", func() {
				resp, raw := f.do(http.MethodGet, "/matches/m1/scorecard", nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(raw), ShouldContainSubstring, `"text":"Tigers won by 2 wickets"`)

				resp, raw = f.do(http.MethodGet, "/matches/m1/scorecard?format=text", nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldStartWith, "text/plain")
				So(string(raw), ShouldContainSubstring, "Result: Tigers won by 2 wickets")

				resp, _ = f.do(http.MethodGet, "/matches/m1/scorecard?format=pdf", nil)
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And further balls are refused", func() {
				resp, raw := f.do(http.MethodPost, "/matches/m1/balls", ballBody(m, 1))
				So(resp.StatusCode, ShouldEqual, http.StatusUnprocessableEntity)
				So(errorCode(raw), ShouldEqual, "match_completed")
			})

			Convey("And it shows up in the history", func() {
				var body struct {
					Count   int `json:"count"`
					Matches []struct {
						MatchID string `json:"match_id"`
						Result  string `json:"result"`
					} `json:"matches"`
				}
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) {
					_, raw := f.do(http.MethodGet, "/history", nil)
					So(json.Unmarshal(raw, &body), ShouldBeNil)
					if body.Count == 1 {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				So(body.Count, ShouldEqual, 1)
				So(body.Matches[0].MatchID, ShouldEqual, "m1")
				So(body.Matches[0].Result, ShouldEqual, "Tigers won by 2 wickets")
			})
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given a running API", t, func() {
		f := newFixture()
		defer f.stop()

		Convey("When the metrics are scraped", func() {
			f.do(http.MethodGet, "/stats", nil)
			resp, raw := f.do(http.MethodGet, "/healthz", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(raw), ShouldContainSubstring, "cricscore_scorebook_http_requests_total")
		})

		Convey("When stats are requested", func() {
			resp, raw := f.do(http.MethodGet, "/stats", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(raw, &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
			So(stats, ShouldContainKey, "liveClients")
		})

		Convey("When a preflight request arrives", func() {
			req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/matches", http.NoBody)
			So(err, ShouldBeNil)
			req.Header.Set("Origin", "http://scorer.local")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.Header.Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})
	})
}

func TestLiveRoute(t *testing.T) {
	Convey("Given a subscriber to a live match", t, func() {
		f := newFixture()
		defer f.stop()

		_, raw := f.do(http.MethodPost, "/matches", createBody("m1", 2))
		m := decodeMatch(raw)

		url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/matches/m1/live"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer conn.Close()
		So(conn.SetReadDeadline(time.Now().Add(2*time.Second)), ShouldBeNil)

		var first ws.Message
		So(conn.ReadJSON(&first), ShouldBeNil)
		So(first.Type, ShouldEqual, ws.MessageTypeSnapshot)
		So(first.MatchID, ShouldEqual, "m1")

		Convey("When a ball is scored", func() {
			resp, _ := f.do(http.MethodPost, "/matches/m1/balls", ballBody(m, 6))
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			Convey("Then the subscriber receives the new scoreboard", func() {
				var msg struct {
					Type    string `json:"type"`
					Payload struct {
						Runs  int    `json:"runs"`
						Overs string `json:"overs"`
					} `json:"payload"`
				}
				So(conn.ReadJSON(&msg), ShouldBeNil)
				So(msg.Type, ShouldEqual, ws.MessageTypeBall)
				So(msg.Payload.Runs, ShouldEqual, 6)
				So(msg.Payload.Overs, ShouldEqual, "0.1")
			})
		})
	})
}
