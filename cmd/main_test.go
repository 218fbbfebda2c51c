package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/cricscore/internal/adapters/repository"
	"github.com/okian/cricscore/internal/adapters/ws"
	app "github.com/okian/cricscore/internal/app"
	"github.com/okian/cricscore/internal/config"
	"github.com/okian/cricscore/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestOpenHistory(t *testing.T) {
	convey.Convey("Given a loaded configuration", t, func() {
		cfg := config.New()

		convey.Convey("When the memory backend is selected", func() {
			store, err := openHistory(cfg)
			convey.So(err, convey.ShouldBeNil)
			_, ok := store.(*repository.MemoryStore)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(store.Close(), convey.ShouldBeNil)
		})

		convey.Convey("When the sqlite backend is selected from the environment", func() {
			path := filepath.Join(t.TempDir(), "history.db")
			t.Setenv("CRICSCORE_HISTORY_BACKEND", "sqlite")
			t.Setenv("CRICSCORE_HISTORY_PATH", path)

			loaded, err := config.Load()
			convey.So(err, convey.ShouldBeNil)

			store, err := openHistory(loaded)
			convey.So(err, convey.ShouldBeNil)
			_, ok := store.(*repository.SQLiteStore)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(store.Close(), convey.ShouldBeNil)
		})
	})
}

func TestNewRouter(t *testing.T) {
	convey.Convey("Given the assembled router", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		hub := ws.NewHub()
		go hub.Run(ctx)
		svc := app.New(app.WithPublisher(hub))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newRouter(ctx, svc, hub, []string{"http://scorer.local"}))
		defer srv.Close()

		convey.Convey("Then the docs and the API are both mounted", func() {
			for _, path := range []string{"/api-docs", "/openapi.yaml", "/stats", "/healthz", "/history"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("And a match can be created", func() {
			body := `{"id":"smoke","overs_limit":1,
				"team_a":{"name":"Lions","players":[{"id":"A1"},{"id":"A2"}]},
				"team_b":{"name":"Tigers","players":[{"id":"B1"},{"id":"B2"}]},
				"toss":{"winner":"B","decision":"FIELD"}}`
			resp, err := http.Post(srv.URL+"/matches", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metrics updaters", t, func() {
		convey.Convey("When their context ends they return", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, app.New())
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("updaters did not stop")
			}
		})

		convey.Convey("When the system metrics are sampled", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
