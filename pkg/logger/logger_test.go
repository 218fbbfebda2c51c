package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When it is initialised with text output", func() {
			var buf bytes.Buffer
			So(Init(WithOutput(&buf)), ShouldBeNil)
			Get().Info(context.Background(), "ball applied", String("match_id", "m1"), Int("runs", 4))

			Convey("Then lines carry the fields and the call site", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "ball applied")
				So(out, ShouldContainSubstring, "match_id=m1")
				So(out, ShouldContainSubstring, "runs=4")
				So(out, ShouldContainSubstring, "logger_test.go:")
			})
		})

		Convey("When it is initialised with json output", func() {
			var buf bytes.Buffer
			So(Init(WithOutput(&buf), WithFormat("JSON")), ShouldBeNil)
			Named("engine").Warn(context.Background(), "rejected",
				Bool("wide", true), Float64("economy", 7.5), Duration("took", time.Millisecond), Error(errors.New("boom")))

			Convey("Then each line is a JSON object", func() {
				var line map[string]any
				So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)
				So(line["msg"], ShouldEqual, "rejected")
				So(line["component"], ShouldEqual, "engine")
				So(line["wide"], ShouldEqual, true)
				So(line["error"], ShouldEqual, "boom")
			})
		})

		Convey("When an unknown format is requested", func() {
			So(Init(WithFormat("xml")), ShouldNotBeNil)
		})
	})
}

func TestLevels(t *testing.T) {
	Convey("Given a logger at info level", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("When debug is logged", func() {
			Get().Debug(ctx, "hidden")
			So(buf.String(), ShouldBeEmpty)
		})

		Convey("When the level is lowered to debug", func() {
			So(SetLevelString("DEBUG"), ShouldBeNil)
			Get().Debug(ctx, "shown")
			So(buf.String(), ShouldContainSubstring, "shown")
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Warn(ctx, "hidden")
			Get().Error(ctx, "shown")
			So(strings.Count(buf.String(), "\n"), ShouldEqual, 1)
		})

		Convey("When the level is unknown", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})

		Convey("When Fatal is logged", func() {
			code := 0
			So(Init(WithOutput(&buf), WithExitFunc(func(c int) { code = c })), ShouldBeNil)
			Get().Fatal(ctx, "fatal")
			So(code, ShouldEqual, 1)
			So(buf.String(), ShouldContainSubstring, "fatal")
		})

		So(Sync(), ShouldBeNil)
	})
}
