package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pobabytouch/leaderboard/internal/config"
	"github.com/pobabytouch/leaderboard/internal/domain"
	"github.com/pobabytouch/leaderboard/internal/engine"
	"github.com/pobabytouch/leaderboard/internal/handler"
	"github.com/pobabytouch/leaderboard/internal/store/memstore"
)

func newServer() (*httptest.Server, *engine.Engine) {
	cfg := &config.LeaderboardConfig{
		DefaultCount:    10,
		MaxCount:        100,
		HighScoreDepth:  10,
		RankDepth:       100,
		FetchMultiplier: 3,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(memstore.New(), cfg, logger)
	h := handler.NewHandler(eng, nil, eng, logger)
	return httptest.NewServer(h.Router()), eng
}

func postScore(ts *httptest.Server, body string) *http.Response {
	resp, err := http.Post(ts.URL+"/api/highscores", "application/json", bytes.NewBufferString(body))
	So(err, ShouldBeNil)
	return resp
}

func decode(resp *http.Response) handler.APIResponse {
	defer resp.Body.Close()
	var out handler.APIResponse
	So(json.NewDecoder(resp.Body).Decode(&out), ShouldBeNil)
	return out
}

func TestSaveAndQueryScores(t *testing.T) {
	Convey("Given a running API server", t, func() {
		ts, _ := newServer()
		defer ts.Close()

		Convey("When a valid score is posted", func() {
			resp := postScore(ts, `{"playerInitials":"abc","score":1500,"gameMode":"Default"}`)

			Convey("Then the save is confirmed", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(decode(resp).Success, ShouldBeTrue)
			})

			Convey("And the leaderboard lists it with uppercase initials", func() {
				resp.Body.Close()
				listResp, err := http.Get(ts.URL + "/api/highscores?count=10&gameMode=Default")
				So(err, ShouldBeNil)
				out := decode(listResp)
				So(listResp.StatusCode, ShouldEqual, http.StatusOK)

				var entries []domain.LeaderboardEntry
				So(json.Unmarshal(mustMarshal(out.Data), &entries), ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Initials, ShouldEqual, "ABC")
				So(entries[0].Score, ShouldEqual, 1500)
			})
		})

		Convey("When the initials are too short", func() {
			resp := postScore(ts, `{"playerInitials":"AB","score":1500}`)

			Convey("Then the submission is rejected with a reason", func() {
				out := decode(resp)
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(out.Success, ShouldBeFalse)
				So(out.Error, ShouldNotBeBlank)
			})
		})

		Convey("When the score is negative", func() {
			resp := postScore(ts, `{"playerInitials":"ABC","score":-10}`)

			Convey("Then the submission is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				resp.Body.Close()
			})
		})

		Convey("When the body is not JSON", func() {
			resp := postScore(ts, `not json`)

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				resp.Body.Close()
			})
		})
	})
}

func TestCheckAndRankEndpoints(t *testing.T) {
	Convey("Given a server with a populated leaderboard", t, func() {
		ts, _ := newServer()
		defer ts.Close()

		for i, s := range []int64{3000, 2500, 2000, 1500, 1000} {
			resp := postScore(ts, fmt.Sprintf(`{"playerInitials":"P%02d","score":%d,"gameMode":"Rank"}`, i, s))
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			resp.Body.Close()
		}

		Convey("When checking a score against a partly filled board", func() {
			resp, err := http.Get(ts.URL + "/api/highscores/check/1?gameMode=Rank")
			So(err, ShouldBeNil)
			out := decode(resp)

			Convey("Then any score qualifies while fewer than ten exist", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(mustMarshal(out.Data)), ShouldEqual, "true")
			})
		})

		Convey("When asking for the rank of 1750", func() {
			resp, err := http.Get(ts.URL + "/api/highscores/rank/1750?gameMode=Rank")
			So(err, ShouldBeNil)
			out := decode(resp)

			Convey("Then it would slot in at fourth place", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(string(mustMarshal(out.Data)), ShouldEqual, "4")
			})
		})

		Convey("When the score path segment is not a number", func() {
			resp, err := http.Get(ts.URL + "/api/highscores/rank/abc?gameMode=Rank")
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestDiagnosticsEndpoints(t *testing.T) {
	Convey("Given a running API server", t, func() {
		ts, _ := newServer()
		defer ts.Close()

		Convey("The health endpoint reports healthy", func() {
			resp, err := http.Get(ts.URL + "/health")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			resp.Body.Close()
		})

		Convey("The readiness endpoint reports ready", func() {
			resp, err := http.Get(ts.URL + "/ready")
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			resp.Body.Close()
		})

		Convey("The test endpoint reports a connected store", func() {
			resp, err := http.Get(ts.URL + "/api/highscores/test")
			So(err, ShouldBeNil)
			out := decode(resp)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var status domain.ServiceStatus
			So(json.Unmarshal(mustMarshal(out.Data), &status), ShouldBeNil)
			So(status.Status, ShouldEqual, "connected")
		})

		Convey("The stats endpoint reports the partition count", func() {
			resp := postScore(ts, `{"playerInitials":"AAA","score":100,"gameMode":"Easy"}`)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			resp.Body.Close()

			statsResp, err := http.Get(ts.URL + "/api/highscores/stats?gameMode=Easy")
			So(err, ShouldBeNil)
			out := decode(statsResp)
			So(statsResp.StatusCode, ShouldEqual, http.StatusOK)

			var stats map[string]interface{}
			So(json.Unmarshal(mustMarshal(out.Data), &stats), ShouldBeNil)
			So(stats["game_mode"], ShouldEqual, "Easy")
			So(stats["score_count"], ShouldEqual, 1)
		})
	})
}

// mustMarshal re-encodes the generic Data field so tests can decode it
// into a concrete type.
func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	So(err, ShouldBeNil)
	return data
}
