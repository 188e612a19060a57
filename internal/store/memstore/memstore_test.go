package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pobabytouch/leaderboard/internal/domain"
	"github.com/pobabytouch/leaderboard/internal/store"
	"github.com/pobabytouch/leaderboard/internal/store/memstore"
)

func record(partition, sortKey, initials string, score int64) domain.ScoreRecord {
	return domain.ScoreRecord{
		Partition:  partition,
		SortKey:    sortKey,
		Initials:   initials,
		Score:      score,
		AchievedAt: time.Now().UTC(),
	}
}

func TestMemstore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory store", t, func() {
		st := memstore.New()

		Convey("When records are inserted out of key order", func() {
			So(st.Put(ctx, record("Default", "002", "BBB", 200)), ShouldBeNil)
			So(st.Put(ctx, record("Default", "001", "AAA", 100)), ShouldBeNil)
			So(st.Put(ctx, record("Default", "003", "CCC", 300)), ShouldBeNil)

			Convey("Then scans return them in sort-key order", func() {
				recs, err := st.Scan(ctx, "Default", 10)
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 3)
				So(recs[0].SortKey, ShouldEqual, "001")
				So(recs[1].SortKey, ShouldEqual, "002")
				So(recs[2].SortKey, ShouldEqual, "003")
			})

			Convey("And the scan honors its limit", func() {
				recs, err := st.Scan(ctx, "Default", 2)
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 2)
				So(recs[1].SortKey, ShouldEqual, "002")
			})

			Convey("And a non-positive limit returns nothing", func() {
				recs, err := st.Scan(ctx, "Default", 0)
				So(err, ShouldBeNil)
				So(recs, ShouldBeEmpty)
			})

			Convey("And counting sees all of them", func() {
				count, err := st.Count(ctx, "Default")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 3)
			})
		})

		Convey("When a sort key is reused within a partition", func() {
			So(st.Put(ctx, record("Default", "001", "AAA", 100)), ShouldBeNil)
			err := st.Put(ctx, record("Default", "001", "BBB", 200))

			Convey("Then the insert fails with a duplicate-key error", func() {
				So(errors.Is(err, store.ErrDuplicateKey), ShouldBeTrue)
			})

			Convey("And the same key is fine in another partition", func() {
				So(st.Put(ctx, record("Hard", "001", "BBB", 200)), ShouldBeNil)
			})
		})

		Convey("When records live in different partitions", func() {
			So(st.Put(ctx, record("Easy", "001", "AAA", 100)), ShouldBeNil)
			So(st.Put(ctx, record("Easy", "002", "BBB", 200)), ShouldBeNil)
			So(st.Put(ctx, record("Hard", "001", "CCC", 300)), ShouldBeNil)

			Convey("Then scans and counts are partition-scoped", func() {
				easy, err := st.Scan(ctx, "Easy", 10)
				So(err, ShouldBeNil)
				So(easy, ShouldHaveLength, 2)

				hardCount, err := st.Count(ctx, "Hard")
				So(err, ShouldBeNil)
				So(hardCount, ShouldEqual, 1)
			})

			Convey("And an unknown partition scans empty", func() {
				recs, err := st.Scan(ctx, "Nope", 10)
				So(err, ShouldBeNil)
				So(recs, ShouldBeEmpty)
			})
		})

		Convey("When deleting a record", func() {
			So(st.Put(ctx, record("Default", "001", "AAA", 100)), ShouldBeNil)

			Convey("Then it is removed", func() {
				So(st.Delete(ctx, "Default", "001"), ShouldBeNil)
				count, err := st.Count(ctx, "Default")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 0)
			})

			Convey("And deleting it again reports not found", func() {
				So(st.Delete(ctx, "Default", "001"), ShouldBeNil)
				err := st.Delete(ctx, "Default", "001")
				So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then every operation reports the store as unavailable", func() {
				err := st.Put(cancelled, record("Default", "001", "AAA", 100))
				So(errors.Is(err, store.ErrUnavailable), ShouldBeTrue)

				_, err = st.Scan(cancelled, "Default", 10)
				So(errors.Is(err, store.ErrUnavailable), ShouldBeTrue)

				_, err = st.Count(cancelled, "Default")
				So(errors.Is(err, store.ErrUnavailable), ShouldBeTrue)

				err = st.Delete(cancelled, "Default", "001")
				So(errors.Is(err, store.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}
