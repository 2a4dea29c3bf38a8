package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/elorank/internal/adapters/persistence"
	service "github.com/okian/elorank/internal/app"
	"github.com/okian/elorank/internal/domain/model"
)

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service over a fresh session", t, func() {
		dir := t.TempDir()
		writeItems(dir, "a.png", "b.png", "c.png", "d.png")
		session, area := openSession(t, dir, false)
		svc := service.New(session, service.WithQueueSize(8), service.WithDedupeSize(100))
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When submitting before start", func() {
			_, err := svc.Submit(ctx, model.Command{Kind: model.CommandSkip})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then stats report the session", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["items"], ShouldEqual, 4)
				So(stats["queueSize"], ShouldEqual, 8)
			})

			Convey("And a vote through the queue returns the next pair", func() {
				left, _, err := svc.CurrentPair(ctx)
				So(err, ShouldBeNil)

				res, err := svc.Submit(ctx, model.Command{Kind: model.CommandVote, Winner: 0})
				So(err, ShouldBeNil)
				So(res.Err, ShouldBeNil)
				So(res.Left.ID, ShouldNotEqual, res.Right.ID)

				e, err := svc.Rank(ctx, left.ID)
				So(err, ShouldBeNil)
				So(e.Rating, ShouldEqual, 1016.0)
				So(e.Rank, ShouldEqual, 1)

				top, err := svc.TopN(ctx, 2)
				So(err, ShouldBeNil)
				So(top[0].ID, ShouldEqual, left.ID)
			})

			Convey("And a persistence failure comes back in the result", func() {
				area.fail = true
				res, err := svc.Submit(ctx, model.Command{Kind: model.CommandVote, Winner: 1})
				So(err, ShouldBeNil)
				So(errors.Is(res.Err, persistence.ErrPersistence), ShouldBeTrue)
				So(svc.GetStats()["votes"], ShouldEqual, 0)
			})

			Convey("And vote ids are deduplicated until unrecorded", func() {
				So(svc.SeenAndRecord(ctx, "v1"), ShouldBeFalse)
				So(svc.SeenAndRecord(ctx, "v1"), ShouldBeTrue)
				svc.Unrecord(ctx, "v1")
				So(svc.SeenAndRecord(ctx, "v1"), ShouldBeFalse)
			})

			Convey("And concurrent submissions are applied one at a time", func() {
				var wg sync.WaitGroup
				var mu sync.Mutex
				applied := 0
				for i := 0; i < 6; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						res, err := svc.Submit(ctx, model.Command{Kind: model.CommandVote, Winner: i % 2})
						if err == nil && res.Err == nil {
							mu.Lock()
							applied++
							mu.Unlock()
						}
					}(i)
				}
				wg.Wait()

				So(applied, ShouldEqual, 6)
				So(svc.GetStats()["votes"], ShouldEqual, 6)

				total := 0
				top, _ := svc.TopN(ctx, 4)
				for _, e := range top {
					total += e.Matchups
				}
				So(total, ShouldEqual, 12)
			})

			Convey("And after stopping, submissions are refused", func() {
				svc.Stop()
				_, err := svc.Submit(ctx, model.Command{Kind: model.CommandSkip})
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

// waitFor polls cond until it holds or a second has passed.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_AbandonedVotes(t *testing.T) {
	Convey("Given a service whose working area is slow", t, func() {
		dir := t.TempDir()
		writeItems(dir, "a.png", "b.png", "c.png", "d.png")
		session, area := openSession(t, dir, false)
		svc := service.New(session)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		left, right, err := svc.CurrentPair(ctx)
		So(err, ShouldBeNil)
		shown := model.Pair{left.ID, right.ID}
		vote := model.Command{Kind: model.CommandVote, Winner: 0, VoteID: "v1", Expect: shown}

		// abandon submits the vote and stops waiting long before Apply returns.
		abandon := func() error {
			area.delay = 200 * time.Millisecond
			So(svc.SeenAndRecord(ctx, "v1"), ShouldBeFalse)
			short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			_, err := svc.Submit(short, vote)
			return err
		}

		Convey("When the caller gives up before the vote is applied", func() {
			err := abandon()
			So(errors.Is(err, service.ErrPending), ShouldBeTrue)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(waitFor(func() bool { return svc.GetStats()["votes"] == 1 }), ShouldBeTrue)

			Convey("Then the vote lands once and its id stays taken", func() {
				So(svc.SeenAndRecord(ctx, "v1"), ShouldBeTrue)

				e, err := svc.Rank(ctx, left.ID)
				So(err, ShouldBeNil)
				So(e.Rating, ShouldEqual, 1016.0)
			})

			Convey("And replaying it against the old pair changes nothing", func() {
				area.delay = 0
				res, err := svc.Submit(ctx, vote)
				So(err, ShouldBeNil)
				So(errors.Is(res.Err, service.ErrStalePair), ShouldBeTrue)
				So(svc.GetStats()["votes"], ShouldEqual, 1)
			})
		})

		Convey("When the abandoned vote fails to persist", func() {
			area.fail = true
			So(errors.Is(abandon(), service.ErrPending), ShouldBeTrue)

			Convey("Then its id is released and the same vote can be retried", func() {
				So(waitFor(func() bool { return svc.Size() == 0 }), ShouldBeTrue)
				So(svc.GetStats()["votes"], ShouldEqual, 0)

				area.fail, area.delay = false, 0
				So(svc.SeenAndRecord(ctx, "v1"), ShouldBeFalse)
				res, err := svc.Submit(ctx, vote)
				So(err, ShouldBeNil)
				So(res.Err, ShouldBeNil)
				So(svc.GetStats()["votes"], ShouldEqual, 1)
			})
		})
	})
}
