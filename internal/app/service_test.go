package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/allot/internal/app"
	"github.com/okian/allot/internal/domain/capability"
	"github.com/okian/allot/internal/domain/model"
	"github.com/okian/allot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func worker(id string, caps map[string]int) model.WorkerRecord {
	return model.WorkerRecord{EmployeeNumber: id, Capabilities: caps}
}

func request(id string, caps map[string]int) model.RequestRecord {
	return model.RequestRecord{ID: id, RequiredCapabilities: caps}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it allows reassignment", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["allowReassignment"], ShouldEqual, true)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithAllowReassignment(false),
			service.WithDedupeSize(25_000),
			service.WithMaxRequiredCapabilities(4),
			service.WithLogger(logger.Get().Named("test")),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["allowReassignment"], ShouldEqual, false)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When calling operations before Start", func() {
			err := svc.RegisterWorker(ctx, worker("W1", nil))
			_, enqErr := svc.EnqueueRequest(ctx, request("R1", nil))
			_, allocErr := svc.Allocate(ctx)

			Convey("Then they fail with ErrNotStarted", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(enqErr, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(allocErr, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When starting the service", func() {
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["workers"], ShouldEqual, 0)
				So(stats["requests"], ShouldEqual, 0)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When it is stopped and started again", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.RegisterWorker(ctx, worker("W1", map[string]int{"Go": 1})), ShouldBeNil)
			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then registered state survives", func() {
				So(svc.GetStats()["workers"], ShouldEqual, 1)
			})
		})
	})
}

func TestService_RegisterWorker(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When registering a valid worker", func() {
			err := svc.RegisterWorker(ctx, worker("101", map[string]int{"Python": 5}))

			Convey("Then it is listed", func() {
				So(err, ShouldBeNil)
				workers, err := svc.Workers(ctx, 0)
				So(err, ShouldBeNil)
				So(len(workers), ShouldEqual, 1)
				So(workers[0].EmployeeNumber, ShouldEqual, "101")
			})
		})

		Convey("When registering a worker without an id", func() {
			err := svc.RegisterWorker(ctx, worker("", nil))

			Convey("Then it is rejected as an invalid record", func() {
				So(errors.Is(err, service.ErrInvalidRecord), ShouldBeTrue)
				So(errors.Is(err, model.ErrMissingID), ShouldBeTrue)
				So(svc.GetStats()["workers"], ShouldEqual, 0)
			})
		})

		Convey("When listing with a limit", func() {
			for _, id := range []string{"A", "B", "C"} {
				So(svc.RegisterWorker(ctx, worker(id, nil)), ShouldBeNil)
			}
			workers, err := svc.Workers(ctx, 2)

			Convey("Then the first workers in scan order are returned", func() {
				So(err, ShouldBeNil)
				So(len(workers), ShouldEqual, 2)
				So(workers[0].EmployeeNumber, ShouldEqual, "A")
				So(workers[1].EmployeeNumber, ShouldEqual, "B")
			})
		})
	})
}

func TestService_EnqueueRequest(t *testing.T) {
	Convey("Given a started service with a capability limit", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithMaxRequiredCapabilities(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When enqueueing a request", func() {
			ack, err := svc.EnqueueRequest(ctx, request("R1", map[string]int{"Java": 2}))

			Convey("Then it is accepted", func() {
				So(err, ShouldBeNil)
				So(ack.ID, ShouldEqual, "R1")
				So(ack.Duplicate, ShouldBeFalse)
				So(svc.GetStats()["requests"], ShouldEqual, 1)
			})

			Convey("And the same id again is acknowledged as a duplicate", func() {
				again, err := svc.EnqueueRequest(ctx, request("R1", map[string]int{"Java": 9}))
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(svc.GetStats()["requests"], ShouldEqual, 1)
			})
		})

		Convey("When enqueueing a request without an id", func() {
			ack, err := svc.EnqueueRequest(ctx, request("", nil))

			Convey("Then an id is generated", func() {
				So(err, ShouldBeNil)
				So(ack.ID, ShouldNotBeEmpty)
				requests, err := svc.Requests(ctx, 0)
				So(err, ShouldBeNil)
				So(requests[0].ID, ShouldEqual, ack.ID)
			})
		})

		Convey("When the caller gives up before the request is queued", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.EnqueueRequest(cancelled, request("R9", nil))

			Convey("Then the id is released for a retry", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(svc.GetStats()["requests"], ShouldEqual, 0)
				ack, err := svc.EnqueueRequest(ctx, request("R9", nil))
				So(err, ShouldBeNil)
				So(ack.Duplicate, ShouldBeFalse)
			})
		})

		Convey("When a request demands too many capabilities", func() {
			_, err := svc.EnqueueRequest(ctx, request("R2", map[string]int{"A": 1, "B": 1, "C": 1}))

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidRecord), ShouldBeTrue)
				So(svc.GetStats()["requests"], ShouldEqual, 0)
			})
		})

		Convey("When a request carries an unknown SLA", func() {
			rec := request("R3", nil)
			rec.TriageSLA = "1week"
			_, err := svc.EnqueueRequest(ctx, rec)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidRecord), ShouldBeTrue)
			})
		})
	})
}

func TestService_UpdateCapability(t *testing.T) {
	Convey("Given a started service with a worker registered twice", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		So(svc.RegisterWorker(ctx, worker("W", map[string]int{"SQL": 1})), ShouldBeNil)
		So(svc.RegisterWorker(ctx, worker("W", map[string]int{"SQL": 2})), ShouldBeNil)

		Convey("When updating a held capability", func() {
			n, err := svc.UpdateCapability(ctx, "W", "SQL", 4, false)

			Convey("Then every profile with that id changes", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				workers, _ := svc.Workers(ctx, 0)
				So(workers[0].Capabilities["SQL"], ShouldEqual, 4)
				So(workers[1].Capabilities["SQL"], ShouldEqual, 4)
			})
		})

		Convey("When updating a capability the worker does not hold", func() {
			_, err := svc.UpdateCapability(ctx, "W", "Go", 4, false)

			Convey("Then it fails with ErrCapabilityNotFound and nothing changes", func() {
				So(errors.Is(err, capability.ErrCapabilityNotFound), ShouldBeTrue)
				workers, _ := svc.Workers(ctx, 0)
				_, held := workers[0].Capabilities["Go"]
				So(held, ShouldBeFalse)
			})
		})

		Convey("When adding a missing capability", func() {
			_, err := svc.UpdateCapability(ctx, "W", "Go", 3, true)

			Convey("Then the worker now qualifies for it", func() {
				So(err, ShouldBeNil)
				_, err := svc.EnqueueRequest(ctx, request("R", map[string]int{"Go": 3}))
				So(err, ShouldBeNil)
				result, err := svc.Allocate(ctx)
				So(err, ShouldBeNil)
				id, matched, _ := result.WorkerFor("R")
				So(matched, ShouldBeTrue)
				So(id, ShouldEqual, "W")
			})
		})

		Convey("When the worker is unknown", func() {
			_, err := svc.UpdateCapability(ctx, "nobody", "SQL", 1, true)

			Convey("Then it fails with ErrWorkerNotFound", func() {
				So(errors.Is(err, service.ErrWorkerNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Allocate(t *testing.T) {
	Convey("Given a started service with the reference workers and requests", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		So(svc.RegisterWorker(ctx, worker("W1", map[string]int{"Python": 5, "Java": 3})), ShouldBeNil)
		So(svc.RegisterWorker(ctx, worker("W2", map[string]int{"Python": 2, "Java": 4})), ShouldBeNil)
		So(svc.RegisterWorker(ctx, worker("W3", map[string]int{"Python": 4, "Java": 5})), ShouldBeNil)
		for _, r := range []model.RequestRecord{
			request("R1", map[string]int{"Python": 4}),
			request("R2", map[string]int{"Java": 5}),
			request("R3", map[string]int{"Python": 6}),
		} {
			_, err := svc.EnqueueRequest(ctx, r)
			So(err, ShouldBeNil)
		}

		Convey("When allocating", func() {
			result, err := svc.Allocate(ctx)

			Convey("Then the greedy first-match result comes back", func() {
				So(err, ShouldBeNil)
				m := result.Map()
				So(*m["R1"], ShouldEqual, "W1")
				So(*m["R2"], ShouldEqual, "W3")
				So(m["R3"], ShouldBeNil)
				So(svc.GetStats()["passes"], ShouldEqual, 1)
			})
		})
	})

	Convey("Given a started service that forbids reassignment", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithAllowReassignment(false))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		So(svc.RegisterWorker(ctx, worker("W1", map[string]int{"Python": 5})), ShouldBeNil)
		for _, id := range []string{"R1", "R2"} {
			_, err := svc.EnqueueRequest(ctx, request(id, map[string]int{"Python": 1}))
			So(err, ShouldBeNil)
		}

		Convey("When allocating", func() {
			result, err := svc.Allocate(ctx)

			Convey("Then the single worker serves only the first request", func() {
				So(err, ShouldBeNil)
				So(result.Matched(), ShouldEqual, 1)
				_, matched, _ := result.WorkerFor("R2")
				So(matched, ShouldBeFalse)
			})
		})
	})
}
