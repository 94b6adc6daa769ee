package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then metrics are registered under the allot namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.allocationPasses.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "allot_allocator_allocation_passes_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("engine"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "engine")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.constLabels["env"], ShouldEqual, "test")
			})
		})

		Convey("When empty options are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithConstLabels(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "allot")
				So(manager.subsystem, ShouldEqual, "allocator")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording an allocation pass", func() {
			passes := testutil.ToFloat64(globalManager.allocationPasses)
			matched := testutil.ToFloat64(globalManager.requestsMatched)

			RecordAllocationPass(0.2, 2, 1)

			Convey("Then counters and gauges move", func() {
				So(testutil.ToFloat64(globalManager.allocationPasses), ShouldEqual, passes+1)
				So(testutil.ToFloat64(globalManager.requestsMatched), ShouldEqual, matched+2)
				So(testutil.ToFloat64(globalManager.lastPassUnmatched), ShouldEqual, 1)
			})
		})

		Convey("When updating registry and queue sizes", func() {
			UpdateWorkersRegistered(3)
			UpdateRequestsQueued(7)

			Convey("Then the gauges hold the values", func() {
				So(testutil.ToFloat64(globalManager.workersRegistered), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.requestsQueued), ShouldEqual, 7)
			})
		})

		Convey("When recording labelled counters", func() {
			before := testutil.ToFloat64(globalManager.capabilityRequested.WithLabelValues("Python"))
			RecordCapabilityRequested("Python")
			RecordValidationFailure("worker")
			RecordRequestDuplicate()

			Convey("Then the labelled series increase", func() {
				So(testutil.ToFloat64(globalManager.capabilityRequested.WithLabelValues("Python")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.validationFailures.WithLabelValues("worker")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording HTTP, error and system metrics", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordHTTPRequest("allocate", "POST", "200")
					RecordHTTPRequestDuration("allocate", "POST", "200", 1.5)
					RecordErrorByType("client_error", "medium")
					RecordErrorByEndpoint("workers", "POST", "client_error")
					RecordErrorLatency("http", "client_error", 0.5)
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})

		Convey("When the registry is gathered", func() {
			RecordAllocationPass(0.1, 0, 0)
			families, err := GetRegistry().Gather()

			Convey("Then only allot metrics are exposed", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "allot_"), ShouldBeTrue)
				}
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.requestsDuplicate)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordRequestDuplicate()
				}
			}()
		}
		wg.Wait()

		Convey("Then no increment is lost", func() {
			So(testutil.ToFloat64(globalManager.requestsDuplicate), ShouldEqual, before+1000)
		})
	})
}
