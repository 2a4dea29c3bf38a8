package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it uses the default namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "elorank")
				So(manager.subsystem, ShouldEqual, "session")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})

			Convey("And metric names carry the namespace", func() {
				manager.votes.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_votes_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When passing empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "elorank")
				So(manager.subsystem, ShouldEqual, "session")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording session metrics", func() {
			before := gathered("elorank_session_votes_total")
			RecordVote()
			RecordVote()

			Convey("Then the vote counter advances", func() {
				So(gathered("elorank_session_votes_total"), ShouldEqual, before+2)
			})
		})

		Convey("When updating gauges", func() {
			UpdateItems(42)
			UpdateQueueSize(3)

			Convey("Then the gauges hold the last value", func() {
				So(gathered("elorank_session_items"), ShouldEqual, 42)
				So(gathered("elorank_session_queue_size"), ShouldEqual, 3)
			})
		})

		Convey("When recording the remaining metrics", func() {
			So(func() {
				RecordSkip()
				RecordPairServed()
				RecordRepeatFallback()
				RecordPersistenceFailure()
				RecordVoteLatency(1.5)
				RecordDuplicateCommand()
				RecordQueueEnqueueError()
				RecordHTTPRequest("/pair", "GET", "200")
				RecordHTTPRequestDuration("/pair", "GET", "200", 2.0)
				RecordErrorByComponent("persistence", "rename")
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then only elorank metrics are exposed", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "elorank_session_"), ShouldBeTrue)
				}
			})
		})
	})
}

func TestMetricsConcurrentAccess(t *testing.T) {
	Convey("Given concurrent metric updates", t, func() {
		done := make(chan bool)
		for i := 0; i < 10; i++ {
			go func() {
				for j := 0; j < 100; j++ {
					RecordPairServed()
					UpdateQueueSize(j)
					RecordVoteLatency(float64(j))
					RecordHTTPRequest("/test", "GET", "200")
				}
				done <- true
			}()
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		So(true, ShouldBeTrue)
	})
}

// gathered reads the value of a single-series counter or gauge from the custom registry.
func gathered(name string) float64 {
	families, err := GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, f := range families {
		if f.GetName() != name || len(f.GetMetric()) == 0 {
			continue
		}
		m := f.GetMetric()[0]
		if c := m.GetCounter(); c != nil {
			return c.GetValue()
		}
		if g := m.GetGauge(); g != nil {
			return g.GetValue()
		}
	}
	return 0
}
