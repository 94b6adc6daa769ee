package loadgen_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/okian/allot/internal/domain/model"
	"github.com/okian/allot/internal/loadgen"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReport(t *testing.T) {
	Convey("Given three tickets and an allocation", t, func() {
		tickets := []model.RequestRecord{
			{ID: "a", RequiredCapabilities: map[string]int{"Java": 1}, TriageSLA: "6hrs"},
			{ID: "b", RequiredCapabilities: map[string]int{"Java": 1, "Python": 3}, TriageSLA: "6hrs"},
			{ID: "c", RequiredCapabilities: map[string]int{"SQL": 2}, TriageSLA: "3day"},
		}
		w := "E00001"
		alloc := &loadgen.AllocationResponse{Allocation: map[string]*string{"a": &w, "b": nil, "c": &w}}

		report := loadgen.NewReport(tickets, alloc)

		Convey("Then demand is tallied per combination", func() {
			So(report.Demand[loadgen.DemandKey{Capability: "Java", Proficiency: 1, SLA: "6hrs"}], ShouldEqual, 2)
			So(report.Demand[loadgen.DemandKey{Capability: "Python", Proficiency: 3, SLA: "6hrs"}], ShouldEqual, 1)
			So(report.Matched["6hrs"], ShouldEqual, 1)
			So(report.Unmatched["6hrs"], ShouldEqual, 1)
			So(report.Matched["3day"], ShouldEqual, 1)
		})

		Convey("When rendered", func() {
			var buf bytes.Buffer
			n, err := report.WriteTo(&buf)

			Convey("Then rows follow pool order with labels", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, buf.Len())
				lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
				So(lines[0], ShouldStartWith, "CAPABILITY")
				So(lines[1], ShouldStartWith, "Python")
				So(lines[1], ShouldContainSubstring, "Advanced")
				So(lines[2], ShouldStartWith, "Java")
				So(lines[2], ShouldContainSubstring, "Beginner")
				So(lines[3], ShouldStartWith, "SQL")
				So(buf.String(), ShouldContainSubstring, "MATCHED")
			})
		})
	})

	Convey("Given tickets without an allocation", t, func() {
		report := loadgen.NewReport([]model.RequestRecord{{ID: "x", RequiredCapabilities: map[string]int{"AWS": 2}}}, nil)

		Convey("Then only demand is counted and the missing SLA renders as a dash", func() {
			So(len(report.Matched), ShouldEqual, 0)
			var buf bytes.Buffer
			_, err := report.WriteTo(&buf)
			So(err, ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "AWS")
			So(buf.String(), ShouldContainSubstring, "-")
		})
	})
}
