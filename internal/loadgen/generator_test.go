package loadgen_test

import (
	"slices"
	"testing"

	"github.com/okian/allot/internal/domain/allocation"
	"github.com/okian/allot/internal/loadgen"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerator_Tickets(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		gen := loadgen.NewGenerator(42)

		Convey("When generating many tickets", func() {
			tickets := gen.Tickets(2000)

			Convey("Then every ticket is a valid record", func() {
				ids := make(map[string]struct{}, len(tickets))
				for _, tk := range tickets {
					So(tk.Validate(), ShouldBeNil)
					ids[tk.ID] = struct{}{}
				}
				So(len(ids), ShouldEqual, len(tickets))
			})

			Convey("And requirements come from the pool at known levels", func() {
				for _, tk := range tickets {
					So(len(tk.RequiredCapabilities), ShouldBeBetweenOrEqual, 1, 3)
					for name, level := range tk.RequiredCapabilities {
						So(slices.Contains(loadgen.CapabilityPool, name), ShouldBeTrue)
						So(level, ShouldBeBetweenOrEqual, 1, 3)
					}
					So(tk.Description, ShouldStartWith, "Ticket for ")
				}
			})

			Convey("And the distributions are right-skewed", func() {
				single, beginner, levels, sixHours := 0, 0, 0, 0
				for _, tk := range tickets {
					if len(tk.RequiredCapabilities) == 1 {
						single++
					}
					for _, level := range tk.RequiredCapabilities {
						levels++
						if level == 1 {
							beginner++
						}
					}
					if tk.TriageSLA == string(allocation.SLASixHours) {
						sixHours++
					}
				}
				// expected 70%+, 80% and 80%; bounds leave room for sampling noise
				So(single, ShouldBeGreaterThan, len(tickets)*6/10)
				So(beginner, ShouldBeGreaterThan, levels*7/10)
				So(sixHours, ShouldBeGreaterThan, len(tickets)*7/10)
			})
		})

		Convey("When two generators share a seed", func() {
			a := loadgen.NewGenerator(7).Workers(20)
			b := loadgen.NewGenerator(7).Workers(20)

			Convey("Then they produce the same workers", func() {
				So(a, ShouldResemble, b)
			})
		})
	})
}

func TestGenerator_Workers(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		workers := loadgen.NewGenerator(1).Workers(50)

		Convey("Then workers are numbered in order and valid", func() {
			So(workers[0].EmployeeNumber, ShouldEqual, "E00001")
			So(workers[49].EmployeeNumber, ShouldEqual, "E00050")
			for _, w := range workers {
				So(w.Validate(), ShouldBeNil)
				So(len(w.Capabilities), ShouldBeBetweenOrEqual, 1, 4)
			}
		})
	})
}
