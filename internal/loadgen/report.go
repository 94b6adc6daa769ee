package loadgen

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/okian/allot/internal/domain/allocation"
	"github.com/okian/allot/internal/domain/capability"
	"github.com/okian/allot/internal/domain/model"
)

// DemandKey identifies one (capability, proficiency, SLA) combination.
type DemandKey struct {
	Capability  string
	Proficiency capability.Level
	SLA         string
}

// Report tallies ticket demand and allocation outcome.
type Report struct {
	Demand    map[DemandKey]int
	Matched   map[string]int // by SLA
	Unmatched map[string]int // by SLA
}

// NewReport tallies tickets. When alloc is non-nil, each ticket's outcome is
// counted against its SLA as well.
func NewReport(tickets []model.RequestRecord, alloc *AllocationResponse) *Report {
	r := &Report{
		Demand:    make(map[DemandKey]int),
		Matched:   make(map[string]int),
		Unmatched: make(map[string]int),
	}
	for _, t := range tickets {
		for name, level := range t.RequiredCapabilities {
			r.Demand[DemandKey{Capability: name, Proficiency: capability.Level(level), SLA: t.TriageSLA}]++
		}
		if alloc == nil {
			continue
		}
		worker, found := alloc.Allocation[t.ID]
		switch {
		case !found:
		case worker != nil:
			r.Matched[t.TriageSLA]++
		default:
			r.Unmatched[t.TriageSLA]++
		}
	}
	return r
}

// WriteTo renders the report as two aligned tables.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	tw := tabwriter.NewWriter(cw, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "CAPABILITY\tPROFICIENCY\tSLA\tCOUNT")
	for _, k := range r.sortedKeys() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", k.Capability, model.ProficiencyLabel(k.Proficiency), slaLabel(k.SLA), r.Demand[k])
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "SLA\tMATCHED\tUNMATCHED")
	for _, sla := range r.slaOrder() {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", slaLabel(sla), r.Matched[sla], r.Unmatched[sla])
	}

	if err := tw.Flush(); err != nil {
		return cw.n, fmt.Errorf("failed to write report: %w", err)
	}
	return cw.n, cw.err
}

// sortedKeys orders demand by pool position, proficiency and SLA.
func (r *Report) sortedKeys() []DemandKey {
	keys := make([]DemandKey, 0, len(r.Demand))
	for k := range r.Demand {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b DemandKey) int {
		if c := poolIndex(a.Capability) - poolIndex(b.Capability); c != 0 {
			return c
		}
		if a.Capability != b.Capability {
			if a.Capability < b.Capability {
				return -1
			}
			return 1
		}
		if c := int(a.Proficiency) - int(b.Proficiency); c != 0 {
			return c
		}
		return slaIndex(a.SLA) - slaIndex(b.SLA)
	})
	return keys
}

// slaOrder lists the SLAs seen in either outcome map, shortest first.
func (r *Report) slaOrder() []string {
	seen := make(map[string]struct{})
	for sla := range r.Matched {
		seen[sla] = struct{}{}
	}
	for sla := range r.Unmatched {
		seen[sla] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for sla := range seen {
		out = append(out, sla)
	}
	slices.SortFunc(out, func(a, b string) int { return slaIndex(a) - slaIndex(b) })
	return out
}

func poolIndex(name string) int {
	if i := slices.Index(CapabilityPool, name); i >= 0 {
		return i
	}
	return len(CapabilityPool)
}

func slaIndex(sla string) int {
	if i := slices.Index(allocation.SLAs, allocation.TriageSLA(sla)); i >= 0 {
		return i
	}
	return len(allocation.SLAs)
}

func slaLabel(sla string) string {
	if sla == "" {
		return "-"
	}
	return sla
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil && c.err == nil {
		c.err = err
	}
	return n, err
}
