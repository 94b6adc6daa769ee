package loadgen

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/allot/internal/domain/allocation"
	"github.com/okian/allot/internal/domain/capability"
	"github.com/okian/allot/internal/domain/model"
)

// CapabilityPool is the set of capabilities tickets and workers draw from.
var CapabilityPool = []string{"Python", "Java", "SQL", "AWS", "Docker", "Kubernetes", "React", "Node.js"}

// Proficiencies lists the levels tickets demand, lowest first.
var Proficiencies = []capability.Level{model.Beginner, model.Intermediate, model.Advanced}

// Ticket demand is right-skewed: most tickets need one capability at
// Beginner level with a 6hrs SLA.
var (
	ticketCapabilityWeights  = []int{70, 20, 10} // 1, 2 or 3 draws
	ticketProficiencyWeights = []int{80, 15, 5}
	ticketSLAWeights         = []int{80, 15, 5}
)

// Workers hold more capabilities, more evenly spread across levels.
var (
	workerCapabilityWeights  = []int{40, 30, 20, 10} // 1 to 4 draws
	workerProficiencyWeights = []int{50, 30, 20}
)

// Generator produces workers and tickets. It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded with seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// pick returns an index into weights with probability proportional to its weight.
func (g *Generator) pick(weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	n := g.rng.IntN(total)
	for i, w := range weights {
		if n < w {
			return i
		}
		n -= w
	}
	return len(weights) - 1
}

// draw picks count capabilities from the pool with replacement, so repeats
// collapse and a ticket may end up needing fewer distinct capabilities.
func (g *Generator) draw(count int) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = CapabilityPool[g.rng.IntN(len(CapabilityPool))]
	}
	return out
}

// Ticket generates one request record with a fresh uuid.
func (g *Generator) Ticket() model.RequestRecord {
	names := g.draw(g.pick(ticketCapabilityWeights) + 1)
	required := make(map[string]int, len(names))
	for _, name := range names {
		required[name] = int(Proficiencies[g.pick(ticketProficiencyWeights)])
	}
	return model.RequestRecord{
		ID:                   uuid.NewString(),
		RequiredCapabilities: required,
		TriageSLA:            string(allocation.SLAs[g.pick(ticketSLAWeights)]),
		Description:          "Ticket for " + strings.Join(names, ", "),
	}
}

// Tickets generates n tickets.
func (g *Generator) Tickets(n int) []model.RequestRecord {
	out := make([]model.RequestRecord, n)
	for i := range out {
		out[i] = g.Ticket()
	}
	return out
}

// Worker generates the worker record with employee number E<index>.
func (g *Generator) Worker(index int) model.WorkerRecord {
	names := g.draw(g.pick(workerCapabilityWeights) + 1)
	caps := make(map[string]int, len(names))
	for _, name := range names {
		caps[name] = int(Proficiencies[g.pick(workerProficiencyWeights)])
	}
	return model.WorkerRecord{
		EmployeeNumber: fmt.Sprintf("E%05d", index),
		Capabilities:   caps,
	}
}

// Workers generates n workers numbered from 1.
func (g *Generator) Workers(n int) []model.WorkerRecord {
	out := make([]model.WorkerRecord, n)
	for i := range out {
		out[i] = g.Worker(i + 1)
	}
	return out
}
