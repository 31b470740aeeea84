package luminara

import (
	"fmt"
	"strings"
)

// entry is one registered task with its descriptor compiled for batching.
type entry struct {
	task      Task
	name      string
	access    Access
	mask      accessMask
	exclusive bool
}

// singleton reports whether the task must occupy a batch of its own: it is
// exclusive, or it declares nothing and is therefore treated as exclusive.
func (e *entry) singleton() bool {
	return e.exclusive || e.mask.isEmpty()
}

type batch struct {
	entries []*entry
	merged  accessMask
}

// exclusive reports whether the batch needs sole access to the World.
func (b *batch) exclusive() bool {
	return len(b.entries) == 1 && b.entries[0].singleton()
}

// buildBatches partitions entries, in registration order, into batches whose
// members have pairwise non-conflicting access. A task that conflicts with
// the open batch closes it; exclusive and empty-access tasks always get a
// batch of their own.
func buildBatches(entries []*entry) []*batch {
	var (
		out []*batch
		cur = &batch{}
	)
	flush := func() {
		if len(cur.entries) > 0 {
			out = append(out, cur)
			cur = &batch{}
		}
	}
	for _, e := range entries {
		solo := e.singleton()
		if solo || cur.merged.conflicts(e.mask) {
			flush()
		}
		if solo {
			out = append(out, &batch{entries: []*entry{e}, merged: e.mask})
			continue
		}
		cur.merged.merge(e.mask)
		cur.entries = append(cur.entries, e)
	}
	flush()
	return out
}

// Batch describes one batch of a Plan.
type Batch struct {
	Tasks     []string
	Exclusive bool
	Access    Access
}

// Plan is the batch partition of one stage, in execution order.
type Plan struct {
	Stage   Stage
	Batches []Batch
}

func newPlan(stage Stage, batches []*batch) Plan {
	p := Plan{Stage: stage, Batches: make([]Batch, len(batches))}
	for i, b := range batches {
		pb := Batch{Exclusive: b.exclusive()}
		for _, e := range b.entries {
			pb.Tasks = append(pb.Tasks, e.name)
			pb.Access.Merge(e.access)
		}
		p.Batches[i] = pb
	}
	return p
}

// TaskCount returns the number of tasks across all batches.
func (p Plan) TaskCount() int {
	n := 0
	for _, b := range p.Batches {
		n += len(b.Tasks)
	}
	return n
}

// String renders the plan one batch per line, for logs and golden files.
//
//	Update:
//	  [0] {R} res.read={main.X}
//	  [1] {W, C} res.write={main.X} comp.write={main.Y}
func (p Plan) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", p.Stage)
	if len(p.Batches) == 0 {
		sb.WriteString("  (empty)\n")
	}
	for i, b := range p.Batches {
		mark := ""
		if b.Exclusive {
			mark = " exclusive"
		}
		fmt.Fprintf(&sb, "  [%d] {%s}%s %s\n", i, strings.Join(b.Tasks, ", "), mark, b.Access)
	}
	return sb.String()
}
