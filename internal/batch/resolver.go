package batch

import "sort"

// resolver answers eligibility questions over a fixed task set. It never
// mutates tasks; cascade mutates only the status table handed to it.
type resolver struct {
	tasks map[int]*Task
	order []int
}

func newResolver(tasks []*Task) *resolver {
	r := &resolver{
		tasks: make(map[int]*Task, len(tasks)),
		order: make([]int, 0, len(tasks)),
	}
	for _, t := range tasks {
		r.tasks[t.OrderID] = t
		r.order = append(r.order, t.OrderID)
	}
	sort.Ints(r.order)
	return r
}

// cascade marks every pending task transitively blocked by a non-recoverable
// failure as SKIPPED. A failure blocks when the failed task did not set
// continue_on_fail; a skipped task blocks its own dependents in turn. Returns
// the newly skipped order ids in ascending order.
func (r *resolver) cascade(statuses map[int]Status) []int {
	blocked := make(map[int]bool, len(r.order))
	for id, st := range statuses {
		if st == StatusSkipped {
			blocked[id] = true
		}
		if st.Failed() && !r.tasks[id].ContinueOnFail {
			blocked[id] = true
		}
	}

	var newly []int
	for changed := true; changed; {
		changed = false
		for _, id := range r.order {
			if blocked[id] || statuses[id] != StatusPending {
				continue
			}
			for _, dep := range r.tasks[id].Dependencies {
				if blocked[dep] {
					statuses[id] = StatusSkipped
					blocked[id] = true
					newly = append(newly, id)
					changed = true
					break
				}
			}
		}
	}

	sort.Ints(newly)
	return newly
}

// nextWave returns the order ids eligible for dispatch now, ascending. A task
// is eligible when it is PENDING and every dependency either succeeded or
// failed with continue_on_fail set (terminal is enough in that case).
func (r *resolver) nextWave(statuses map[int]Status) []int {
	var wave []int
	for _, id := range r.order {
		if statuses[id] != StatusPending {
			continue
		}
		if r.depsSatisfied(id, statuses) {
			wave = append(wave, id)
		}
	}
	return wave
}

func (r *resolver) depsSatisfied(id int, statuses map[int]Status) bool {
	for _, dep := range r.tasks[id].Dependencies {
		st := statuses[dep]
		if st == StatusSuccess {
			continue
		}
		if st.Failed() && r.tasks[dep].ContinueOnFail {
			continue
		}
		return false
	}
	return true
}

// pending returns the order ids that have not reached a terminal status,
// ascending.
func (r *resolver) pending(statuses map[int]Status) []int {
	var ids []int
	for _, id := range r.order {
		if !statuses[id].Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}
