package resolve

import (
	"fmt"
	"slices"
	"strings"

	"github.com/okian/orgchart/internal/domain/identity"
	"github.com/okian/orgchart/internal/domain/model"
)

const (
	unvisited uint8 = iota
	onPath
	done
)

// repairCycles walks every ancestor chain with an explicit path and cuts one
// edge per cycle found. A functional graph has at most one cycle per walk,
// and after the cut every node on the path leads to the new root.
func (res *Resolution) repairCycles() {
	state := make(map[Key]uint8, len(res.Order))
	pos := make(map[Key]int, len(res.Order))
	var path []Key

	for _, start := range res.Order {
		if state[start] != unvisited {
			continue
		}
		path = path[:0]
		for cur := start; !cur.IsEmpty() && state[cur] != done; cur = res.Managers[cur] {
			if state[cur] == onPath {
				res.cut(slices.Clone(path[pos[cur]:]))
				break
			}
			state[cur] = onPath
			pos[cur] = len(path)
			path = append(path, cur)
		}
		for _, k := range path {
			state[k] = done
		}
	}
}

// cut removes the weakest edge of cycle: lowest winning confidence, and among
// equals the one whose winning assertion was seen last.
func (res *Resolution) cut(cycle []Key) {
	weakest := cycle[0]
	for _, k := range cycle[1:] {
		a, b := res.Decisions[k].Winner, res.Decisions[weakest].Winner
		if a.Confidence < b.Confidence || (a.Confidence == b.Confidence && a.FirstSeen > b.FirstSeen) {
			weakest = k
		}
	}

	manager := res.Managers[weakest]
	res.Managers[weakest] = identity.EmptyKey
	res.Repairs = append(res.Repairs, Repair{
		Subject:    weakest,
		Manager:    manager,
		Confidence: res.Decisions[weakest].Winner.Confidence,
		Cycle:      cycle,
	})

	names := make([]string, len(cycle))
	for i, k := range cycle {
		names[i] = res.Display[k]
	}
	res.diagnose(Diagnostic{
		Kind:    KindCycleBroken,
		Subject: weakest,
		Name:    res.Display[manager],
		Cycle:   cycle,
		Message: fmt.Sprintf("cycle %s broken by removing %s -> %s",
			strings.Join(names, " -> "), res.Display[weakest], res.Display[manager]),
	})
}

// FindCycles returns every cycle in links (subject -> manager). Walks start
// from keys in sorted order so the result is deterministic; a link to a key
// that is not itself a subject ends the walk.
func FindCycles(links map[Key]Key) [][]Key {
	keys := make([]Key, 0, len(links))
	for k := range links {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	state := make(map[Key]uint8, len(links))
	pos := make(map[Key]int, len(links))
	var (
		cycles [][]Key
		path   []Key
	)
	for _, start := range keys {
		if state[start] != unvisited {
			continue
		}
		path = path[:0]
		for cur := start; !cur.IsEmpty() && state[cur] != done; cur = links[cur] {
			if state[cur] == onPath {
				cycles = append(cycles, slices.Clone(path[pos[cur]:]))
				break
			}
			state[cur] = onPath
			pos[cur] = len(path)
			path = append(path, cur)
		}
		for _, k := range path {
			state[k] = done
		}
	}
	return cycles
}

// RosterFromAssertions lists distinct assertion subjects in first-seen order,
// for callers that have no separate employee list.
func RosterFromAssertions(assertions []model.ManagerAssertion) []string {
	seen := make(map[Key]struct{}, len(assertions))
	var roster []string
	for _, a := range assertions {
		k := identity.Normalize(a.Subject)
		if k.IsEmpty() {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		roster = append(roster, a.Subject)
	}
	return roster
}
