// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"container/heap"
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gputypes"
)

// State is the access state of a texture between passes.
type State uint8

// Texture states.
const (
	StateUndefined State = iota
	StateColorAttachment
	StateDepthStencilAttachment
	StateSampled
	StateStorage
	StateCopySrc
	StateCopyDst
	StatePresent
)

var stateNames = [...]string{
	"undefined", "color-attachment", "depth-stencil-attachment",
	"sampled", "storage", "copy-src", "copy-dst", "present",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Usage returns the texture usage a texture needs to be in state s.
func (s State) Usage() gputypes.TextureUsage {
	switch s {
	case StateColorAttachment, StateDepthStencilAttachment:
		return gputypes.TextureUsageRenderAttachment
	case StateSampled:
		return gputypes.TextureUsageTextureBinding
	case StateStorage:
		return gputypes.TextureUsageStorageBinding
	case StateCopySrc:
		return gputypes.TextureUsageCopySrc
	case StateCopyDst:
		return gputypes.TextureUsageCopyDst
	}
	return 0
}

// Barrier transitions a resource between states.
type Barrier struct {
	Resource string
	Old      State
	New      State
}

// PassPlan is one pass of a compiled plan.
type PassPlan struct {
	Name string
	// Index is the declaration index of the pass.
	Index    int
	Kind     PassKind
	Barriers []Barrier

	pass *pass
}

// ResourcePlan is one resource of a compiled plan.
type ResourcePlan struct {
	Name      string
	Kind      ResourceKind
	Residency Residency
	Format    gputypes.TextureFormat
	Width     uint32
	Height    uint32
	// Usage is every usage the passes need.
	Usage gputypes.TextureUsage
	// Alias names the resource whose texture this one takes over through
	// a move pass.
	Alias string
	// Used is false when no pass references the resource.
	Used bool
}

// Plan is a compiled render graph.
type Plan struct {
	Passes    []PassPlan
	Resources []ResourcePlan
	// Final lists the transitions after the last pass.
	Final []Barrier

	final map[string]State
}

// Order returns the pass names in execution order.
func (pl *Plan) Order() []string {
	names := make([]string, len(pl.Passes))
	for i, pp := range pl.Passes {
		names[i] = pp.Name
	}
	return names
}

// Resource returns the plan of the named resource.
func (pl *Plan) Resource(name string) (ResourcePlan, bool) {
	for _, r := range pl.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return ResourcePlan{}, false
}

// root follows move aliases from name to the resource owning the texture.
func (pl *Plan) root(name string) string {
	for range pl.Resources {
		rp, ok := pl.Resource(name)
		if !ok || rp.Alias == "" {
			break
		}
		name = rp.Alias
	}
	return name
}

// use is one access of a pass to a resource.
type use struct {
	resource string
	state    State
	writes   bool
}

// uses lists the accesses of ps in view order.
func (ps *pass) uses() []use {
	var out []use
	for _, v := range ps.raster {
		st := StateColorAttachment
		if v.Attachment == AttachmentDepthStencil {
			st = StateDepthStencilAttachment
		}
		out = append(out, use{resource: v.resource, state: st, writes: v.Access.writes()})
	}
	for _, v := range ps.compute {
		st := StateSampled
		if v.Access.writes() {
			st = StateStorage
		}
		out = append(out, use{resource: v.resource, state: st, writes: v.Access.writes()})
	}
	for _, m := range ps.moves {
		out = append(out, use{resource: m.Source, state: StateUndefined}, use{resource: m.Target, state: StateUndefined, writes: true})
	}
	for _, c := range ps.copies {
		out = append(out, use{resource: c.Source, state: StateCopySrc}, use{resource: c.Target, state: StateCopyDst, writes: true})
	}
	return out
}

// compile resolves the declared graph into a plan.
func (p *Pipeline) compile() (*Plan, error) {
	if err := p.verify(); err != nil {
		return nil, err
	}
	order, err := p.order()
	if err != nil {
		return nil, err
	}

	plan := &Plan{final: make(map[string]State)}
	usage := make(map[string]gputypes.TextureUsage)
	used := make(map[string]bool)
	alias := make(map[string]string)
	for _, idx := range order {
		ps := p.passes[idx]
		for _, m := range ps.moves {
			alias[m.Target] = m.Source
		}
		for _, u := range ps.uses() {
			used[u.resource] = true
			usage[u.resource] |= u.state.Usage()
		}
	}
	// A moved-to resource shares the texture of its source.
	for target := range alias {
		src := target
		for range alias {
			if alias[src] == "" {
				break
			}
			src = alias[src]
		}
		usage[src] |= usage[target]
	}

	// Starting states depend on whether the pool can keep each texture,
	// so they are resolved after usage is known.
	state := make(map[string]State)
	for _, r := range p.resources {
		state[r.name] = p.pool.carried(r, usage[r.name])
	}
	for _, idx := range order {
		ps := p.passes[idx]
		pp := PassPlan{Name: ps.name, Index: ps.index, Kind: ps.kind, pass: ps}
		for _, m := range ps.moves {
			state[m.Target] = state[m.Source]
		}
		for _, u := range ps.uses() {
			if u.state == StateUndefined {
				continue
			}
			if cur := state[u.resource]; cur != u.state {
				pp.Barriers = append(pp.Barriers, Barrier{Resource: u.resource, Old: cur, New: u.state})
				state[u.resource] = u.state
			}
		}
		plan.Passes = append(plan.Passes, pp)
	}

	for _, r := range p.resources {
		if r.residency == Backbuffer && used[r.name] && state[r.name] != StatePresent {
			plan.Final = append(plan.Final, Barrier{Resource: r.name, Old: state[r.name], New: StatePresent})
			state[r.name] = StatePresent
		}
	}
	for _, r := range p.resources {
		plan.Resources = append(plan.Resources, ResourcePlan{
			Name: r.name, Kind: r.kind, Residency: r.residency,
			Format: r.format, Width: r.width, Height: r.height,
			Usage: usage[r.name], Alias: alias[r.name], Used: used[r.name],
		})
		plan.final[r.name] = state[r.name]
	}
	return plan, nil
}

// verify checks every view, pair and queue command against the declared
// resources.
func (p *Pipeline) verify() error {
	var errs []error
	moved := make(map[string]string)
	for _, ps := range p.passes {
		fail := func(err error) { errs = append(errs, &PassError{Pass: ps.name, Err: err}) }
		lookup := func(name string) *resource {
			r, ok := p.byName[name]
			if !ok {
				fail(fmt.Errorf("%w: %q", ErrUnknownResource, name))
			}
			return r
		}

		if ps.kind == PassRaster && len(ps.raster) == 0 {
			fail(fmt.Errorf("%w: raster pass without attachments", ErrInvalidView))
		}
		for _, v := range ps.raster {
			r := lookup(v.resource)
			if r == nil {
				continue
			}
			if (v.Attachment == AttachmentDepthStencil) != (r.kind == ResourceDepthStencil) {
				fail(fmt.Errorf("%w: %s %q used as attachment %d", ErrInvalidView, r.kind, r.name, v.Attachment))
			}
		}
		for _, v := range ps.compute {
			if r := lookup(v.resource); r != nil && r.residency == Backbuffer && v.Access.writes() {
				fail(fmt.Errorf("%w: backbuffer %q written by compute view", ErrInvalidView, r.name))
			}
		}
		for _, q := range ps.queues {
			for _, c := range q.commands {
				if c.Kind == CommandClear && !ps.attaches(c.Target) {
					fail(fmt.Errorf("%w: clear of %q which is not a color attachment of the pass", ErrInvalidView, c.Target))
				}
			}
		}
		for _, m := range ps.moves {
			src, dst := lookup(m.Source), lookup(m.Target)
			if src == nil || dst == nil {
				continue
			}
			switch {
			case src == dst:
				fail(fmt.Errorf("%w: move of %q onto itself", ErrIncompatible, src.name))
			case src.format != dst.format || src.width != dst.width || src.height != dst.height:
				fail(fmt.Errorf("%w: move %q -> %q", ErrIncompatible, src.name, dst.name))
			case src.residency == Backbuffer || src.residency == External:
				fail(fmt.Errorf("%w: move source %q is %s", ErrIncompatible, src.name, src.residency))
			case dst.residency != Managed && dst.residency != Memoryless:
				fail(fmt.Errorf("%w: move target %q is %s", ErrIncompatible, dst.name, dst.residency))
			case moved[dst.name] != "":
				fail(fmt.Errorf("%w: %q is moved into twice", ErrIncompatible, dst.name))
			case movesInto(moved, src.name, dst.name):
				fail(fmt.Errorf("%w: %q was moved into %q", ErrIncompatible, dst.name, src.name))
			default:
				moved[dst.name] = src.name
			}
		}
		for _, c := range ps.copies {
			src, dst := lookup(c.Source), lookup(c.Target)
			if src == nil || dst == nil {
				continue
			}
			if src == dst {
				fail(fmt.Errorf("%w: copy of %q onto itself", ErrIncompatible, src.name))
			}
		}
	}
	return errors.Join(errs...)
}

// movesInto reports whether the contents of from already reach to through
// earlier moves.
func movesInto(moved map[string]string, to, from string) bool {
	for cur, n := to, 0; cur != "" && n <= len(moved); cur, n = moved[cur], n+1 {
		if cur == from {
			return true
		}
	}
	return false
}

func (ps *pass) attaches(name string) bool {
	for _, v := range ps.raster {
		if v.resource == name && v.Attachment == AttachmentRenderTarget {
			return true
		}
	}
	return false
}

// order sorts passes topologically. For every resource, writers run in
// declaration order and pure readers run after every writer. Ties between
// ready passes are broken by declaration order.
func (p *Pipeline) order() ([]int, error) {
	n := len(p.passes)
	succ := make([][]int, n)
	indeg := make([]int, n)
	edges := make(map[[2]int]bool)
	link := func(from, to int) {
		if from == to || edges[[2]int{from, to}] {
			return
		}
		edges[[2]int{from, to}] = true
		succ[from] = append(succ[from], to)
		indeg[to]++
	}

	writers := make(map[string][]int)
	readers := make(map[string][]int)
	for i, ps := range p.passes {
		for _, u := range ps.uses() {
			if u.writes {
				if !slices.Contains(writers[u.resource], i) {
					writers[u.resource] = append(writers[u.resource], i)
				}
			} else if !slices.Contains(readers[u.resource], i) {
				readers[u.resource] = append(readers[u.resource], i)
			}
		}
	}
	for _, r := range p.resources {
		ws := writers[r.name]
		for i := 1; i < len(ws); i++ {
			link(ws[i-1], ws[i])
		}
		for _, w := range ws {
			for _, rd := range readers[r.name] {
				if !slices.Contains(ws, rd) {
					link(w, rd)
				}
			}
		}
	}

	ready := &indexHeap{}
	for i := range n {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}
	order := make([]int, 0, n)
	for ready.Len() > 0 {
		i := heap.Pop(ready).(int)
		order = append(order, i)
		for _, j := range succ[i] {
			indeg[j]--
			if indeg[j] == 0 {
				heap.Push(ready, j)
			}
		}
	}
	if len(order) < n {
		return nil, p.cycle(succ, indeg)
	}
	return order, nil
}

// cycle finds a cycle among the passes left with incoming edges.
func (p *Pipeline) cycle(succ [][]int, indeg []int) error {
	const (
		unvisited = iota
		active
		done
	)
	mark := make([]int, len(succ))
	var stack []int
	var found []int
	var visit func(i int) bool
	visit = func(i int) bool {
		mark[i] = active
		stack = append(stack, i)
		for _, j := range succ[i] {
			if indeg[j] == 0 {
				continue
			}
			switch mark[j] {
			case active:
				found = stack[slices.Index(stack, j):]
				return true
			case unvisited:
				if visit(j) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		mark[i] = done
		return false
	}
	for i := range succ {
		if indeg[i] > 0 && mark[i] == unvisited && visit(i) {
			break
		}
	}
	names := make([]string, len(found))
	for k, i := range found {
		names[k] = p.passes[i].name
	}
	err := &CycleError{Passes: names}
	gfx.Logger().Error("render: dependency cycle", "passes", names)
	return err
}

// indexHeap is a min-heap of pass indices.
type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }

func (h *indexHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
