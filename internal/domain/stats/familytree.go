package stats

import (
	"cmp"
	"slices"

	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/types"
)

const (
	unvisited = iota
	visiting
	visited
)

// FamilyTree builds the invite forest of people. Anyone without a usable
// inviter hangs off the synthetic root. An invite cycle is cut at its
// smallest member, which then hangs off the root as well. Every person
// appears exactly once.
func FamilyTree(people []model.Person, opts ...Option) types.FamilyTree {
	o := buildOptions(opts)

	names := make(map[model.PersonID]string, len(people))
	ids := make([]model.PersonID, 0, len(people))
	for _, p := range people {
		if _, dup := names[p.ID]; dup || p.ID == "" {
			continue
		}
		names[p.ID] = p.Name
		if p.Name == "" {
			names[p.ID] = o.names.Name(p.ID)
		}
		ids = append(ids, p.ID)
	}
	slices.Sort(ids)

	tree := types.FamilyTree{Diagnostics: []types.TreeDiagnostic{}}
	parent := make(map[model.PersonID]model.PersonID, len(people))
	for _, p := range people {
		if p.InvitedBy == "" || names[p.ID] == "" {
			continue
		}
		switch _, known := names[p.InvitedBy]; {
		case p.InvitedBy == p.ID:
			tree.Diagnostics = append(tree.Diagnostics, types.TreeDiagnostic{
				Kind: types.DiagnosticSelfInvite, People: []string{names[p.ID]},
			})
		case !known:
			tree.Diagnostics = append(tree.Diagnostics, types.TreeDiagnostic{
				Kind: types.DiagnosticUnknownInviter, People: []string{names[p.ID], string(p.InvitedBy)},
			})
		default:
			if _, set := parent[p.ID]; !set {
				parent[p.ID] = p.InvitedBy
			}
		}
	}

	state := make(map[model.PersonID]int, len(ids))
	for _, id := range ids {
		var path []model.PersonID
		var cycleAt model.PersonID
		for cur := id; ; {
			if s := state[cur]; s == visiting {
				cycleAt = cur
				break
			} else if s == visited {
				break
			}
			state[cur] = visiting
			path = append(path, cur)
			next, ok := parent[cur]
			if !ok {
				break
			}
			cur = next
		}
		if cycleAt != "" {
			members := slices.Clone(path[slices.Index(path, cycleAt):])
			slices.Sort(members)
			delete(parent, members[0])
			diag := types.TreeDiagnostic{Kind: types.DiagnosticCycle, People: make([]string, len(members))}
			for i, m := range members {
				diag.People[i] = names[m]
			}
			tree.Diagnostics = append(tree.Diagnostics, diag)
		}
		for _, p := range path {
			state[p] = visited
		}
	}

	children := make(map[model.PersonID][]model.PersonID)
	var roots []model.PersonID
	for _, id := range ids {
		if par, ok := parent[id]; ok {
			children[par] = append(children[par], id)
		} else {
			roots = append(roots, id)
		}
	}

	placed := make(map[model.PersonID]struct{}, len(ids))
	var build func(id model.PersonID) types.FamilyTreeNode
	build = func(id model.PersonID) types.FamilyTreeNode {
		placed[id] = struct{}{}
		n := types.FamilyTreeNode{ID: id, Name: names[id], Children: []types.FamilyTreeNode{}}
		for _, c := range children[id] {
			if _, done := placed[c]; done {
				continue
			}
			child := build(c)
			n.Descendants += child.Descendants + 1
			n.Children = append(n.Children, child)
		}
		sortNodes(n.Children)
		return n
	}

	tree.Root = types.FamilyTreeNode{Name: types.RootName, Children: []types.FamilyTreeNode{}}
	for _, r := range roots {
		child := build(r)
		tree.Root.Descendants += child.Descendants + 1
		tree.Root.Children = append(tree.Root.Children, child)
	}
	sortNodes(tree.Root.Children)
	return tree
}

func sortNodes(nodes []types.FamilyTreeNode) {
	slices.SortFunc(nodes, func(a, b types.FamilyTreeNode) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
