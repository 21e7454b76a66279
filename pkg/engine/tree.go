package engine

import (
	"sort"

	"github.com/dukex/taskflow/pkg/models"
)

// stepTree indexes a workflow's flat step rows once per execution.
type stepTree struct {
	byID     map[string]*models.Step
	children map[string][]*models.Step
	roots    []*models.Step
}

func newStepTree(steps []*models.Step) *stepTree {
	ordered := make([]*models.Step, 0, len(steps))
	for _, step := range steps {
		if step != nil {
			ordered = append(ordered, step)
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	tree := &stepTree{
		byID:     make(map[string]*models.Step, len(ordered)),
		children: make(map[string][]*models.Step),
		roots:    make([]*models.Step, 0),
	}

	for _, step := range ordered {
		tree.byID[step.ID] = step

		if step.IsTopLevel() {
			tree.roots = append(tree.roots, step)

			continue
		}

		tree.children[*step.ParentID] = append(tree.children[*step.ParentID], step)
	}

	return tree
}

func (t *stepTree) step(id string) (*models.Step, bool) {
	step, ok := t.byID[id]

	return step, ok
}

func (t *stepTree) childrenOf(id string) []*models.Step {
	return t.children[id]
}
