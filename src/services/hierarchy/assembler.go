package hierarchy

import (
	"slices"

	"orghierarchy/src/domain"
)

// AssemblyReport lista as anomalias encontradas na montagem. Nenhuma delas
// impede a montagem; o serviço apenas registra em log.
type AssemblyReport struct {
	SelfLoops    []string
	DanglingRefs []domain.Edge
	BackEdges    []domain.Edge
}

func (r AssemblyReport) Empty() bool {
	return len(r.SelfLoops) == 0 && len(r.DanglingRefs) == 0 && len(r.BackEdges) == 0
}

func (r *AssemblyReport) merge(other AssemblyReport) {
	for _, id := range other.SelfLoops {
		if !slices.Contains(r.SelfLoops, id) {
			r.SelfLoops = append(r.SelfLoops, id)
		}
	}
	for _, e := range other.DanglingRefs {
		if !slices.Contains(r.DanglingRefs, e) {
			r.DanglingRefs = append(r.DanglingRefs, e)
		}
	}
	for _, e := range other.BackEdges {
		if !slices.Contains(r.BackEdges, e) {
			r.BackEdges = append(r.BackEdges, e)
		}
	}
}

// BuildTree transforma o fecho plano numa árvore aninhada enraizada em rootID.
//
// Filhos aparecem na ordem de ChildIDs. Um nó alcançável por vários pais é o mesmo
// ponteiro sob cada um deles. Arestas que fecham ciclo com a raiz (back edges) são
// descartadas, então a saída é sempre finita. Raiz ausente devolve nil.
func BuildTree(nodes []domain.FlatNode, rootID string) (*domain.TreeNode, AssemblyReport) {
	allNodes, report := wireNodes(nodes)

	root, ok := allNodes[rootID]
	if !ok {
		return nil, report
	}

	report.BackEdges = pruneBackEdges(root)
	return root, report
}

// BuildForest monta uma árvore por raiz pedida, na ordem pedida. Cada árvore usa
// seu próprio mapa de nós, então árvores distintas nunca compartilham ponteiros.
// Raízes ausentes do conjunto plano são ignoradas.
func BuildForest(nodes []domain.FlatNode, rootIDs []string) ([]*domain.TreeNode, AssemblyReport) {
	index := make(map[string]domain.FlatNode, len(nodes))
	for _, n := range nodes {
		if _, dup := index[n.ID]; !dup {
			index[n.ID] = n
		}
	}

	forest := make([]*domain.TreeNode, 0, len(rootIDs))
	var report AssemblyReport

	for _, rootID := range rootIDs {
		tree, treeReport := BuildTree(reachableFrom(index, rootID), rootID)
		report.merge(treeReport)
		if tree != nil {
			forest = append(forest, tree)
		}
	}

	return forest, report
}

func wireNodes(nodes []domain.FlatNode) (map[string]*domain.TreeNode, AssemblyReport) {
	var report AssemblyReport

	// Criar todos os nós
	allNodes := make(map[string]*domain.TreeNode, len(nodes))
	for _, n := range nodes {
		if _, dup := allNodes[n.ID]; dup {
			continue
		}
		allNodes[n.ID] = &domain.TreeNode{
			ID:       n.ID,
			Name:     n.Name,
			Children: make([]*domain.TreeNode, 0, len(n.ChildIDs)),
		}
	}

	// Conectar filhos por lookup, sem recursão
	wired := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if _, done := wired[n.ID]; done {
			continue
		}
		wired[n.ID] = struct{}{}

		parent := allNodes[n.ID]
		attached := make(map[string]struct{}, len(n.ChildIDs))

		for _, childID := range n.ChildIDs {
			if childID == n.ID {
				report.SelfLoops = append(report.SelfLoops, n.ID)
				continue
			}
			if _, dup := attached[childID]; dup {
				continue
			}

			child, ok := allNodes[childID]
			if !ok {
				report.DanglingRefs = append(report.DanglingRefs, domain.Edge{ParentID: n.ID, ChildID: childID})
				continue
			}

			attached[childID] = struct{}{}
			parent.Children = append(parent.Children, child)
		}
	}

	return allNodes, report
}

const (
	unvisited = iota
	onPath
	finished
)

// pruneBackEdges faz uma DFS iterativa a partir da raiz e remove toda aresta que
// aponta para um nó ainda no caminho atual. Nós já finalizados não são revisitados.
func pruneBackEdges(root *domain.TreeNode) []domain.Edge {
	type frame struct {
		node *domain.TreeNode
		next int
	}

	var backEdges []domain.Edge
	state := map[*domain.TreeNode]int{root: onPath}
	stack := []frame{{node: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.next >= len(top.node.Children) {
			state[top.node] = finished
			stack = stack[:len(stack)-1]
			continue
		}

		child := top.node.Children[top.next]
		switch state[child] {
		case onPath:
			backEdges = append(backEdges, domain.Edge{ParentID: top.node.ID, ChildID: child.ID})
			top.node.Children = slices.Delete(top.node.Children, top.next, top.next+1)
		case finished:
			top.next++
		default:
			top.next++
			state[child] = onPath
			stack = append(stack, frame{node: child})
		}
	}

	return backEdges
}

func reachableFrom(index map[string]domain.FlatNode, rootID string) []domain.FlatNode {
	root, ok := index[rootID]
	if !ok {
		return nil
	}

	visited := map[string]struct{}{rootID: {}}
	queue := []domain.FlatNode{root}
	reachable := make([]domain.FlatNode, 0)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		reachable = append(reachable, current)

		for _, childID := range current.ChildIDs {
			if _, seen := visited[childID]; seen {
				continue
			}
			child, exists := index[childID]
			if !exists {
				continue
			}
			visited[childID] = struct{}{}
			queue = append(queue, child)
		}
	}

	return reachable
}
