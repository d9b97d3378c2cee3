package dispositivo

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync/atomic"
)

// ErrEstruturaInvalida is returned when an edit would break the containment
// or ordering rules of a legal text.
var ErrEstruturaInvalida = errors.New("invalid dispositivo structure")

// ID is the stable identifier of a node inside a tree.
type ID string

// Situacao records how an amendment affects a dispositivo.
type Situacao string

const (
	SituacaoOriginal   Situacao = "original"
	SituacaoAdicionado Situacao = "adicionado"
	SituacaoModificado Situacao = "modificado"
	SituacaoSuprimido  Situacao = "suprimido"
)

// Node is one dispositivo. Values handed out by a Tree are copies; edits go
// through a Builder.
type Node struct {
	ID     ID     `json:"id"`
	Tipo   Tipo   `json:"tipo"`
	Numero string `json:"numero,omitempty"`
	Rotulo string `json:"rotulo,omitempty"`
	Texto  string `json:"texto,omitempty"`

	// ExistenteNaNorma marks a node that already exists in the norm being amended.
	ExistenteNaNorma bool `json:"existenteNaNorma"`

	// NumeracaoExplicita marks a number typed in by the author. Such nodes are
	// numbering anchors just like nodes existing in the norm.
	NumeracaoExplicita bool `json:"numeracaoExplicita,omitempty"`

	Situacao Situacao `json:"situacao"`

	// TextoOriginal and NumeroOriginal keep the norm's wording and number once
	// an amendment has changed them.
	TextoOriginal  string `json:"textoOriginal,omitempty"`
	NumeroOriginal string `json:"numeroOriginal,omitempty"`

	Pai    ID   `json:"pai,omitempty"`
	Filhos []ID `json:"filhos,omitempty"`
}

// Ancora reports whether the renumbering engine must keep the node's number.
func (node Node) Ancora() bool {
	return node.Numero != "" && (node.ExistenteNaNorma || node.NumeracaoExplicita)
}

// RecalcularSituacao derives the situation of a node that is not suppressed
// from its flags and preserved originals.
func (node *Node) RecalcularSituacao() {
	switch {
	case node.Situacao == SituacaoSuprimido:
	case !node.ExistenteNaNorma:
		node.Situacao = SituacaoAdicionado
	case node.TextoOriginal != "" || node.NumeroOriginal != "":
		node.Situacao = SituacaoModificado
	default:
		node.Situacao = SituacaoOriginal
	}
}

func (node Node) clone() *Node {
	copied := node
	copied.Filhos = slices.Clone(node.Filhos)
	return &copied
}

// Escopo is a numbering scope: the sibling group of one kind under one owner.
// Articles are numbered across the whole text, so their owner is always the root.
type Escopo struct {
	Dono ID   `json:"dono"`
	Tipo Tipo `json:"tipo"`
}

// versoes hands out snapshot versions. Versions are unique across every tree
// of the process, so a reference never resolves against a snapshot it was not
// derived from, even after undo rewinds to an older one.
var versoes atomic.Uint64

func proximaVersao() uint64 {
	return versoes.Add(1)
}

// Tree is an immutable snapshot of a dispositivo arena.
type Tree struct {
	raiz   ID
	nodes  map[ID]*Node
	versao uint64
	sujos  map[Escopo]struct{}
}

// Raiz returns the root identifier.
func (tree *Tree) Raiz() ID {
	return tree.raiz
}

// Versao returns the snapshot version. Every committed edit yields a new,
// strictly greater version.
func (tree *Tree) Versao() uint64 {
	return tree.versao
}

// Len returns the number of nodes, root included.
func (tree *Tree) Len() int {
	return len(tree.nodes)
}

// Node returns a copy of the node with the given id.
func (tree *Tree) Node(id ID) (Node, bool) {
	node, ok := tree.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *node.clone(), true
}

// Has reports whether the id resolves in this snapshot.
func (tree *Tree) Has(id ID) bool {
	_, ok := tree.nodes[id]
	return ok
}

// Filhos returns the ordered children of a node.
func (tree *Tree) Filhos(id ID) []ID {
	node, ok := tree.nodes[id]
	if !ok {
		return nil
	}
	return slices.Clone(node.Filhos)
}

// Ancestrais returns the ancestors of a node from its parent up to the root.
func (tree *Tree) Ancestrais(id ID) []Node {
	var ancestrais []Node
	node, ok := tree.nodes[id]
	for ok && node.Pai != "" {
		node, ok = tree.nodes[node.Pai]
		if ok {
			ancestrais = append(ancestrais, *node.clone())
		}
	}
	return ancestrais
}

// Walk visits nodes depth-first in document order, starting at the root.
// Returning false from visit skips the node's subtree.
func (tree *Tree) Walk(visit func(Node) bool) {
	tree.walkFrom(tree.raiz, visit)
}

// WalkFrom is Walk restricted to the subtree rooted at id.
func (tree *Tree) WalkFrom(id ID, visit func(Node) bool) {
	tree.walkFrom(id, visit)
}

func (tree *Tree) walkFrom(id ID, visit func(Node) bool) {
	node, ok := tree.nodes[id]
	if !ok {
		return
	}
	if !visit(*node.clone()) {
		return
	}
	for _, filho := range node.Filhos {
		tree.walkFrom(filho, visit)
	}
}

// EscopoDe returns the numbering scope a node belongs to.
func (tree *Tree) EscopoDe(id ID) (Escopo, bool) {
	node, ok := tree.nodes[id]
	if !ok || node.Tipo == Articulacao {
		return Escopo{}, false
	}
	return tree.escopoDeNode(node), true
}

func (tree *Tree) escopoDeNode(node *Node) Escopo {
	if node.Tipo == Artigo {
		return Escopo{Dono: tree.raiz, Tipo: Artigo}
	}
	return Escopo{Dono: node.Pai, Tipo: node.Tipo}
}

// Membros returns the nodes of a numbering scope in document order.
func (tree *Tree) Membros(escopo Escopo) []ID {
	if _, ok := tree.nodes[escopo.Dono]; !ok {
		return nil
	}
	var membros []ID
	if escopo.Tipo == Artigo && escopo.Dono == tree.raiz {
		tree.Walk(func(node Node) bool {
			if node.Tipo == Artigo {
				membros = append(membros, node.ID)
				return false
			}
			return true
		})
		return membros
	}
	for _, filho := range tree.nodes[escopo.Dono].Filhos {
		if tree.nodes[filho].Tipo == escopo.Tipo {
			membros = append(membros, filho)
		}
	}
	return membros
}

// Escopos lists every numbering scope present in the tree in document order.
func (tree *Tree) Escopos() []Escopo {
	seen := make(map[Escopo]struct{})
	var escopos []Escopo
	tree.Walk(func(node Node) bool {
		if node.Tipo == Articulacao {
			return true
		}
		escopo := tree.escopoDeNode(tree.nodes[node.ID])
		if _, ok := seen[escopo]; !ok {
			seen[escopo] = struct{}{}
			escopos = append(escopos, escopo)
		}
		return true
	})
	return escopos
}

// Sujos returns the scopes whose numbering must be recomputed, sorted for
// deterministic processing.
func (tree *Tree) Sujos() []Escopo {
	escopos := make([]Escopo, 0, len(tree.sujos))
	for escopo := range tree.sujos {
		escopos = append(escopos, escopo)
	}
	sort.Slice(escopos, func(i, j int) bool {
		if escopos[i].Dono != escopos[j].Dono {
			return escopos[i].Dono < escopos[j].Dono
		}
		return escopos[i].Tipo < escopos[j].Tipo
	})
	return escopos
}

// Edit starts a copy-on-write edit of the snapshot.
func (tree *Tree) Edit() *Builder {
	return &Builder{base: tree}
}

// Builder accumulates edits over a base snapshot. The node map is copied on
// the first write and each node on its first modification, so the base
// snapshot is never touched.
type Builder struct {
	base    *Tree
	nodes   map[ID]*Node
	sujos   map[Escopo]struct{}
	copied  map[ID]bool
	changed bool
}

func (builder *Builder) ensureWritable() {
	if builder.nodes != nil {
		return
	}
	builder.nodes = maps.Clone(builder.base.nodes)
	builder.sujos = maps.Clone(builder.base.sujos)
	if builder.sujos == nil {
		builder.sujos = make(map[Escopo]struct{})
	}
	builder.copied = make(map[ID]bool)
}

func (builder *Builder) lookup(id ID) (*Node, bool) {
	if builder.nodes != nil {
		node, ok := builder.nodes[id]
		return node, ok
	}
	node, ok := builder.base.nodes[id]
	return node, ok
}

func (builder *Builder) writable(id ID) (*Node, bool) {
	builder.ensureWritable()
	node, ok := builder.nodes[id]
	if !ok {
		return nil, false
	}
	if !builder.copied[id] {
		node = node.clone()
		builder.nodes[id] = node
		builder.copied[id] = true
	}
	builder.changed = true
	return node, true
}

func (builder *Builder) view() *Tree {
	if builder.nodes == nil {
		return builder.base
	}
	return &Tree{raiz: builder.base.raiz, nodes: builder.nodes, versao: builder.base.versao, sujos: builder.sujos}
}

// Node returns the current state of a node, including edits made so far.
func (builder *Builder) Node(id ID) (Node, bool) {
	return builder.view().Node(id)
}

// Update changes the content fields of a node. Structural fields (ID, Pai,
// Filhos, Tipo) are restored after update runs; use the structural methods to
// change them.
func (builder *Builder) Update(id ID, update func(*Node)) error {
	node, ok := builder.writable(id)
	if !ok {
		return fmt.Errorf("node %s not found", id)
	}
	pai, filhos, tipo := node.Pai, node.Filhos, node.Tipo
	update(node)
	node.ID, node.Pai, node.Filhos, node.Tipo = id, pai, filhos, tipo
	return nil
}

// MarcarSujo flags the numbering scope of a node for recomputation.
func (builder *Builder) MarcarSujo(id ID) {
	node, ok := builder.lookup(id)
	if !ok || node.Tipo == Articulacao {
		return
	}
	builder.ensureWritable()
	builder.sujos[builder.view().escopoDeNode(node)] = struct{}{}
	builder.changed = true
}

// Limpar clears the dirty flag of a scope.
func (builder *Builder) Limpar(escopo Escopo) {
	builder.ensureWritable()
	if _, ok := builder.sujos[escopo]; ok {
		delete(builder.sujos, escopo)
		builder.changed = true
	}
}

// Posicao tells Insert where to place a node relative to a reference node.
type Posicao string

const (
	PosicaoDepois Posicao = "depois"
	PosicaoAntes  Posicao = "antes"
	// PosicaoDentro appends the node as the last child of its kind's rank.
	PosicaoDentro Posicao = "dentro"
)

// Insert adds a new leaf node next to or inside the reference node. The node's
// Pai and Filhos are set by the builder.
func (builder *Builder) Insert(referencia ID, posicao Posicao, node Node) error {
	if node.ID == "" {
		return fmt.Errorf("%w: new node without id", ErrEstruturaInvalida)
	}
	if _, exists := builder.lookup(node.ID); exists {
		return fmt.Errorf("%w: id %s already in use", ErrEstruturaInvalida, node.ID)
	}
	anchor, ok := builder.lookup(referencia)
	if !ok {
		return fmt.Errorf("node %s not found", referencia)
	}

	var paiID ID
	switch posicao {
	case PosicaoDentro:
		paiID = anchor.ID
	case PosicaoAntes, PosicaoDepois, "":
		if anchor.Pai == "" {
			return fmt.Errorf("%w: cannot place a sibling of the root", ErrEstruturaInvalida)
		}
		paiID = anchor.Pai
	default:
		return fmt.Errorf("%w: unknown position %q", ErrEstruturaInvalida, posicao)
	}

	pai, _ := builder.lookup(paiID)
	if !PodeConter(pai.Tipo, node.Tipo) {
		return fmt.Errorf("%w: %s cannot contain %s", ErrEstruturaInvalida, pai.Tipo, node.Tipo)
	}

	filhos := slices.Clone(pai.Filhos)
	var index int
	switch posicao {
	case PosicaoDentro:
		index = builder.posicaoDentro(pai, node.Tipo)
	case PosicaoAntes:
		index = slices.Index(filhos, anchor.ID)
	default:
		index = slices.Index(filhos, anchor.ID) + 1
	}
	filhos = slices.Insert(filhos, index, node.ID)
	if err := builder.checkOrdem(pai.Tipo, filhos, node); err != nil {
		return err
	}

	builder.ensureWritable()
	created := node.clone()
	created.Pai = paiID
	created.Filhos = nil
	builder.nodes[created.ID] = created
	builder.copied[created.ID] = true

	paiWritable, _ := builder.writable(paiID)
	paiWritable.Filhos = filhos
	builder.MarcarSujo(created.ID)
	return nil
}

func (builder *Builder) posicaoDentro(pai *Node, tipo Tipo) int {
	rank := ordemNoPai(pai.Tipo, tipo)
	index := 0
	for i, filho := range pai.Filhos {
		child, _ := builder.lookup(filho)
		if ordemNoPai(pai.Tipo, child.Tipo) <= rank {
			index = i + 1
		}
	}
	return index
}

// checkOrdem rejects child orders that put a paragraph before a caput inciso.
// extra resolves a node that is not yet stored in the builder.
func (builder *Builder) checkOrdem(paiTipo Tipo, filhos []ID, extra Node) error {
	last := -1
	for _, filho := range filhos {
		tipo := extra.Tipo
		if filho != extra.ID {
			child, _ := builder.lookup(filho)
			tipo = child.Tipo
		}
		rank := ordemNoPai(paiTipo, tipo)
		if rank < last {
			return fmt.Errorf("%w: %s must precede the article's paragraphs", ErrEstruturaInvalida, tipo)
		}
		last = rank
	}
	return nil
}

// Remove deletes a node together with its subtree.
func (builder *Builder) Remove(id ID) error {
	node, ok := builder.lookup(id)
	if !ok {
		return fmt.Errorf("node %s not found", id)
	}
	if node.Pai == "" {
		return fmt.Errorf("%w: cannot remove the root", ErrEstruturaInvalida)
	}

	builder.MarcarSujo(id)
	var subtree []ID
	builder.view().walkFrom(id, func(visited Node) bool {
		subtree = append(subtree, visited.ID)
		return true
	})
	for _, removed := range subtree {
		child, _ := builder.lookup(removed)
		if child.Tipo == Artigo {
			builder.MarcarSujo(removed)
		}
	}

	builder.ensureWritable()
	pai, _ := builder.writable(node.Pai)
	pai.Filhos = slices.DeleteFunc(pai.Filhos, func(filho ID) bool { return filho == id })
	for _, removed := range subtree {
		delete(builder.nodes, removed)
		delete(builder.copied, removed)
		for escopo := range builder.sujos {
			if escopo.Dono == removed {
				delete(builder.sujos, escopo)
			}
		}
	}
	return nil
}

// Move swaps a node with its adjacent sibling: delta -1 moves it up, +1 down.
func (builder *Builder) Move(id ID, delta int) error {
	if delta != -1 && delta != 1 {
		return fmt.Errorf("%w: move delta must be -1 or 1", ErrEstruturaInvalida)
	}
	node, ok := builder.lookup(id)
	if !ok {
		return fmt.Errorf("node %s not found", id)
	}
	if node.Pai == "" {
		return fmt.Errorf("%w: cannot move the root", ErrEstruturaInvalida)
	}
	pai, _ := builder.lookup(node.Pai)
	filhos := slices.Clone(pai.Filhos)
	index := slices.Index(filhos, id)
	target := index + delta
	if target < 0 || target >= len(filhos) {
		return fmt.Errorf("%w: %s is already at the edge of its parent", ErrEstruturaInvalida, id)
	}
	filhos[index], filhos[target] = filhos[target], filhos[index]
	if err := builder.checkOrdem(pai.Tipo, filhos, Node{}); err != nil {
		return err
	}

	paiWritable, _ := builder.writable(node.Pai)
	paiWritable.Filhos = filhos
	for _, moved := range []ID{id, filhos[index]} {
		builder.MarcarSujo(moved)
		builder.view().walkFrom(moved, func(visited Node) bool {
			if visited.Tipo == Artigo {
				builder.MarcarSujo(visited.ID)
				return false
			}
			return true
		})
	}
	return nil
}

// Commit freezes the builder into a new snapshot. A builder without edits
// returns its base snapshot unchanged.
func (builder *Builder) Commit() *Tree {
	if !builder.changed {
		return builder.base
	}
	tree := &Tree{
		raiz:   builder.base.raiz,
		nodes:  builder.nodes,
		versao: proximaVersao(),
		sujos:  builder.sujos,
	}
	builder.nodes, builder.sujos, builder.copied, builder.changed = nil, nil, nil, false
	builder.base = tree
	return tree
}
