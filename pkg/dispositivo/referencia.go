package dispositivo

import (
	"errors"
	"fmt"
)

// ErrReferenceNotFound is returned when a Referencia no longer resolves
// against the tree it is used with. Callers must re-derive the reference from
// the current snapshot before retrying.
var ErrReferenceNotFound = errors.New("reference not found")

// Referencia pins a node at the moment it was derived from a snapshot.
type Referencia struct {
	ID     ID     `json:"id"`
	Tipo   Tipo   `json:"tipo"`
	Versao uint64 `json:"versao"`
}

// String returns a compact representation for logs and error messages.
func (referencia Referencia) String() string {
	return fmt.Sprintf("%s(%s)@%d", referencia.Tipo, referencia.ID, referencia.Versao)
}

// ReferenceError describes why a Referencia failed to resolve.
type ReferenceError struct {
	Referencia Referencia
	Motivo     string
}

func (referenceError *ReferenceError) Error() string {
	return fmt.Sprintf("reference %s: %s", referenceError.Referencia, referenceError.Motivo)
}

// Unwrap lets errors.Is match ErrReferenceNotFound.
func (referenceError *ReferenceError) Unwrap() error {
	return ErrReferenceNotFound
}

// Referencia derives a reference to a node of this snapshot.
func (tree *Tree) Referencia(id ID) (Referencia, error) {
	node, ok := tree.nodes[id]
	if !ok {
		return Referencia{}, &ReferenceError{Referencia: Referencia{ID: id, Versao: tree.versao}, Motivo: "no such node"}
	}
	return Referencia{ID: id, Tipo: node.Tipo, Versao: tree.versao}, nil
}

// Resolve returns the node a reference points to. References derived from
// another snapshot are stale and never resolve, even when the id still exists.
func (tree *Tree) Resolve(referencia Referencia) (Node, error) {
	if referencia.Versao != tree.versao {
		return Node{}, &ReferenceError{
			Referencia: referencia,
			Motivo:     fmt.Sprintf("stale: derived from version %d, tree is at %d", referencia.Versao, tree.versao),
		}
	}
	node, ok := tree.nodes[referencia.ID]
	if !ok {
		return Node{}, &ReferenceError{Referencia: referencia, Motivo: "no such node"}
	}
	if node.Tipo != referencia.Tipo {
		return Node{}, &ReferenceError{Referencia: referencia, Motivo: fmt.Sprintf("node is a %s", node.Tipo)}
	}
	return *node.clone(), nil
}

// RotuloCompleto renders the qualified label of a node from its article down,
// e.g. "art. 2º, § 1º, inciso I". Groupers and nodes outside an article render
// only their own citation form.
func (tree *Tree) RotuloCompleto(id ID) string {
	node, ok := tree.nodes[id]
	if !ok {
		return ""
	}
	chain := []*Node{node}
	for current := node; current.Tipo != Artigo && current.Pai != ""; {
		pai := tree.nodes[current.Pai]
		if pai.Tipo == Articulacao || pai.Tipo.Agrupador() {
			break
		}
		chain = append(chain, pai)
		current = pai
	}

	parts := make([]string, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		parts = append(parts, tree.citacao(chain[i]))
	}
	result := parts[0]
	for _, part := range parts[1:] {
		result += ", " + part
	}
	return result
}

func (tree *Tree) citacao(node *Node) string {
	unico := false
	if node.Tipo == Paragrafo {
		unico = len(tree.Membros(tree.escopoDeNode(node))) == 1
	}
	return Referencial(node.Tipo, node.Numero, unico)
}

// Citacao renders a single node the way it is cited in running text.
func (tree *Tree) Citacao(id ID) string {
	node, ok := tree.nodes[id]
	if !ok {
		return ""
	}
	return tree.citacao(node)
}
