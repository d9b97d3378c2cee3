// Package renumeracao recomputes numbers and labels of dispositivos after
// structural edits, following Brazilian legislative drafting practice (Lei
// Complementar nº 95/1998): dispositivos existing in the norm keep their
// numbers, and new ones are fitted around them.
//
// The convention applied inside one numbering scope is:
//
//   - no anchors at all: new dispositivos are numbered 1, 2, 3...
//   - before the first anchor: 1, 2... and each must stay below the anchor;
//   - between two anchors: the previous anchor plus the next suffix letter
//     (1 -> 1-A, 1-B), each staying below the next anchor;
//   - after the last anchor: the following plain numbers (2 -> 3, 2-A -> 3).
//
// Anchors are dispositivos existing in the norm and dispositivos numbered
// explicitly by the author. A number that breaks the strict ordering of a
// scope is reported as a NumberingConflict and nothing is written. An anchor
// whose token cannot be parsed yields an error wrapping
// dispositivo.ErrNumeroInvalido instead.
package renumeracao

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/coolbeans/emenda/pkg/dispositivo"
)

// ErrNumberingConflict is matched by every *ConflictError.
var ErrNumberingConflict = errors.New("numbering conflict")

// ConflictError reports a scope whose numbering cannot be completed without
// duplicating or reordering an anchored number.
type ConflictError struct {
	Escopo dispositivo.Escopo
	Numero string
	Nodes  []dispositivo.ID
	Motivo string
}

func (conflictError *ConflictError) Error() string {
	ids := make([]string, len(conflictError.Nodes))
	for i, id := range conflictError.Nodes {
		ids[i] = string(id)
	}
	return fmt.Sprintf("numbering conflict in %s of %s: %s %q (%s)",
		conflictError.Escopo.Tipo, conflictError.Escopo.Dono, conflictError.Motivo,
		conflictError.Numero, strings.Join(ids, ", "))
}

// Unwrap lets errors.Is match ErrNumberingConflict.
func (conflictError *ConflictError) Unwrap() error {
	return ErrNumberingConflict
}

// Engine recomputes numbering. It holds no tree state and may be shared.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an engine. A nil logger disables logging.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Renumber recomputes the scopes marked dirty in the tree and clears them.
func (engine *Engine) Renumber(tree *dispositivo.Tree) (*dispositivo.Tree, error) {
	return engine.renumberScopes(tree, tree.Sujos())
}

// RenumberAll recomputes every scope of the tree regardless of dirty marks.
func (engine *Engine) RenumberAll(tree *dispositivo.Tree) (*dispositivo.Tree, error) {
	escopos := tree.Escopos()
	seen := make(map[dispositivo.Escopo]bool, len(escopos))
	for _, escopo := range escopos {
		seen[escopo] = true
	}
	for _, escopo := range tree.Sujos() {
		if !seen[escopo] {
			escopos = append(escopos, escopo)
		}
	}
	return engine.renumberScopes(tree, escopos)
}

func (engine *Engine) renumberScopes(tree *dispositivo.Tree, escopos []dispositivo.Escopo) (*dispositivo.Tree, error) {
	builder := tree.Edit()
	var conflicts []error

	for _, escopo := range escopos {
		membros := tree.Membros(escopo)
		numeros, err := engine.planScope(tree, escopo, membros)
		if err != nil {
			conflicts = append(conflicts, err)
			continue
		}

		unico := len(membros) == 1
		for i, id := range membros {
			rotulo := dispositivo.Rotulo(escopo.Tipo, numeros[i], unico)
			node, _ := tree.Node(id)
			if node.Numero == numeros[i] && node.Rotulo == rotulo {
				continue
			}
			numero := numeros[i]
			if err := builder.Update(id, func(node *dispositivo.Node) {
				node.Numero = numero
				node.Rotulo = rotulo
			}); err != nil {
				return tree, err
			}
		}
		builder.Limpar(escopo)
		engine.logger.Debug("Renumbered scope",
			zap.String("dono", string(escopo.Dono)),
			zap.String("tipo", string(escopo.Tipo)),
			zap.Int("membros", len(membros)))
	}

	if len(conflicts) > 0 {
		engine.logger.Warn("Renumbering failed", zap.Error(errors.Join(conflicts...)))
		return tree, errors.Join(conflicts...)
	}
	return builder.Commit(), nil
}

// planScope computes the final numbering token of every member of a scope.
func (engine *Engine) planScope(tree *dispositivo.Tree, escopo dispositivo.Escopo, membros []dispositivo.ID) ([]string, error) {
	nodes := make([]dispositivo.Node, len(membros))
	for i, id := range membros {
		nodes[i], _ = tree.Node(id)
	}

	// nextAnchor[i] is the index of the first anchor after position i.
	nextAnchor := make([]int, len(nodes))
	next := -1
	for i := len(nodes) - 1; i >= 0; i-- {
		nextAnchor[i] = next
		if nodes[i].Ancora() {
			next = i
		}
	}

	parsed := make([]dispositivo.Numero, len(nodes))
	for i, node := range nodes {
		if !node.Ancora() {
			continue
		}
		numero, err := dispositivo.ParseNumero(escopo.Tipo, node.Numero)
		if err != nil {
			return nil, fmt.Errorf("dispositivo %s in %s of %s: %w", node.ID, escopo.Tipo, escopo.Dono, err)
		}
		parsed[i] = numero
	}

	numeros := make([]string, len(nodes))
	var previous *dispositivo.Numero
	previousIndex := -1
	seenAnchor := false
	for i, node := range nodes {
		var atual dispositivo.Numero
		switch {
		case node.Ancora():
			atual = parsed[i]
			seenAnchor = true
		case previous == nil:
			atual = dispositivo.Numero{Base: 1}
		case !seenAnchor || nextAnchor[i] < 0:
			atual = previous.ProximaBase()
		default:
			atual = previous.ProximoSufixo()
		}

		if previous != nil && atual.Compare(*previous) <= 0 {
			return nil, &ConflictError{
				Escopo: escopo,
				Numero: atual.Format(escopo.Tipo),
				Nodes:  []dispositivo.ID{nodes[previousIndex].ID, node.ID},
				Motivo: "number does not follow its predecessor",
			}
		}
		if !node.Ancora() && nextAnchor[i] >= 0 && atual.Compare(parsed[nextAnchor[i]]) >= 0 {
			return nil, &ConflictError{
				Escopo: escopo,
				Numero: atual.Format(escopo.Tipo),
				Nodes:  []dispositivo.ID{node.ID, nodes[nextAnchor[i]].ID},
				Motivo: "computed number collides with a pinned dispositivo",
			}
		}

		if node.Ancora() {
			numeros[i] = node.Numero
		} else {
			numeros[i] = atual.Format(escopo.Tipo)
		}
		copied := atual
		previous = &copied
		previousIndex = i
	}
	return numeros, nil
}
