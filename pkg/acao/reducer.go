package acao

import (
	"fmt"
	"slices"

	"github.com/coolbeans/emenda/pkg/dispositivo"
)

// Apply returns the tree that results from applying one command. The input
// tree is never modified. Structural commands mark the numbering scopes they
// touch as dirty; relabeling is left to the renumbering engine, which the
// caller runs as a separate step.
func Apply(tree *dispositivo.Tree, action ElementoAction) (*dispositivo.Tree, error) {
	if _, ok := Lookup(action.Type); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}

	atual, err := tree.Resolve(action.Atual)
	if err != nil {
		return nil, err
	}
	if atual.Tipo == dispositivo.Articulacao && action.Type != AdicionarElemento {
		return nil, fmt.Errorf("%w: %s cannot target the root", ErrAcaoInvalida, action.Type)
	}

	builder := tree.Edit()
	switch action.Type {
	case RenumerarElemento:
		err = renumerar(builder, atual, action.payload())
	case AdicionarElemento:
		err = adicionar(builder, atual, action.payload())
	case RemoverElemento:
		err = remover(builder, atual)
	case SuprimirElemento:
		err = marcarSubarvore(builder, tree, atual, SuprimirElemento)
	case RestaurarElemento:
		err = marcarSubarvore(builder, tree, atual, RestaurarElemento)
	case MoverElementoAcima:
		err = mover(builder, tree, atual, -1)
	case MoverElementoAbaixo:
		err = mover(builder, tree, atual, 1)
	case AtualizarTexto:
		err = atualizarTexto(builder, atual, action.payload())
	}
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", action.Type, atual.ID, err)
	}
	return builder.Commit(), nil
}

func renumerar(builder *dispositivo.Builder, atual dispositivo.Node, novo Novo) error {
	existente := atual.ExistenteNaNorma
	if novo.ExistenteNaNorma != nil {
		existente = *novo.ExistenteNaNorma
	}
	if novo.Numero == "" && existente {
		return fmt.Errorf("%w: a dispositivo existing in the norm needs a number", ErrAcaoInvalida)
	}

	if err := builder.Update(atual.ID, func(node *dispositivo.Node) {
		if node.ExistenteNaNorma {
			if node.NumeroOriginal == "" && node.Numero != novo.Numero {
				node.NumeroOriginal = node.Numero
			}
			if node.NumeroOriginal == novo.Numero {
				node.NumeroOriginal = ""
			}
		}
		node.Numero = novo.Numero
		node.NumeracaoExplicita = novo.Numero != ""
		node.ExistenteNaNorma = existente
		node.RecalcularSituacao()
	}); err != nil {
		return err
	}
	builder.MarcarSujo(atual.ID)
	return nil
}

func adicionar(builder *dispositivo.Builder, atual dispositivo.Node, novo Novo) error {
	if novo.ID == "" {
		return fmt.Errorf("%w: inserted node needs an id", ErrAcaoInvalida)
	}
	tipo := novo.Tipo
	if tipo == "" {
		tipo = atual.Tipo
	}
	if !tipo.Valid() || tipo == dispositivo.Articulacao {
		return fmt.Errorf("%w: cannot insert a %q", ErrAcaoInvalida, tipo)
	}
	posicao := novo.Posicao
	if posicao == "" {
		posicao = dispositivo.PosicaoDepois
	}
	if atual.Situacao == dispositivo.SituacaoSuprimido && posicao == dispositivo.PosicaoDentro {
		return fmt.Errorf("%w: cannot insert into a suppressed dispositivo", ErrAcaoInvalida)
	}

	node := dispositivo.Node{
		ID:                 novo.ID,
		Tipo:               tipo,
		Numero:             novo.Numero,
		NumeracaoExplicita: novo.Numero != "",
		Situacao:           dispositivo.SituacaoAdicionado,
	}
	if novo.ExistenteNaNorma != nil {
		node.ExistenteNaNorma = *novo.ExistenteNaNorma
	}
	if novo.Texto != nil {
		node.Texto = *novo.Texto
	}
	return builder.Insert(atual.ID, posicao, node)
}

func remover(builder *dispositivo.Builder, atual dispositivo.Node) error {
	if atual.ExistenteNaNorma {
		return fmt.Errorf("%w: dispositivos existing in the norm are suppressed, not removed", ErrAcaoInvalida)
	}
	return builder.Remove(atual.ID)
}

// marcarSubarvore suppresses or restores a node existing in the norm together
// with its descendants. Suppressed nodes keep their numbers; restored nodes
// get back the norm's wording and number.
func marcarSubarvore(builder *dispositivo.Builder, tree *dispositivo.Tree, atual dispositivo.Node, tipo ActionType) error {
	if !atual.ExistenteNaNorma {
		return fmt.Errorf("%w: only dispositivos existing in the norm can be suppressed or restored", ErrAcaoInvalida)
	}
	if tipo == RestaurarElemento && atual.Situacao == dispositivo.SituacaoOriginal {
		return fmt.Errorf("%w: dispositivo is unchanged", ErrAcaoInvalida)
	}

	var updateErr error
	tree.WalkFrom(atual.ID, func(visited dispositivo.Node) bool {
		if updateErr != nil {
			return false
		}
		if tipo == RestaurarElemento && visited.NumeroOriginal != "" {
			builder.MarcarSujo(visited.ID)
		}
		updateErr = builder.Update(visited.ID, func(node *dispositivo.Node) {
			if tipo == SuprimirElemento {
				if node.ExistenteNaNorma {
					node.Situacao = dispositivo.SituacaoSuprimido
				}
				return
			}
			if node.TextoOriginal != "" {
				node.Texto, node.TextoOriginal = node.TextoOriginal, ""
			}
			if node.NumeroOriginal != "" {
				node.Numero, node.NumeroOriginal = node.NumeroOriginal, ""
				node.NumeracaoExplicita = false
			}
			if node.Situacao == dispositivo.SituacaoSuprimido {
				node.Situacao = dispositivo.SituacaoOriginal
			}
			node.RecalcularSituacao()
		})
		return true
	})
	return updateErr
}

// mover swaps atual with its adjacent sibling. Two dispositivos of the norm
// keep their relative order; only added dispositivos travel past them.
func mover(builder *dispositivo.Builder, tree *dispositivo.Tree, atual dispositivo.Node, delta int) error {
	filhos := tree.Filhos(atual.Pai)
	index := slices.Index(filhos, atual.ID) + delta
	if index >= 0 && index < len(filhos) {
		vizinho, _ := tree.Node(filhos[index])
		if atual.ExistenteNaNorma && vizinho.ExistenteNaNorma {
			return fmt.Errorf("%w: existing dispositivos keep their relative order", ErrAcaoInvalida)
		}
	}
	return builder.Move(atual.ID, delta)
}

func atualizarTexto(builder *dispositivo.Builder, atual dispositivo.Node, novo Novo) error {
	if novo.Texto == nil {
		return fmt.Errorf("%w: missing text", ErrAcaoInvalida)
	}
	if atual.Situacao == dispositivo.SituacaoSuprimido {
		return fmt.Errorf("%w: cannot edit a suppressed dispositivo", ErrAcaoInvalida)
	}
	texto := *novo.Texto
	return builder.Update(atual.ID, func(node *dispositivo.Node) {
		if node.ExistenteNaNorma {
			original := node.Texto
			if node.TextoOriginal != "" {
				original = node.TextoOriginal
			}
			node.TextoOriginal = original
			if texto == original {
				node.TextoOriginal = ""
			}
		}
		node.Texto = texto
		node.RecalcularSituacao()
	})
}
