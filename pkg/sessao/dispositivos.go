package sessao

import (
	"fmt"
	"slices"

	"github.com/coolbeans/emenda/pkg/acao"
	"github.com/coolbeans/emenda/pkg/dispositivo"
	"github.com/coolbeans/emenda/pkg/emenda"
)

// DispositivosEmenda lists the dispositivos the amendment touches, in
// document order.
func (sessao *Sessao) DispositivosEmenda() []emenda.DispositivoEdit {
	return Diff(sessao.base, sessao.atual)
}

// Diff compares an amended tree with the tree of the norm. Added dispositivos
// carry their parent and preceding sibling; a suppressed subtree is reported
// by its topmost node plus any of its nodes whose wording or number changed.
func Diff(base, atual *dispositivo.Tree) []emenda.DispositivoEdit {
	edits := []emenda.DispositivoEdit{}
	atual.Walk(func(node dispositivo.Node) bool {
		if node.ID == atual.Raiz() {
			return true
		}
		original, existed := base.Node(node.ID)
		switch {
		case !existed:
			edit := editDe(node)
			edit.IDPai = node.Pai
			filhos := atual.Filhos(node.Pai)
			if index := slices.Index(filhos, node.ID); index > 0 {
				edit.IDPosicaoAnterior = filhos[index-1]
			}
			edits = append(edits, edit)
		case node.Situacao == dispositivo.SituacaoSuprimido:
			// Inside a suppressed subtree only reworded or renumbered nodes are kept.
			pai, _ := atual.Node(node.Pai)
			if pai.Situacao != dispositivo.SituacaoSuprimido || original.Texto != node.Texto || original.Numero != node.Numero {
				edits = append(edits, editDe(node))
			}
		case alterado(original, node):
			edits = append(edits, editDe(node))
		}
		return true
	})
	return edits
}

func editDe(node dispositivo.Node) emenda.DispositivoEdit {
	return emenda.DispositivoEdit{
		ID:                 node.ID,
		Tipo:               node.Tipo,
		Numero:             node.Numero,
		Rotulo:             node.Rotulo,
		Texto:              node.Texto,
		Situacao:           node.Situacao,
		ExistenteNaNorma:   node.ExistenteNaNorma,
		NumeracaoExplicita: node.NumeracaoExplicita,
	}
}

func alterado(original, node dispositivo.Node) bool {
	return original.Texto != node.Texto ||
		original.Numero != node.Numero ||
		original.Situacao != node.Situacao ||
		original.ExistenteNaNorma != node.ExistenteNaNorma ||
		original.NumeracaoExplicita != node.NumeracaoExplicita
}

// CarregarDispositivosEmenda rebuilds the amended tree by replaying edits onto
// the tree of the norm. The previous amended tree and its history are
// discarded; on error the session is left unchanged.
func (sessao *Sessao) CarregarDispositivosEmenda(edits []emenda.DispositivoEdit) error {
	// Suppression comes last: a suppressed node no longer accepts children or
	// new wording.
	tree := sessao.base
	for _, edit := range edits {
		next, err := replay(tree, edit)
		if err != nil {
			return fmt.Errorf("failed to load dispositivo %s: %w", edit.ID, err)
		}
		tree = next
	}
	for _, edit := range edits {
		if edit.Situacao != dispositivo.SituacaoSuprimido {
			continue
		}
		next, err := suprimir(tree, edit)
		if err != nil {
			return fmt.Errorf("failed to load dispositivo %s: %w", edit.ID, err)
		}
		tree = next
	}
	tree, err := sessao.engine.Renumber(tree)
	if err != nil {
		return fmt.Errorf("failed to load dispositivos: %w", err)
	}

	sessao.atual = tree
	sessao.desfazer = nil
	sessao.refazer = nil
	return nil
}

// replay turns one edit back into the element actions that produce it,
// except for suppression, which suprimir applies afterwards.
func replay(tree *dispositivo.Tree, edit emenda.DispositivoEdit) (*dispositivo.Tree, error) {
	node, exists := tree.Node(edit.ID)
	if !exists {
		return replayAdicionado(tree, edit)
	}

	if edit.Numero != node.Numero || edit.ExistenteNaNorma != node.ExistenteNaNorma || edit.NumeracaoExplicita != node.NumeracaoExplicita {
		referencia, err := tree.Referencia(edit.ID)
		if err != nil {
			return nil, err
		}
		next, err := acao.Apply(tree, acao.RenumerarElementoAction.ExecuteExistente(referencia, edit.Numero, edit.ExistenteNaNorma))
		if err != nil {
			return nil, err
		}
		tree = next
	}
	if edit.Texto != node.Texto {
		referencia, err := tree.Referencia(edit.ID)
		if err != nil {
			return nil, err
		}
		return acao.Apply(tree, acao.AtualizarTextoAction.Execute(referencia, edit.Texto))
	}
	return tree, nil
}

func suprimir(tree *dispositivo.Tree, edit emenda.DispositivoEdit) (*dispositivo.Tree, error) {
	node, _ := tree.Node(edit.ID)
	if node.Situacao == dispositivo.SituacaoSuprimido {
		return tree, nil
	}
	referencia, err := tree.Referencia(edit.ID)
	if err != nil {
		return nil, err
	}
	return acao.Apply(tree, acao.SuprimirElementoAction.Execute(referencia))
}

func replayAdicionado(tree *dispositivo.Tree, edit emenda.DispositivoEdit) (*dispositivo.Tree, error) {
	if !tree.Has(edit.IDPai) {
		return nil, fmt.Errorf("%w: parent %q of added dispositivo", dispositivo.ErrReferenceNotFound, edit.IDPai)
	}
	ancora, posicao := edit.IDPai, dispositivo.PosicaoDentro
	switch {
	case edit.IDPosicaoAnterior != "":
		if !slices.Contains(tree.Filhos(edit.IDPai), edit.IDPosicaoAnterior) {
			return nil, fmt.Errorf("%w: preceding sibling %q under %q",
				dispositivo.ErrReferenceNotFound, edit.IDPosicaoAnterior, edit.IDPai)
		}
		ancora, posicao = edit.IDPosicaoAnterior, dispositivo.PosicaoDepois
	case len(tree.Filhos(edit.IDPai)) > 0:
		ancora, posicao = tree.Filhos(edit.IDPai)[0], dispositivo.PosicaoAntes
	}

	referencia, err := tree.Referencia(ancora)
	if err != nil {
		return nil, err
	}
	texto := edit.Texto
	existente := edit.ExistenteNaNorma
	novo := &acao.Novo{
		ID:               edit.ID,
		Tipo:             edit.Tipo,
		Posicao:          posicao,
		Texto:            &texto,
		ExistenteNaNorma: &existente,
	}
	if edit.NumeracaoExplicita {
		novo.Numero = edit.Numero
	}
	return acao.Apply(tree, acao.ElementoAction{Type: acao.AdicionarElemento, Atual: referencia, Novo: novo})
}
