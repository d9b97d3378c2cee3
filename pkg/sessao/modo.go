package sessao

import (
	"errors"
	"fmt"

	"github.com/coolbeans/emenda/pkg/acao"
	"github.com/coolbeans/emenda/pkg/dispositivo"
	"github.com/coolbeans/emenda/pkg/emenda"
)

// ErrAcaoNaoPermitida is returned when the edit mode does not allow an action.
var ErrAcaoNaoPermitida = errors.New("action not allowed in edit mode")

// permitida checks an action against the capability set of an edit mode:
//
//   - emenda: every action;
//   - emendaArtigoOndeCouber: adding articles, and any action on dispositivos
//     that are not part of the norm;
//   - emendaTextoLivre: nothing, the amendment is free text;
//   - emendaSubstituicaoTermo: wording updates only.
func permitida(modo emenda.ModoEdicao, atual dispositivo.Node, action acao.ElementoAction) error {
	switch modo {
	case emenda.ModoEmenda:
		return nil
	case emenda.ModoEmendaArtigoOndeCouber:
		if action.Type == acao.AdicionarElemento {
			tipo := atual.Tipo
			if action.Novo != nil && action.Novo.Tipo != "" {
				tipo = action.Novo.Tipo
			}
			if tipo == dispositivo.Artigo {
				return nil
			}
		}
		if !atual.ExistenteNaNorma && atual.Tipo != dispositivo.Articulacao {
			switch action.Type {
			case acao.SuprimirElemento, acao.RestaurarElemento:
			default:
				return nil
			}
		}
	case emenda.ModoEmendaSubstituicaoTermo:
		if action.Type == acao.AtualizarTexto {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in %s", ErrAcaoNaoPermitida, action.Type, modo)
}
