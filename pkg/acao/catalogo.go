package acao

import (
	"sort"

	"github.com/google/uuid"

	"github.com/coolbeans/emenda/pkg/dispositivo"
)

// Descritor describes a command type to the editing surface.
type Descritor interface {
	Type() ActionType
	Descricao() string
}

type descritorBase struct {
	tipo      ActionType
	descricao string
}

func (descritor descritorBase) Type() ActionType  { return descritor.tipo }
func (descritor descritorBase) Descricao() string { return descritor.descricao }

// Renumerar builds RENUMERAR_ELEMENTO commands.
type Renumerar struct{ descritorBase }

// Execute numbers atual explicitly; its existente-na-norma flag is inherited.
func (Renumerar) Execute(atual dispositivo.Referencia, numero string) ElementoAction {
	return ElementoAction{Type: RenumerarElemento, Atual: atual, Novo: &Novo{Numero: numero}}
}

// ExecuteExistente numbers atual and sets its existente-na-norma flag.
func (Renumerar) ExecuteExistente(atual dispositivo.Referencia, numero string, existenteNaNorma bool) ElementoAction {
	return ElementoAction{Type: RenumerarElemento, Atual: atual, Novo: &Novo{Numero: numero, ExistenteNaNorma: &existenteNaNorma}}
}

// Adicionar builds ADICIONAR_ELEMENTO commands.
type Adicionar struct{ descritorBase }

// Execute inserts a new node of kind tipo at posicao relative to atual. The
// node id is generated here so that replaying the command is deterministic.
func (Adicionar) Execute(atual dispositivo.Referencia, tipo dispositivo.Tipo, posicao dispositivo.Posicao, texto string) ElementoAction {
	return ElementoAction{
		Type:  AdicionarElemento,
		Atual: atual,
		Novo: &Novo{
			Tipo:    tipo,
			Posicao: posicao,
			ID:      dispositivo.ID(uuid.NewString()),
			Texto:   &texto,
		},
	}
}

// Simples builds commands that carry no payload.
type Simples struct{ descritorBase }

// Execute targets atual.
func (simples Simples) Execute(atual dispositivo.Referencia) ElementoAction {
	return ElementoAction{Type: simples.tipo, Atual: atual}
}

// Atualizar builds ATUALIZAR_TEXTO commands.
type Atualizar struct{ descritorBase }

// Execute replaces the wording of atual.
func (Atualizar) Execute(atual dispositivo.Referencia, texto string) ElementoAction {
	return ElementoAction{Type: AtualizarTexto, Atual: atual, Novo: &Novo{Texto: &texto}}
}

var (
	RenumerarElementoAction   = Renumerar{descritorBase{RenumerarElemento, "Numerar e criar rótulo para o dispositivo"}}
	AdicionarElementoAction   = Adicionar{descritorBase{AdicionarElemento, "Adicionar dispositivo"}}
	RemoverElementoAction     = Simples{descritorBase{RemoverElemento, "Remover dispositivo"}}
	SuprimirElementoAction    = Simples{descritorBase{SuprimirElemento, "Suprimir dispositivo"}}
	RestaurarElementoAction   = Simples{descritorBase{RestaurarElemento, "Restaurar dispositivo"}}
	MoverElementoAcimaAction  = Simples{descritorBase{MoverElementoAcima, "Mover dispositivo para cima"}}
	MoverElementoAbaixoAction = Simples{descritorBase{MoverElementoAbaixo, "Mover dispositivo para baixo"}}
	AtualizarTextoAction      = Atualizar{descritorBase{AtualizarTexto, "Atualizar texto do dispositivo"}}
)

var catalogo = map[ActionType]Descritor{
	RenumerarElemento:   RenumerarElementoAction,
	AdicionarElemento:   AdicionarElementoAction,
	RemoverElemento:     RemoverElementoAction,
	SuprimirElemento:    SuprimirElementoAction,
	RestaurarElemento:   RestaurarElementoAction,
	MoverElementoAcima:  MoverElementoAcimaAction,
	MoverElementoAbaixo: MoverElementoAbaixoAction,
	AtualizarTexto:      AtualizarTextoAction,
}

// Lookup returns the descriptor registered for a command type.
func Lookup(tipo ActionType) (Descritor, bool) {
	descritor, ok := catalogo[tipo]
	return descritor, ok
}

// Catalogo lists every registered descriptor, ordered by type.
func Catalogo() []Descritor {
	descritores := make([]Descritor, 0, len(catalogo))
	for _, descritor := range catalogo {
		descritores = append(descritores, descritor)
	}
	sort.Slice(descritores, func(i, j int) bool {
		return descritores[i].Type() < descritores[j].Type()
	})
	return descritores
}
