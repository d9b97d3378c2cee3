// Package acao defines the serializable commands that describe structural
// edits to a dispositivo tree, and the pure reducer that applies them.
//
// Every command shares one shape, {type, atual, novo}: atual pins the target
// node and novo carries the payload of the command type. Building a command
// never touches the tree; only Apply does, and Apply never mutates its input.
package acao

import (
	"errors"

	"github.com/coolbeans/emenda/pkg/dispositivo"
)

// ActionType is the discriminator of an ElementoAction.
type ActionType string

const (
	RenumerarElemento   ActionType = "RENUMERAR_ELEMENTO"
	AdicionarElemento   ActionType = "ADICIONAR_ELEMENTO"
	RemoverElemento     ActionType = "REMOVER_ELEMENTO"
	SuprimirElemento    ActionType = "SUPRIMIR_ELEMENTO"
	RestaurarElemento   ActionType = "RESTAURAR_ELEMENTO"
	MoverElementoAcima  ActionType = "MOVER_ELEMENTO_ACIMA"
	MoverElementoAbaixo ActionType = "MOVER_ELEMENTO_ABAIXO"
	AtualizarTexto      ActionType = "ATUALIZAR_TEXTO"
)

var (
	// ErrAcaoInvalida is returned for commands whose payload does not fit
	// their type or their target.
	ErrAcaoInvalida = errors.New("invalid action")
	// ErrUnknownAction is returned for unregistered command types.
	ErrUnknownAction = errors.New("unknown action type")
)

// Novo is the payload of a command. Each command type reads only the fields
// it documents; absent optional fields mean "keep the current value".
type Novo struct {
	// Numero is the new numbering token (renumber) or an explicit token for an
	// inserted node. An empty token on renumber hands numbering back to the engine.
	Numero string `json:"numero,omitempty"`

	// ExistenteNaNorma overrides the node's flag when present.
	ExistenteNaNorma *bool `json:"existenteNaNorma,omitempty"`

	// Tipo, Posicao and ID describe an inserted node.
	Tipo    dispositivo.Tipo    `json:"tipo,omitempty"`
	Posicao dispositivo.Posicao `json:"posicao,omitempty"`
	ID      dispositivo.ID      `json:"id,omitempty"`

	// Texto replaces the node's wording when present.
	Texto *string `json:"texto,omitempty"`
}

// ElementoAction is a single edit command.
type ElementoAction struct {
	Type  ActionType             `json:"type"`
	Atual dispositivo.Referencia `json:"atual"`
	Novo  *Novo                  `json:"novo,omitempty"`
}

// Estrutural reports whether the command can change numbering.
func (action ElementoAction) Estrutural() bool {
	switch action.Type {
	case RenumerarElemento, AdicionarElemento, RemoverElemento, MoverElementoAcima, MoverElementoAbaixo:
		return true
	}
	return false
}

func (action ElementoAction) payload() Novo {
	if action.Novo == nil {
		return Novo{}
	}
	return *action.Novo
}
