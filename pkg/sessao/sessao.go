// Package sessao is the editing session of one amendment: it holds the
// pristine tree of the norm and the amended tree, dispatches element actions
// through the reducer and the renumbering engine, keeps undo/redo history and
// derives the amendment's dispositivo list and natural-language command.
//
// A Sessao is not safe for concurrent use. Trees it hands out are immutable
// snapshots and may be read from any goroutine.
package sessao

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/coolbeans/emenda/pkg/acao"
	"github.com/coolbeans/emenda/pkg/dispositivo"
	"github.com/coolbeans/emenda/pkg/emenda"
	"github.com/coolbeans/emenda/pkg/renumeracao"
)

// DefaultLimiteHistorico is the number of undo steps kept by default.
const DefaultLimiteHistorico = 100

// Sessao edits one amendment against one norm.
type Sessao struct {
	base     *dispositivo.Tree
	atual    *dispositivo.Tree
	modo     emenda.ModoEdicao
	desfazer []*dispositivo.Tree
	refazer  []*dispositivo.Tree

	limiteHistorico int
	engine          *renumeracao.Engine
	logger          *zap.Logger
	metrics         *Metrics
}

// Option configures a Sessao.
type Option func(*Sessao)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(sessao *Sessao) { sessao.logger = logger }
}

// WithMetrics records session activity on metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(sessao *Sessao) { sessao.metrics = metrics }
}

// WithEngine replaces the renumbering engine.
func WithEngine(engine *renumeracao.Engine) Option {
	return func(sessao *Sessao) { sessao.engine = engine }
}

// WithModo sets the initial edit mode.
func WithModo(modo emenda.ModoEdicao) Option {
	return func(sessao *Sessao) { sessao.modo = modo }
}

// WithLimiteHistorico bounds the undo history. Zero or less keeps it unbounded.
func WithLimiteHistorico(limite int) Option {
	return func(sessao *Sessao) { sessao.limiteHistorico = limite }
}

// New starts a session over the tree of a norm. The tree is relabeled so
// every node carries its rótulo before the first edit.
func New(norma *dispositivo.Tree, options ...Option) (*Sessao, error) {
	if norma == nil {
		return nil, fmt.Errorf("norm tree is nil")
	}
	sessao := &Sessao{
		modo:            emenda.ModoEmenda,
		limiteHistorico: DefaultLimiteHistorico,
		logger:          zap.NewNop(),
	}
	for _, option := range options {
		option(sessao)
	}
	if _, err := emenda.ParseModoEdicao(string(sessao.modo)); err != nil {
		return nil, err
	}
	if sessao.engine == nil {
		sessao.engine = renumeracao.NewEngine(sessao.logger)
	}

	base, err := sessao.engine.RenumberAll(norma)
	if err != nil {
		return nil, fmt.Errorf("failed to label norm: %w", err)
	}
	sessao.base = base
	sessao.atual = base
	return sessao, nil
}

// Arvore returns the amended tree.
func (sessao *Sessao) Arvore() *dispositivo.Tree {
	return sessao.atual
}

// Base returns the tree of the norm as loaded.
func (sessao *Sessao) Base() *dispositivo.Tree {
	return sessao.base
}

// Modo returns the edit mode.
func (sessao *Sessao) Modo() emenda.ModoEdicao {
	return sessao.modo
}

// SetModo changes the edit mode. Edits already made are kept.
func (sessao *Sessao) SetModo(modo emenda.ModoEdicao) error {
	parsed, err := emenda.ParseModoEdicao(string(modo))
	if err != nil {
		return err
	}
	sessao.modo = parsed
	return nil
}

// Referencia pins a node of the current tree for a new action.
func (sessao *Sessao) Referencia(id dispositivo.ID) (dispositivo.Referencia, error) {
	return sessao.atual.Referencia(id)
}

// Dispatch applies an action and relabels the scopes it touched. The action
// commits as a whole: on any error, including a numbering conflict, the
// current tree is left as it was.
func (sessao *Sessao) Dispatch(action acao.ElementoAction) (*dispositivo.Tree, error) {
	tipo := string(action.Type)
	atual, err := sessao.atual.Resolve(action.Atual)
	if err != nil {
		sessao.metrics.acao(tipo, resultadoFalha)
		return nil, err
	}
	if err := permitida(sessao.modo, atual, action); err != nil {
		sessao.metrics.acao(tipo, resultadoRejeitada)
		return nil, err
	}

	next, err := acao.Apply(sessao.atual, action)
	if err != nil {
		sessao.metrics.acao(tipo, resultadoFalha)
		return nil, err
	}
	next, err = sessao.engine.Renumber(next)
	if err != nil {
		resultado := resultadoFalha
		if errors.Is(err, renumeracao.ErrNumberingConflict) {
			resultado = resultadoConflito
		}
		sessao.metrics.acao(tipo, resultado)
		sessao.logger.Info("Action rolled back",
			zap.String("tipo", tipo),
			zap.Stringer("atual", action.Atual),
			zap.Error(err))
		return nil, err
	}

	if next != sessao.atual {
		sessao.pushDesfazer(sessao.atual)
		sessao.refazer = nil
		sessao.atual = next
	}
	sessao.metrics.acao(tipo, resultadoAplicada)
	sessao.logger.Debug("Action applied",
		zap.String("tipo", tipo),
		zap.Stringer("atual", action.Atual),
		zap.Uint64("versao", next.Versao()))
	return next, nil
}

func (sessao *Sessao) pushDesfazer(tree *dispositivo.Tree) {
	sessao.desfazer = append(sessao.desfazer, tree)
	if sessao.limiteHistorico > 0 && len(sessao.desfazer) > sessao.limiteHistorico {
		sessao.desfazer = sessao.desfazer[len(sessao.desfazer)-sessao.limiteHistorico:]
	}
}

// PodeDesfazer reports whether Undo has a step to revert.
func (sessao *Sessao) PodeDesfazer() bool {
	return len(sessao.desfazer) > 0
}

// PodeRefazer reports whether Redo has a step to reapply.
func (sessao *Sessao) PodeRefazer() bool {
	return len(sessao.refazer) > 0
}

// Undo reverts the last applied action. It reports false when there is
// nothing to undo.
func (sessao *Sessao) Undo() bool {
	if len(sessao.desfazer) == 0 {
		return false
	}
	last := len(sessao.desfazer) - 1
	sessao.refazer = append(sessao.refazer, sessao.atual)
	sessao.atual = sessao.desfazer[last]
	sessao.desfazer = sessao.desfazer[:last]
	sessao.metrics.operacao(operacaoDesfazer)
	return true
}

// Redo reapplies the last undone action. It reports false when there is
// nothing to redo.
func (sessao *Sessao) Redo() bool {
	if len(sessao.refazer) == 0 {
		return false
	}
	last := len(sessao.refazer) - 1
	sessao.pushDesfazer(sessao.atual)
	sessao.atual = sessao.refazer[last]
	sessao.refazer = sessao.refazer[:last]
	sessao.metrics.operacao(operacaoRefazer)
	return true
}
