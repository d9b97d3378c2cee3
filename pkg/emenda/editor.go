package emenda

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/coolbeans/emenda/pkg/norma"
)

// ErrUrnResolution blocks assembly of an amendment whose target norm cannot
// be identified.
var ErrUrnResolution = errors.New("urn resolution failure")

// EditorTexto is the tree-editing collaborator.
type EditorTexto interface {
	Modo() ModoEdicao
	SetModo(modo ModoEdicao) error
	DispositivosEmenda() []DispositivoEdit
	ComandoEmenda() string
	// CarregarDispositivosEmenda replaces the editing state with the given edits.
	CarregarDispositivosEmenda(dispositivos []DispositivoEdit) error
}

// EditorJustificativa holds the free-text justification.
type EditorJustificativa interface {
	Texto() string
	SetContent(texto string)
}

// EditorAutoria captures the amendment's authorship.
type EditorAutoria interface {
	AutoriaAtualizada() Autoria
	SetAutoria(autoria Autoria)
}

// EditorData captures the amendment's date.
type EditorData interface {
	Data() *Data
	SetData(data *Data)
}

// Editor assembles an Emenda from its collaborators and pushes a loaded Emenda
// back into them. It is the only place where the aggregate is built, so every
// amendment leaving it carries a resolved urn.
type Editor struct {
	projeto       *norma.ProjetoNorma
	texto         EditorTexto
	justificativa EditorJustificativa
	autoria       EditorAutoria
	data          EditorData
	logger        *zap.Logger
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithJustificativa replaces the in-memory justification collaborator.
func WithJustificativa(justificativa EditorJustificativa) EditorOption {
	return func(editor *Editor) { editor.justificativa = justificativa }
}

// WithAutoria replaces the in-memory authorship collaborator.
func WithAutoria(autoria EditorAutoria) EditorOption {
	return func(editor *Editor) { editor.autoria = autoria }
}

// WithData replaces the in-memory date collaborator.
func WithData(data EditorData) EditorOption {
	return func(editor *Editor) { editor.data = data }
}

// WithLogger sets the logger used for assembly diagnostics.
func WithLogger(logger *zap.Logger) EditorOption {
	return func(editor *Editor) { editor.logger = logger }
}

// NewEditor creates the shell for amending projeto through texto.
func NewEditor(projeto *norma.ProjetoNorma, texto EditorTexto, options ...EditorOption) *Editor {
	editor := &Editor{
		projeto:       projeto,
		texto:         texto,
		justificativa: &Justificativa{},
		autoria:       NewAutoriaMemoria(),
		data:          &DataMemoria{},
		logger:        zap.NewNop(),
	}
	for _, option := range options {
		option(editor)
	}
	return editor
}

// GetEmenda assembles the current amendment.
func (editor *Editor) GetEmenda() (*Emenda, error) {
	urn, err := norma.GetUrn(editor.projeto)
	if err != nil {
		editor.logger.Error("Cannot assemble amendment", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUrnResolution, err)
	}

	amendment := &Emenda{
		ModoEdicao: editor.texto.Modo(),
		Proposicao: Proposicao{
			Urn:    urn,
			Sigla:  editor.projeto.Sigla,
			Numero: editor.projeto.Numero,
			Ano:    editor.projeto.Ano,
			Ementa: editor.projeto.Ementa,
		},
		Componentes: []ComponenteEmendado{{
			Urn:           urn,
			Dispositivos:  editor.texto.DispositivosEmenda(),
			ComandoEmenda: editor.texto.ComandoEmenda(),
		}},
		Justificativa: editor.justificativa.Texto(),
		Autoria:       editor.autoria.AutoriaAtualizada().Clone(),
		Data:          editor.data.Data(),
	}
	if amendment.Componentes[0].Dispositivos == nil {
		amendment.Componentes[0].Dispositivos = []DispositivoEdit{}
	}
	if err := amendment.Validate(); err != nil {
		return nil, err
	}
	editor.logger.Debug("Assembled amendment",
		zap.String("urn", urn),
		zap.String("modo", string(amendment.ModoEdicao)),
		zap.Int("dispositivos", len(amendment.Componentes[0].Dispositivos)))
	return amendment, nil
}

// SetEmenda replaces the state of every collaborator with the amendment's.
// Nothing from a previously loaded amendment survives. An amendment for a
// different norm is rejected before any collaborator is touched.
func (editor *Editor) SetEmenda(amendment *Emenda) error {
	if amendment == nil {
		return fmt.Errorf("%w: amendment is nil", ErrEmendaInvalida)
	}
	if err := amendment.Validate(); err != nil {
		return err
	}
	urn, err := norma.GetUrn(editor.projeto)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUrnResolution, err)
	}
	if amendment.Proposicao.Urn != urn {
		return fmt.Errorf("%w: amendment targets %s, editor holds %s", ErrEmendaInvalida, amendment.Proposicao.Urn, urn)
	}

	modoAnterior := editor.texto.Modo()
	if err := editor.texto.SetModo(amendment.ModoEdicao); err != nil {
		return err
	}
	if err := editor.texto.CarregarDispositivosEmenda(amendment.Componentes[0].Dispositivos); err != nil {
		if restoreErr := editor.texto.SetModo(modoAnterior); restoreErr != nil {
			return errors.Join(err, restoreErr)
		}
		return err
	}

	editor.justificativa.SetContent(amendment.Justificativa)
	editor.autoria.SetAutoria(amendment.Autoria.Clone())
	editor.data.SetData(amendment.Data)
	editor.logger.Debug("Loaded amendment",
		zap.String("urn", urn),
		zap.Int("dispositivos", len(amendment.Componentes[0].Dispositivos)))
	return nil
}
