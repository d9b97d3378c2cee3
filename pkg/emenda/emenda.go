// Package emenda defines the amendment aggregate (emenda) submitted against a
// target norm, its wire shape, and the Editor shell that assembles it from the
// editing collaborators and decomposes it back into them.
package emenda

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coolbeans/emenda/pkg/dispositivo"
)

// ModoEdicao is how an amendment may affect the target norm.
type ModoEdicao string

const (
	// ModoEmenda modifies, adds or suppresses dispositivos of the norm.
	ModoEmenda ModoEdicao = "emenda"
	// ModoEmendaArtigoOndeCouber adds new articles wherever they fit.
	ModoEmendaArtigoOndeCouber ModoEdicao = "emendaArtigoOndeCouber"
	// ModoEmendaTextoLivre carries a free-text substitute with no structural edits.
	ModoEmendaTextoLivre ModoEdicao = "emendaTextoLivre"
	// ModoEmendaSubstituicaoTermo replaces a term across existing wording only.
	ModoEmendaSubstituicaoTermo ModoEdicao = "emendaSubstituicaoTermo"
)

// ModosEdicao lists every supported mode.
var ModosEdicao = []ModoEdicao{ModoEmenda, ModoEmendaArtigoOndeCouber, ModoEmendaTextoLivre, ModoEmendaSubstituicaoTermo}

// ParseModoEdicao validates a mode name. An empty name selects ModoEmenda.
func ParseModoEdicao(nome string) (ModoEdicao, error) {
	if nome == "" {
		return ModoEmenda, nil
	}
	for _, modo := range ModosEdicao {
		if string(modo) == nome {
			return modo, nil
		}
	}
	return "", fmt.Errorf("unknown edit mode %q", nome)
}

// Parlamentar is a legislator as returned by the legislator directory.
type Parlamentar struct {
	Identificacao        string `json:"identificacao"`
	Nome                 string `json:"nome"`
	Sexo                 string `json:"sexo"`
	SiglaPartido         string `json:"siglaPartido"`
	SiglaUF              string `json:"siglaUF"`
	SiglaCasaLegislativa string `json:"siglaCasaLegislativa"`
}

// TipoAutoria distinguishes individual sponsorship from a collective body.
type TipoAutoria string

const (
	AutoriaParlamentar TipoAutoria = "Parlamentar"
	AutoriaComissao    TipoAutoria = "Comissao"
)

// Autoria is the authorship of an amendment.
type Autoria struct {
	TipoAutoria                              TipoAutoria   `json:"tipo"`
	Parlamentares                            []Parlamentar `json:"parlamentares"`
	ImprimirPartidoUF                        bool          `json:"imprimirPartidoUF"`
	QuantidadeAssinaturasAdicionaisSenadores int           `json:"quantidadeAssinaturasAdicionaisSenadores"`
	QuantidadeAssinaturasAdicionaisDeputados int           `json:"quantidadeAssinaturasAdicionaisDeputados"`
}

// NewAutoria returns an empty individual authorship.
func NewAutoria() Autoria {
	return Autoria{TipoAutoria: AutoriaParlamentar, Parlamentares: []Parlamentar{}}
}

// Clone returns a copy that shares no slices with the receiver.
func (autoria Autoria) Clone() Autoria {
	copied := autoria
	copied.Parlamentares = append([]Parlamentar{}, autoria.Parlamentares...)
	return copied
}

// Proposicao identifies the target norm.
type Proposicao struct {
	Urn    string `json:"urn"`
	Sigla  string `json:"sigla,omitempty"`
	Numero string `json:"numero,omitempty"`
	Ano    string `json:"ano,omitempty"`
	Ementa string `json:"ementa,omitempty"`
}

// DispositivoEdit is one dispositivo touched by the amendment, in document
// order. Added dispositivos carry their placement (parent and preceding
// sibling) so the edit list can be replayed onto the unamended norm.
type DispositivoEdit struct {
	ID                 dispositivo.ID       `json:"id"`
	Tipo               dispositivo.Tipo     `json:"tipo"`
	Numero             string               `json:"numero,omitempty"`
	Rotulo             string               `json:"rotulo,omitempty"`
	Texto              string               `json:"texto,omitempty"`
	Situacao           dispositivo.Situacao `json:"situacao"`
	ExistenteNaNorma   bool                 `json:"existenteNaNorma"`
	NumeracaoExplicita bool                 `json:"numeracaoExplicita,omitempty"`
	IDPai              dispositivo.ID       `json:"idPai,omitempty"`
	IDPosicaoAnterior  dispositivo.ID       `json:"idPosicaoAnterior,omitempty"`
}

// ComponenteEmendado pairs a target document with the edits made to it.
type ComponenteEmendado struct {
	Urn           string            `json:"urn"`
	Dispositivos  []DispositivoEdit `json:"dispositivos"`
	ComandoEmenda string            `json:"comandoEmenda"`
}

// Data is a calendar date serialized as YYYY-MM-DD.
type Data struct {
	time.Time
}

const layoutData = "2006-01-02"

// NewData truncates t to its calendar day.
func NewData(t time.Time) *Data {
	year, month, day := t.Date()
	return &Data{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseData parses a YYYY-MM-DD date.
func ParseData(texto string) (*Data, error) {
	parsed, err := time.Parse(layoutData, texto)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", texto, err)
	}
	return &Data{Time: parsed}, nil
}

// String formats the date as YYYY-MM-DD.
func (data Data) String() string {
	return data.Format(layoutData)
}

// MarshalJSON implements json.Marshaler.
func (data Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(data.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (data *Data) UnmarshalJSON(raw []byte) error {
	var texto string
	if err := json.Unmarshal(raw, &texto); err != nil {
		return err
	}
	parsed, err := ParseData(texto)
	if err != nil {
		return err
	}
	*data = *parsed
	return nil
}

// Emenda is the amendment aggregate in its transmitted shape.
type Emenda struct {
	ModoEdicao    ModoEdicao           `json:"modoEdicao"`
	Proposicao    Proposicao           `json:"proposicao"`
	Componentes   []ComponenteEmendado `json:"componentes"`
	Justificativa string               `json:"justificativa"`
	Autoria       Autoria              `json:"autoria"`
	Data          *Data                `json:"data"`
}

// New returns an empty amendment with its primary component in place.
func New() *Emenda {
	return &Emenda{
		ModoEdicao:  ModoEmenda,
		Componentes: []ComponenteEmendado{{Dispositivos: []DispositivoEdit{}}},
		Autoria:     NewAutoria(),
	}
}

// ErrEmendaInvalida is returned by Validate.
var ErrEmendaInvalida = errors.New("invalid amendment")

// Validate checks the invariants other systems rely on when accepting the
// aggregate.
func (amendment *Emenda) Validate() error {
	var problems []string
	if _, err := ParseModoEdicao(string(amendment.ModoEdicao)); err != nil || amendment.ModoEdicao == "" {
		problems = append(problems, fmt.Sprintf("unknown edit mode %q", amendment.ModoEdicao))
	}
	if strings.TrimSpace(amendment.Proposicao.Urn) == "" {
		problems = append(problems, "missing proposicao urn")
	}
	if len(amendment.Componentes) == 0 {
		problems = append(problems, "missing primary component")
	} else if amendment.Componentes[0].Urn != amendment.Proposicao.Urn {
		problems = append(problems, fmt.Sprintf("primary component urn %q differs from proposicao urn %q",
			amendment.Componentes[0].Urn, amendment.Proposicao.Urn))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrEmendaInvalida, strings.Join(problems, "; "))
	}
	return nil
}

// Marshal encodes the amendment in its wire shape.
func Marshal(amendment *Emenda) ([]byte, error) {
	if amendment == nil {
		return nil, fmt.Errorf("amendment is nil")
	}
	return json.MarshalIndent(amendment, "", "  ")
}

// Unmarshal decodes an amendment from its wire shape.
func Unmarshal(data []byte) (*Emenda, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}
	var amendment Emenda
	if err := json.Unmarshal(data, &amendment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal amendment: %w", err)
	}
	return &amendment, nil
}
