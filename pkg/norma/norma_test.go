package norma

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/emenda/pkg/dispositivo"
)

const projetoYAML = `
metadado:
  identificacao:
    urn: urn:lex:br:senado.federal:projeto.lei;pl:2023;2338
sigla: PL
numero: "2338"
ano: "2023"
ementa: Dispõe sobre o uso da inteligência artificial.
articulacao:
  - tipo: Artigo
    numero: "1"
    texto: Esta Lei estabelece normas gerais.
    filhos:
      - tipo: Paragrafo
        numero: "1"
        texto: Parágrafo único.
  - tipo: Artigo
    numero: "2"
    texto: Para os fins desta Lei, considera-se
    filhos:
      - tipo: Inciso
        numero: I
        texto: sistema;
      - tipo: Inciso
        numero: II
        texto: fornecedor.
`

func TestGetUrn(t *testing.T) {
	tests := []struct {
		name    string
		urn     string
		wantErr bool
	}{
		{name: "lexml urn", urn: "urn:lex:br:federal:lei:2020-05-04;14010"},
		{name: "trimmed", urn: "  urn:lex:br:federal:lei:2020;1 "},
		{name: "empty", urn: "", wantErr: true},
		{name: "blank", urn: "   ", wantErr: true},
		{name: "not lexml", urn: "http://example.com/lei", wantErr: true},
		{name: "incomplete", urn: "urn:lex:br", wantErr: true},
		{name: "empty segment", urn: "urn:lex::federal:lei", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			projeto := &ProjetoNorma{Metadado: Metadado{Identificacao: Identificacao{Urn: tt.urn}}}
			urn, err := GetUrn(projeto)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUrnInvalida))
				assert.Empty(t, urn)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, urn)
		})
	}

	_, err := GetUrn(nil)
	assert.True(t, errors.Is(err, ErrUrnInvalida))
}

func TestParseYAMLAndBuildTree(t *testing.T) {
	projeto, err := Parse([]byte(projetoYAML))
	require.NoError(t, err)
	assert.Equal(t, "PL", projeto.Sigla)
	require.Len(t, projeto.Articulacao, 2)

	tree, err := projeto.Arvore(nil)
	require.NoError(t, err)
	art2, ok := tree.Node("art2")
	require.True(t, ok)
	assert.Equal(t, "Art. 2º", art2.Rotulo)
	par, ok := tree.Node("art1_par1")
	require.True(t, ok)
	assert.Equal(t, "Parágrafo único.", par.Rotulo)
	inc, ok := tree.Node("art2_inc2")
	require.True(t, ok)
	assert.Equal(t, "II –", inc.Rotulo)
	assert.Empty(t, tree.Sujos())
}

func TestParseJSON(t *testing.T) {
	data := `{"metadado":{"identificacao":{"urn":"urn:lex:br:federal:lei:2020;1"}},
		"articulacao":[{"tipo":"Artigo","numero":"1","texto":"Caput."}]}`
	projeto, err := Parse([]byte(data))
	require.NoError(t, err)
	urn, err := GetUrn(projeto)
	require.NoError(t, err)
	assert.Equal(t, "urn:lex:br:federal:lei:2020;1", urn)
	assert.Equal(t, dispositivo.Artigo, projeto.Articulacao[0].Tipo)
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse(nil)
	assert.Error(t, err)
	_, err = Parse([]byte("{not json"))
	assert.Error(t, err)
}

func TestArvoreRejectsInvalidStructure(t *testing.T) {
	projeto := &ProjetoNorma{Articulacao: []dispositivo.Spec{{Tipo: dispositivo.Inciso, Numero: "I"}}}
	_, err := projeto.Arvore(nil)
	assert.True(t, errors.Is(err, dispositivo.ErrEstruturaInvalida))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projeto.yaml")
	require.NoError(t, os.WriteFile(path, []byte(projetoYAML), 0o600))
	projeto, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2338", projeto.Numero)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
