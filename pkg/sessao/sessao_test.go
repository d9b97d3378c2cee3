package sessao

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/emenda/pkg/acao"
	"github.com/coolbeans/emenda/pkg/dispositivo"
	"github.com/coolbeans/emenda/pkg/emenda"
	"github.com/coolbeans/emenda/pkg/norma"
	"github.com/coolbeans/emenda/pkg/renumeracao"
)

func articulacao() []dispositivo.Spec {
	return []dispositivo.Spec{
		{Tipo: dispositivo.Artigo, Numero: "1", Texto: "Caput do art. 1º:", Filhos: []dispositivo.Spec{
			{Tipo: dispositivo.Inciso, Numero: "I", Texto: "inciso um."},
			{Tipo: dispositivo.Paragrafo, Numero: "1", Texto: "Parágrafo um."},
			{Tipo: dispositivo.Paragrafo, Numero: "2", Texto: "Parágrafo dois."},
		}},
		{Tipo: dispositivo.Artigo, Numero: "2", Texto: "Caput do art. 2º:", Filhos: []dispositivo.Spec{
			{Tipo: dispositivo.Inciso, Numero: "I", Texto: "primeiro;"},
			{Tipo: dispositivo.Inciso, Numero: "II", Texto: "segundo."},
		}},
		{Tipo: dispositivo.Artigo, Numero: "3", Texto: "Caput do art. 3º."},
	}
}

func newSessao(t *testing.T, options ...Option) *Sessao {
	t.Helper()
	tree, err := dispositivo.Build(articulacao())
	require.NoError(t, err)
	sessao, err := New(tree, options...)
	require.NoError(t, err)
	return sessao
}

func ref(t *testing.T, sessao *Sessao, id dispositivo.ID) dispositivo.Referencia {
	t.Helper()
	referencia, err := sessao.Referencia(id)
	require.NoError(t, err)
	return referencia
}

func dispatch(t *testing.T, sessao *Sessao, action acao.ElementoAction) {
	t.Helper()
	_, err := sessao.Dispatch(action)
	require.NoError(t, err)
}

func labels(tree *dispositivo.Tree) map[dispositivo.ID]string {
	result := make(map[dispositivo.ID]string)
	tree.Walk(func(node dispositivo.Node) bool {
		result[node.ID] = node.Rotulo
		return true
	})
	return result
}

func TestNewLabelsTheNorm(t *testing.T) {
	sessao := newSessao(t)
	node, ok := sessao.Arvore().Node("art2_inc2")
	require.True(t, ok)
	assert.Equal(t, "II –", node.Rotulo)
	assert.Equal(t, emenda.ModoEmenda, sessao.Modo())
	assert.Empty(t, sessao.DispositivosEmenda())
	assert.Empty(t, sessao.ComandoEmenda())

	_, err := New(nil)
	assert.Error(t, err)
	tree, _ := dispositivo.Build(articulacao())
	_, err = New(tree, WithModo("qualquer"))
	assert.Error(t, err)
}

func TestInsertBetweenExistingParagraphs(t *testing.T) {
	sessao := newSessao(t)
	action := acao.AdicionarElementoAction.Execute(ref(t, sessao, "art1_par1"), dispositivo.Paragrafo, dispositivo.PosicaoDepois, "Novo parágrafo.")
	dispatch(t, sessao, action)

	tree := sessao.Arvore()
	novo, ok := tree.Node(action.Novo.ID)
	require.True(t, ok)
	assert.Equal(t, "1-A", novo.Numero)
	assert.Equal(t, "§ 1º-A", novo.Rotulo)
	par2, _ := tree.Node("art1_par2")
	assert.Equal(t, "2", par2.Numero, "pinned paragraph keeps its number")

	edits := sessao.DispositivosEmenda()
	require.Len(t, edits, 1)
	assert.Equal(t, dispositivo.ID("art1"), edits[0].IDPai)
	assert.Equal(t, dispositivo.ID("art1_par1"), edits[0].IDPosicaoAnterior)
	assert.Equal(t, dispositivo.SituacaoAdicionado, edits[0].Situacao)

	assert.Equal(t, "Acrescente-se § 1º-A ao art. 1º do Projeto, com a seguinte redação:\n“§ 1º-A Novo parágrafo.”",
		sessao.ComandoEmenda())
}

func TestConflictRollsBackTheAction(t *testing.T) {
	sessao := newSessao(t)
	before := sessao.Arvore()

	action := acao.ElementoAction{
		Type:  acao.AdicionarElemento,
		Atual: ref(t, sessao, "art1_par1"),
		Novo:  &acao.Novo{ID: "novo", Tipo: dispositivo.Paragrafo, Posicao: dispositivo.PosicaoDepois, Numero: "2"},
	}
	_, err := sessao.Dispatch(action)
	require.Error(t, err)
	assert.True(t, errors.Is(err, renumeracao.ErrNumberingConflict))

	var conflict *renumeracao.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "2", conflict.Numero)
	assert.Same(t, before, sessao.Arvore())
	assert.False(t, sessao.PodeDesfazer())
	assert.False(t, sessao.Arvore().Has("novo"))
}

func TestStaleReferenceIsRejected(t *testing.T) {
	sessao := newSessao(t)
	stale := ref(t, sessao, "art2")
	dispatch(t, sessao, acao.AtualizarTextoAction.Execute(stale, "Outra redação."))

	_, err := sessao.Dispatch(acao.AtualizarTextoAction.Execute(stale, "Mais uma."))
	assert.True(t, errors.Is(err, dispositivo.ErrReferenceNotFound))
}

func TestUndoRedo(t *testing.T) {
	sessao := newSessao(t)
	t0 := sessao.Arvore()
	assert.False(t, sessao.Undo())
	assert.False(t, sessao.Redo())

	dispatch(t, sessao, acao.AtualizarTextoAction.Execute(ref(t, sessao, "art2"), "Primeira."))
	t1 := sessao.Arvore()
	dispatch(t, sessao, acao.SuprimirElementoAction.Execute(ref(t, sessao, "art3")))
	t2 := sessao.Arvore()

	require.True(t, sessao.Undo())
	assert.Same(t, t1, sessao.Arvore())
	require.True(t, sessao.Undo())
	assert.Same(t, t0, sessao.Arvore())
	assert.False(t, sessao.PodeDesfazer())

	require.True(t, sessao.Redo())
	assert.Same(t, t1, sessao.Arvore())
	require.True(t, sessao.Redo())
	assert.Same(t, t2, sessao.Arvore())

	require.True(t, sessao.Undo())
	fromUndone := t2
	undoneRef, err := fromUndone.Referencia("art3")
	require.NoError(t, err)
	dispatch(t, sessao, acao.AtualizarTextoAction.Execute(ref(t, sessao, "art3"), "Nova redação do art. 3º."))
	assert.False(t, sessao.PodeRefazer(), "a new action drops the redo branch")

	_, err = sessao.Arvore().Resolve(undoneRef)
	assert.True(t, errors.Is(err, dispositivo.ErrReferenceNotFound), "references from an undone snapshot stay stale")
}

func TestUndoHistoryIsBounded(t *testing.T) {
	sessao := newSessao(t, WithLimiteHistorico(2))
	for _, texto := range []string{"um", "dois", "três"} {
		dispatch(t, sessao, acao.AtualizarTextoAction.Execute(ref(t, sessao, "art3"), texto))
	}
	assert.True(t, sessao.Undo())
	assert.True(t, sessao.Undo())
	assert.False(t, sessao.Undo())
	node, _ := sessao.Arvore().Node("art3")
	assert.Equal(t, "um", node.Texto)
}

func TestModeCapabilities(t *testing.T) {
	t.Run("texto livre allows no action", func(t *testing.T) {
		sessao := newSessao(t, WithModo(emenda.ModoEmendaTextoLivre))
		_, err := sessao.Dispatch(acao.AtualizarTextoAction.Execute(ref(t, sessao, "art2"), "x"))
		assert.True(t, errors.Is(err, ErrAcaoNaoPermitida))
	})

	t.Run("substituicao de termo allows wording only", func(t *testing.T) {
		sessao := newSessao(t, WithModo(emenda.ModoEmendaSubstituicaoTermo))
		dispatch(t, sessao, acao.AtualizarTextoAction.Execute(ref(t, sessao, "art2"), "Termo trocado:"))
		_, err := sessao.Dispatch(acao.SuprimirElementoAction.Execute(ref(t, sessao, "art3")))
		assert.True(t, errors.Is(err, ErrAcaoNaoPermitida))
	})

	t.Run("artigo onde couber touches new dispositivos only", func(t *testing.T) {
		sessao := newSessao(t, WithModo(emenda.ModoEmendaArtigoOndeCouber))
		artigo := acao.AdicionarElementoAction.Execute(ref(t, sessao, "art3"), dispositivo.Artigo, dispositivo.PosicaoDepois, "Artigo novo:")
		dispatch(t, sessao, artigo)
		dispatch(t, sessao, acao.AdicionarElementoAction.Execute(ref(t, sessao, artigo.Novo.ID), dispositivo.Inciso, dispositivo.PosicaoDentro, "inciso novo."))
		dispatch(t, sessao, acao.AtualizarTextoAction.Execute(ref(t, sessao, artigo.Novo.ID), "Artigo novo revisto:"))

		_, err := sessao.Dispatch(acao.AdicionarElementoAction.Execute(ref(t, sessao, "art1"), dispositivo.Paragrafo, dispositivo.PosicaoDentro, "x"))
		assert.True(t, errors.Is(err, ErrAcaoNaoPermitida))
		_, err = sessao.Dispatch(acao.AtualizarTextoAction.Execute(ref(t, sessao, "art2"), "x"))
		assert.True(t, errors.Is(err, ErrAcaoNaoPermitida))
		_, err = sessao.Dispatch(acao.SuprimirElementoAction.Execute(ref(t, sessao, "art2")))
		assert.True(t, errors.Is(err, ErrAcaoNaoPermitida))
	})

	t.Run("mode switch keeps edits", func(t *testing.T) {
		sessao := newSessao(t)
		dispatch(t, sessao, acao.SuprimirElementoAction.Execute(ref(t, sessao, "art3")))
		require.NoError(t, sessao.SetModo(emenda.ModoEmendaTextoLivre))
		assert.Len(t, sessao.DispositivosEmenda(), 1)
		assert.Error(t, sessao.SetModo("qualquer"))
		assert.Equal(t, emenda.ModoEmendaTextoLivre, sessao.Modo())
	})
}

func TestComandoEmenda(t *testing.T) {
	sessao := newSessao(t)
	dispatch(t, sessao, acao.AtualizarTextoAction.Execute(ref(t, sessao, "art2"), "Nova redação:"))
	dispatch(t, sessao, acao.SuprimirElementoAction.Execute(ref(t, sessao, "art2_inc2")))
	dispatch(t, sessao, acao.SuprimirElementoAction.Execute(ref(t, sessao, "art3")))
	inciso := acao.AdicionarElementoAction.Execute(ref(t, sessao, "art1"), dispositivo.Inciso, dispositivo.PosicaoDentro, "novo inciso.")
	dispatch(t, sessao, inciso)

	expected := "Acrescente-se inciso II ao caput do art. 1º do Projeto, com a seguinte redação:\n“II – novo inciso.”" +
		"\n\nDê-se ao art. 2º do Projeto a seguinte redação:\n“Art. 2º Nova redação:”" +
		"\n\nSuprima-se o inciso II do caput do art. 2º do Projeto." +
		"\n\nSuprima-se o art. 3º do Projeto."
	assert.Equal(t, expected, sessao.ComandoEmenda())
}

func TestComandoQuotesAddedSubtree(t *testing.T) {
	sessao := newSessao(t)
	artigo := acao.AdicionarElementoAction.Execute(ref(t, sessao, "art1"), dispositivo.Artigo, dispositivo.PosicaoDepois, "Artigo novo:")
	dispatch(t, sessao, artigo)
	dispatch(t, sessao, acao.AdicionarElementoAction.Execute(ref(t, sessao, artigo.Novo.ID), dispositivo.Inciso, dispositivo.PosicaoDentro, "primeiro;"))
	dispatch(t, sessao, acao.AdicionarElementoAction.Execute(ref(t, sessao, artigo.Novo.ID), dispositivo.Paragrafo, dispositivo.PosicaoDentro, "Parágrafo do novo artigo."))

	expected := "Acrescente-se art. 1º-A ao Projeto, com a seguinte redação:\n" +
		"“Art. 1º-A Artigo novo:\n" +
		"I – primeiro;\n" +
		"Parágrafo único. Parágrafo do novo artigo.”"
	assert.Equal(t, expected, sessao.ComandoEmenda())
	assert.Len(t, sessao.DispositivosEmenda(), 3)
}

func TestComandoFeminineTargets(t *testing.T) {
	tree, err := dispositivo.Build([]dispositivo.Spec{
		{Tipo: dispositivo.Artigo, Numero: "1", Texto: "Caput:", Filhos: []dispositivo.Spec{
			{Tipo: dispositivo.Inciso, Numero: "I", Texto: "inciso:", Filhos: []dispositivo.Spec{
				{Tipo: dispositivo.Alinea, Numero: "a", Texto: "alínea a;"},
				{Tipo: dispositivo.Alinea, Numero: "b", Texto: "alínea b."},
			}},
		}},
	})
	require.NoError(t, err)
	sessao, err := New(tree)
	require.NoError(t, err)

	dispatch(t, sessao, acao.AtualizarTextoAction.Execute(ref(t, sessao, "art1_inc1_ali1"), "alínea a revista;"))
	dispatch(t, sessao, acao.SuprimirElementoAction.Execute(ref(t, sessao, "art1_inc1_ali2")))

	expected := "Dê-se à alínea a do inciso I do caput do art. 1º do Projeto a seguinte redação:\n“a) alínea a revista;”" +
		"\n\nSuprima-se a alínea b do inciso I do caput do art. 1º do Projeto."
	assert.Equal(t, expected, sessao.ComandoEmenda())
}

func editSession(t *testing.T, sessao *Sessao) {
	t.Helper()
	dispatch(t, sessao, acao.AdicionarElementoAction.Execute(ref(t, sessao, "art1_par1"), dispositivo.Paragrafo, dispositivo.PosicaoDepois, "Parágrafo novo."))
	artigo := acao.AdicionarElementoAction.Execute(ref(t, sessao, "art3"), dispositivo.Artigo, dispositivo.PosicaoDepois, "Artigo final:")
	dispatch(t, sessao, artigo)
	dispatch(t, sessao, acao.AdicionarElementoAction.Execute(ref(t, sessao, artigo.Novo.ID), dispositivo.Inciso, dispositivo.PosicaoDentro, "único inciso."))
	dispatch(t, sessao, acao.AtualizarTextoAction.Execute(ref(t, sessao, "art2_inc1"), "primeiro, revisto;"))
	dispatch(t, sessao, acao.SuprimirElementoAction.Execute(ref(t, sessao, "art2_inc2")))
	dispatch(t, sessao, acao.RenumerarElementoAction.Execute(ref(t, sessao, "art1_par2"), "3"))
}

func TestCarregarDispositivosEmendaReproducesTheTree(t *testing.T) {
	original := newSessao(t)
	editSession(t, original)
	edits := original.DispositivosEmenda()

	loaded := newSessao(t)
	dispatch(t, loaded, acao.SuprimirElementoAction.Execute(ref(t, loaded, "art1")))
	require.NoError(t, loaded.CarregarDispositivosEmenda(edits))

	if diff := cmp.Diff(edits, loaded.DispositivosEmenda()); diff != "" {
		t.Errorf("replayed edits mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, labels(original.Arvore()), labels(loaded.Arvore()))
	assert.Equal(t, original.ComandoEmenda(), loaded.ComandoEmenda())
	assert.False(t, loaded.PodeDesfazer(), "loading discards history")
}

func TestCarregarDispositivosEmendaIsAtomic(t *testing.T) {
	sessao := newSessao(t)
	dispatch(t, sessao, acao.SuprimirElementoAction.Execute(ref(t, sessao, "art3")))
	before := sessao.Arvore()

	err := sessao.CarregarDispositivosEmenda([]emenda.DispositivoEdit{
		{ID: "x1", Tipo: dispositivo.Artigo, Situacao: dispositivo.SituacaoAdicionado, IDPai: dispositivo.RaizID, IDPosicaoAnterior: "art1"},
		{ID: "x2", Tipo: dispositivo.Paragrafo, Situacao: dispositivo.SituacaoAdicionado, IDPai: "missing"},
	})
	assert.True(t, errors.Is(err, dispositivo.ErrReferenceNotFound))
	assert.Same(t, before, sessao.Arvore())
	assert.True(t, sessao.PodeDesfazer())
}

func TestCarregarKeepsEditsInsideSuppressedDispositivos(t *testing.T) {
	original := newSessao(t)
	dispatch(t, original, acao.AdicionarElementoAction.Execute(
		ref(t, original, "art3"), dispositivo.Paragrafo, dispositivo.PosicaoDentro, "Parágrafo novo."))
	dispatch(t, original, acao.AtualizarTextoAction.Execute(ref(t, original, "art3"), "Texto novo."))
	dispatch(t, original, acao.SuprimirElementoAction.Execute(ref(t, original, "art3")))
	dispatch(t, original, acao.AtualizarTextoAction.Execute(ref(t, original, "art2_inc1"), "primeiro, reescrito;"))
	dispatch(t, original, acao.SuprimirElementoAction.Execute(ref(t, original, "art2")))
	edits := original.DispositivosEmenda()

	loaded := newSessao(t)
	require.NoError(t, loaded.CarregarDispositivosEmenda(edits))

	if diff := cmp.Diff(edits, loaded.DispositivosEmenda()); diff != "" {
		t.Errorf("replayed edits mismatch (-want +got):\n%s", diff)
	}
	art3, ok := loaded.Arvore().Node("art3")
	require.True(t, ok)
	assert.Equal(t, "Texto novo.", art3.Texto)
	assert.Equal(t, dispositivo.SituacaoSuprimido, art3.Situacao)
	require.Len(t, loaded.Arvore().Filhos("art3"), 1)
	inc, _ := loaded.Arvore().Node("art2_inc1")
	assert.Equal(t, "primeiro, reescrito;", inc.Texto)

	comando := loaded.ComandoEmenda()
	assert.Equal(t, original.ComandoEmenda(), comando)
	assert.Contains(t, comando, "Suprima-se o art. 2º do Projeto.")
	assert.NotContains(t, comando, "Suprima-se o inciso")
}

func TestEditorRoundTrip(t *testing.T) {
	projeto := &norma.ProjetoNorma{
		Metadado:    norma.Metadado{Identificacao: norma.Identificacao{Urn: "urn:lex:br:federal:lei:2020-05-04;14010"}},
		Sigla:       "LEI",
		Numero:      "14010",
		Ano:         "2020",
		Articulacao: articulacao(),
	}
	start := func() (*Sessao, *emenda.Editor) {
		tree, err := projeto.Arvore(nil)
		require.NoError(t, err)
		sessao, err := New(tree)
		require.NoError(t, err)
		return sessao, emenda.NewEditor(projeto, sessao)
	}

	sessao, editor := start()
	editSession(t, sessao)
	first, err := editor.GetEmenda()
	require.NoError(t, err)
	first.Justificativa = "Ajustes."
	require.NoError(t, editor.SetEmenda(first))

	again, err := editor.GetEmenda()
	require.NoError(t, err)
	if diff := cmp.Diff(first, again); diff != "" {
		t.Errorf("setEmenda(getEmenda()) mismatch (-want +got):\n%s", diff)
	}

	otherSessao, otherEditor := start()
	require.NoError(t, otherEditor.SetEmenda(again))
	loaded, err := otherEditor.GetEmenda()
	require.NoError(t, err)
	if diff := cmp.Diff(first, loaded); diff != "" {
		t.Errorf("amendment loaded into a fresh session mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, labels(sessao.Arvore()), labels(otherSessao.Arvore()))
}

func TestMetricsCountDispatches(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewMetrics(registry)
	require.NoError(t, err)
	shared, err := NewMetrics(registry)
	require.NoError(t, err, "a second session reuses the registered collectors")

	sessao := newSessao(t, WithMetrics(metrics), WithModo(emenda.ModoEmendaSubstituicaoTermo))
	dispatch(t, sessao, acao.AtualizarTextoAction.Execute(ref(t, sessao, "art2"), "x"))
	_, err = sessao.Dispatch(acao.SuprimirElementoAction.Execute(ref(t, sessao, "art3")))
	require.Error(t, err)
	sessao.Undo()

	assert.Equal(t, 1.0, testutil.ToFloat64(shared.acoes.WithLabelValues(string(acao.AtualizarTexto), resultadoAplicada)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.acoes.WithLabelValues(string(acao.SuprimirElemento), resultadoRejeitada)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.historico.WithLabelValues(operacaoDesfazer)))

	conflicting := newSessao(t, WithMetrics(metrics))
	_, err = conflicting.Dispatch(acao.ElementoAction{
		Type:  acao.AdicionarElemento,
		Atual: ref(t, conflicting, "art2"),
		Novo:  &acao.Novo{ID: "dup", Tipo: dispositivo.Artigo, Numero: "3"},
	})
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.conflitos))
}
