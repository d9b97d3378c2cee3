package parlamentar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/emenda/pkg/emenda"
)

const listagem = `[
	{"id": 5012, "nome": "Zélia Souza", "sexo": "F", "siglaPartido": "ABC", "siglaUF": "DF", "siglaCasa": "SF"},
	{"id": "204554", "nome": "Antônio Lima", "sexo": "M", "siglaPartido": "XYZ", "siglaUF": "SP", "siglaCasa": "CD"}
]`

func newServer(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		assert.Equal(t, DefaultUserAgent, request.Header.Get("User-Agent"))
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(status)
		_, _ = writer.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client := NewClient(ClientConfig{URL: url, RateLimit: time.Millisecond})
	t.Cleanup(client.Close)
	return client
}

func TestListarMapsRecords(t *testing.T) {
	server := newServer(t, http.StatusOK, listagem, nil)
	parlamentares, err := newTestClient(t, server.URL).Listar(context.Background())
	require.NoError(t, err)
	require.Len(t, parlamentares, 2)
	assert.Equal(t, emenda.Parlamentar{
		Identificacao:        "5012",
		Nome:                 "Zélia Souza",
		Sexo:                 "F",
		SiglaPartido:         "ABC",
		SiglaUF:              "DF",
		SiglaCasaLegislativa: "SF",
	}, parlamentares[0])
	assert.Equal(t, "204554", parlamentares[1].Identificacao)
}

func TestListarFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`},
		{name: "not found", status: http.StatusNotFound, body: ``},
		{name: "malformed body", status: http.StatusOK, body: `{"id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newServer(t, tt.status, tt.body, nil)
			_, err := newTestClient(t, server.URL).Listar(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestRateLimitedClientHonorsContext(t *testing.T) {
	limited := NewRateLimitedHTTPClient(http.DefaultClient, time.Hour)
	defer limited.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.invalid", nil)
	require.NoError(t, err)
	_, err = limited.Do(request)
	assert.True(t, errors.Is(err, context.Canceled))
}

type fakeLister struct {
	calls         int
	err           error
	parlamentares []emenda.Parlamentar
}

func (fake *fakeLister) Listar(context.Context) ([]emenda.Parlamentar, error) {
	fake.calls++
	if fake.err != nil {
		return nil, fake.err
	}
	return append([]emenda.Parlamentar(nil), fake.parlamentares...), nil
}

func sampleParlamentares() []emenda.Parlamentar {
	return []emenda.Parlamentar{
		{Identificacao: "2", Nome: "Zélia Souza", SiglaCasaLegislativa: "SF"},
		{Identificacao: "1", Nome: "Antônio Lima", SiglaCasaLegislativa: "CD"},
		{Identificacao: "3", Nome: "Beatriz Costa", SiglaCasaLegislativa: "SF"},
	}
}

func TestDiretorioLoadsOnce(t *testing.T) {
	lister := &fakeLister{parlamentares: sampleParlamentares()}
	diretorio := NewDiretorio(lister, time.Hour, nil)

	first := diretorio.Parlamentares(context.Background())
	require.Len(t, first, 3)
	assert.Equal(t, "Antônio Lima", first[0].Nome, "sorted by name")

	first[0].Nome = "changed by caller"
	second := diretorio.Parlamentares(context.Background())
	assert.Equal(t, "Antônio Lima", second[0].Nome, "callers get copies")
	assert.Equal(t, 1, lister.calls)

	senado := diretorio.PorCasa(context.Background(), "sf")
	assert.Len(t, senado, 2)
	assert.Len(t, diretorio.Buscar(context.Background(), "COSTA"), 1)
	parlamentar, ok := diretorio.Identificar(context.Background(), "2")
	require.True(t, ok)
	assert.Equal(t, "Zélia Souza", parlamentar.Nome)
	assert.Equal(t, 1, lister.calls)

	diretorio.recarregar()
	diretorio.Parlamentares(context.Background())
	assert.Equal(t, 2, lister.calls)
}

func TestDiretorioFailureYieldsEmptyListAndRetries(t *testing.T) {
	lister := &fakeLister{err: errors.New("offline")}
	diretorio := NewDiretorio(lister, time.Hour, nil)

	parlamentares := diretorio.Parlamentares(context.Background())
	assert.NotNil(t, parlamentares)
	assert.Empty(t, parlamentares)
	assert.Empty(t, diretorio.PorCasa(context.Background(), "SF"))

	lister.err = nil
	lister.parlamentares = sampleParlamentares()
	assert.Len(t, diretorio.Parlamentares(context.Background()), 3, "failures are not cached")
}

func TestDiretorioExpiresEntries(t *testing.T) {
	lister := &fakeLister{parlamentares: sampleParlamentares()}
	diretorio := NewDiretorio(lister, time.Minute, nil)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	diretorio.cache.now = func() time.Time { return now }

	diretorio.Parlamentares(context.Background())
	now = now.Add(30 * time.Second)
	diretorio.Parlamentares(context.Background())
	assert.Equal(t, 1, lister.calls)

	now = now.Add(time.Minute)
	diretorio.Parlamentares(context.Background())
	assert.Equal(t, 2, lister.calls)
}

func TestDiretorioOverHTTP(t *testing.T) {
	var hits int32
	server := newServer(t, http.StatusOK, listagem, &hits)
	diretorio := NewDiretorio(newTestClient(t, server.URL), 0, nil)

	assert.Len(t, diretorio.Parlamentares(context.Background()), 2)
	assert.Len(t, diretorio.PorCasa(context.Background(), "CD"), 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
