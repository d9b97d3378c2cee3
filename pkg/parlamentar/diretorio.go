package parlamentar

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/coolbeans/emenda/pkg/emenda"
)

// Lister is anything that can fetch the full legislator listing.
type Lister interface {
	Listar(ctx context.Context) ([]emenda.Parlamentar, error)
}

const todasAsCasas = ""

// Diretorio serves the legislator listing to the authorship editor. The list
// is fetched once and kept for the cache TTL. It is not on the critical path
// of editing: a failed fetch is logged and served as an empty list, and the
// next call tries again.
type Diretorio struct {
	lister Lister
	cache  *listaCache
	logger *zap.Logger
	fetch  sync.Mutex
}

// NewDiretorio creates a directory over lister. A non-positive ttl uses
// DefaultCacheTTL; a nil logger disables logging.
func NewDiretorio(lister Lister, ttl time.Duration, logger *zap.Logger) *Diretorio {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Diretorio{lister: lister, cache: newListaCache(ttl), logger: logger}
}

// Parlamentares returns every legislator sorted by name. Callers own the
// returned slice.
func (diretorio *Diretorio) Parlamentares(ctx context.Context) []emenda.Parlamentar {
	if parlamentares, ok := diretorio.cache.get(todasAsCasas); ok {
		return parlamentares
	}

	diretorio.fetch.Lock()
	defer diretorio.fetch.Unlock()
	if parlamentares, ok := diretorio.cache.get(todasAsCasas); ok {
		return parlamentares
	}

	parlamentares, err := diretorio.lister.Listar(ctx)
	if err != nil {
		diretorio.logger.Warn("Legislator directory unavailable", zap.Error(err))
		return []emenda.Parlamentar{}
	}
	sort.SliceStable(parlamentares, func(i, j int) bool {
		return parlamentares[i].Nome < parlamentares[j].Nome
	})
	diretorio.cache.set(todasAsCasas, parlamentares)
	diretorio.logger.Debug("Loaded legislator directory", zap.Int("parlamentares", len(parlamentares)))
	return append([]emenda.Parlamentar(nil), parlamentares...)
}

// PorCasa returns the legislators of one house ("SF", "CD", "CN").
func (diretorio *Diretorio) PorCasa(ctx context.Context, siglaCasa string) []emenda.Parlamentar {
	if parlamentares, ok := diretorio.cache.get(siglaCasa); ok {
		return parlamentares
	}
	filtrados := []emenda.Parlamentar{}
	todos := diretorio.Parlamentares(ctx)
	for _, parlamentar := range todos {
		if strings.EqualFold(parlamentar.SiglaCasaLegislativa, siglaCasa) {
			filtrados = append(filtrados, parlamentar)
		}
	}
	if len(todos) > 0 {
		diretorio.cache.set(siglaCasa, filtrados)
	}
	return filtrados
}

// Buscar returns the legislators whose name contains termo, ignoring case.
func (diretorio *Diretorio) Buscar(ctx context.Context, termo string) []emenda.Parlamentar {
	termo = strings.ToLower(strings.TrimSpace(termo))
	encontrados := []emenda.Parlamentar{}
	for _, parlamentar := range diretorio.Parlamentares(ctx) {
		if strings.Contains(strings.ToLower(parlamentar.Nome), termo) {
			encontrados = append(encontrados, parlamentar)
		}
	}
	return encontrados
}

// Identificar returns the legislator with the given identification.
func (diretorio *Diretorio) Identificar(ctx context.Context, id string) (emenda.Parlamentar, bool) {
	for _, parlamentar := range diretorio.Parlamentares(ctx) {
		if parlamentar.Identificacao == id {
			return parlamentar, true
		}
	}
	return emenda.Parlamentar{}, false
}

// recarregar drops the cached listing so the next call fetches it again.
func (diretorio *Diretorio) recarregar() {
	diretorio.cache.invalidate()
}
