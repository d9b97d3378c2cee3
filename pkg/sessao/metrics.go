package sessao

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts editing activity of sessions sharing a registry.
type Metrics struct {
	acoes     *prometheus.CounterVec
	conflitos prometheus.Counter
	historico *prometheus.CounterVec
}

// NewMetrics creates the session collectors and registers them. Collectors
// already registered by an earlier session are reused.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	acoes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "emenda",
		Subsystem: "sessao",
		Name:      "acoes_total",
		Help:      "Element actions dispatched, by action type and result.",
	}, []string{"tipo", "resultado"})
	conflitos := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "emenda",
		Subsystem: "sessao",
		Name:      "conflitos_numeracao_total",
		Help:      "Actions rolled back because renumbering hit a pinned number.",
	})
	historico := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "emenda",
		Subsystem: "sessao",
		Name:      "historico_total",
		Help:      "Undo and redo operations, by direction.",
	}, []string{"operacao"})

	var err error
	if acoes, err = register(registerer, acoes); err != nil {
		return nil, err
	}
	if conflitos, err = register(registerer, conflitos); err != nil {
		return nil, err
	}
	if historico, err = register(registerer, historico); err != nil {
		return nil, err
	}
	return &Metrics{acoes: acoes, conflitos: conflitos, historico: historico}, nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) (C, error) {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return collector, err
	}
	return collector, nil
}

const (
	resultadoAplicada  = "aplicada"
	resultadoRejeitada = "rejeitada"
	resultadoConflito  = "conflito"
	resultadoFalha     = "falha"
	operacaoDesfazer   = "desfazer"
	operacaoRefazer    = "refazer"
)

func (metrics *Metrics) acao(tipo string, resultado string) {
	if metrics == nil {
		return
	}
	metrics.acoes.WithLabelValues(tipo, resultado).Inc()
	if resultado == resultadoConflito {
		metrics.conflitos.Inc()
	}
}

func (metrics *Metrics) operacao(operacao string) {
	if metrics == nil {
		return
	}
	metrics.historico.WithLabelValues(operacao).Inc()
}
