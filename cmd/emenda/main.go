package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/coolbeans/emenda/pkg/acao"
	"github.com/coolbeans/emenda/pkg/config"
	"github.com/coolbeans/emenda/pkg/dispositivo"
	"github.com/coolbeans/emenda/pkg/emenda"
	"github.com/coolbeans/emenda/pkg/norma"
	"github.com/coolbeans/emenda/pkg/parlamentar"
	"github.com/coolbeans/emenda/pkg/renumeracao"
	"github.com/coolbeans/emenda/pkg/sessao"
	"github.com/coolbeans/emenda/pkg/store"
	"github.com/coolbeans/emenda/pkg/vigia"
)

var version = "0.1.0"

var (
	configPath string
	debug      bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "emenda",
		Short: "Legislative amendment editor",
		Long: `Emenda edits amendments (emendas) to Brazilian bills and norms.

It loads the articulação of a projeto de norma, applies element actions
(add, suppress, renumber, reword), keeps the numbering of the norm intact
while fitting new dispositivos around it, and assembles the amendment with
its natural-language command, justification and authorship.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err = newLogger(cfg.Logging, debug)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "emenda.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(renumerarCmd())
	rootCmd.AddCommand(aplicarCmd())
	rootCmd.AddCommand(montarCmd())
	rootCmd.AddCommand(emendasCmd())
	rootCmd.AddCommand(parlamentaresCmd())
	rootCmd.AddCommand(configCmd())
	return rootCmd
}

func newLogger(logging config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if logging.Format == "console" {
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if logging.Debug || verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	built, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return built, nil
}

func renumerarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "renumerar",
		Short: "Label every dispositivo of a projeto de norma",
		Long: `Load a projeto de norma (JSON or YAML), build its dispositivo tree and
compute every rótulo.

Example:
  emenda renumerar --norma pl-2338.yaml
  emenda renumerar --norma pl-2338.yaml --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			normaPath, _ := cmd.Flags().GetString("norma")
			format, _ := cmd.Flags().GetString("format")

			projeto, err := norma.LoadFile(normaPath)
			if err != nil {
				return err
			}
			tree, err := projeto.Arvore(renumeracao.NewEngine(logger))
			if err != nil {
				return err
			}
			return imprimirArvore(cmd.OutOrStdout(), tree, format)
		},
	}
	cmd.Flags().String("norma", "", "Projeto de norma file (required)")
	cmd.Flags().String("format", "text", "Output format: text, json")
	_ = cmd.MarkFlagRequired("norma")
	return cmd
}

// passo is one scripted action. Scripts name their target by id; the
// reference is pinned against the session's current tree when the step runs.
type passo struct {
	Type acao.ActionType `json:"type"`
	ID   dispositivo.ID  `json:"id"`
	Novo *acao.Novo      `json:"novo,omitempty"`
}

func aplicarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aplicar",
		Short: "Apply a script of element actions and assemble the amendment",
		Long: `Apply a JSON script of element actions to a projeto de norma and print
the resulting amendment.

A script is a list of steps:
  [{"type": "ADICIONAR_ELEMENTO", "id": "art1_par1",
    "novo": {"tipo": "Paragrafo", "posicao": "depois", "texto": "Novo parágrafo."}},
   {"type": "SUPRIMIR_ELEMENTO", "id": "art3"}]

Action types:
` + tiposAcao() + `
Example:
  emenda aplicar --norma pl.yaml --acoes acoes.json --justificativa "..." --salvar`,
		RunE: func(cmd *cobra.Command, args []string) error {
			run := aplicacao{}
			run.normaPath, _ = cmd.Flags().GetString("norma")
			run.acoesPath, _ = cmd.Flags().GetString("acoes")
			run.modo, _ = cmd.Flags().GetString("modo")
			run.justificativa, _ = cmd.Flags().GetString("justificativa")
			run.data, _ = cmd.Flags().GetString("data")
			run.output, _ = cmd.Flags().GetString("output")
			run.salvar, _ = cmd.Flags().GetBool("salvar")
			run.id, _ = cmd.Flags().GetString("id")
			run.metricas, _ = cmd.Flags().GetString("metrics")
			vigiar, _ := cmd.Flags().GetBool("vigiar")

			if err := run.executar(cmd); err != nil || !vigiar {
				return err
			}

			watcher, err := vigia.New([]string{run.normaPath, run.acoesPath}, vigia.DefaultDebounce, logger)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			fmt.Fprintln(cmd.ErrOrStderr(), "Watching for changes (Ctrl-C to stop)...")
			err = watcher.Run(ctx, func(paths []string) {
				logger.Info("Rebuilding amendment", zap.Strings("changed", paths))
				if err := run.executar(cmd); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().String("norma", "", "Projeto de norma file (required)")
	cmd.Flags().String("acoes", "", "JSON script of element actions (required)")
	cmd.Flags().String("modo", "", "Edit mode (default from config)")
	cmd.Flags().String("justificativa", "", "Justification text")
	cmd.Flags().String("data", "", "Amendment date (YYYY-MM-DD)")
	cmd.Flags().StringP("output", "o", "", "Write the amendment JSON to a file")
	cmd.Flags().Bool("salvar", false, "Save the amendment to the store")
	cmd.Flags().String("id", "", "Store id (default: new UUID)")
	cmd.Flags().String("metrics", "", "Write session metrics in Prometheus text format to a file (- for stderr)")
	cmd.Flags().Bool("vigiar", false, "Rebuild whenever the norma or script file changes")
	_ = cmd.MarkFlagRequired("norma")
	_ = cmd.MarkFlagRequired("acoes")
	return cmd
}

func tiposAcao() string {
	var b strings.Builder
	for _, descritor := range acao.Catalogo() {
		fmt.Fprintf(&b, "  %-22s %s\n", descritor.Type(), descritor.Descricao())
	}
	return b.String()
}

// aplicacao is one run of the aplicar command. It is rerun as is when its
// input files change; a store id generated by the first save is reused.
type aplicacao struct {
	normaPath, acoesPath string
	modo                 string
	justificativa, data  string
	output               string
	salvar               bool
	id                   string
	metricas             string
}

func (run *aplicacao) executar(cmd *cobra.Command) error {
	projeto, sessaoEdicao, err := abrirSessao(run.normaPath, run.modo)
	if err != nil {
		return err
	}
	passos, err := lerPassos(run.acoesPath)
	if err != nil {
		return err
	}
	for i, step := range passos {
		if err := executarPasso(sessaoEdicao, step); err != nil {
			return fmt.Errorf("step %d (%s %s): %w", i+1, step.Type, step.ID, err)
		}
	}

	options, err := colaboradores(run.justificativa, run.data)
	if err != nil {
		return err
	}
	amendment, err := emenda.NewEditor(projeto, sessaoEdicao, options...).GetEmenda()
	if err != nil {
		return err
	}

	if run.salvar {
		err := comStore(func(amendmentStore *store.Store) error {
			id, err := amendmentStore.Save(cmd.Context(), run.id, amendment)
			if err != nil {
				return err
			}
			run.id = id
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved amendment %s\n", run.id)
	}
	if err := escreverEmenda(cmd.OutOrStdout(), run.output, amendment); err != nil {
		return err
	}
	if run.metricas == "" {
		return nil
	}
	if run.metricas == "-" {
		return escreverMetricas(cmd.ErrOrStderr(), prometheus.DefaultGatherer)
	}
	file, err := os.Create(run.metricas)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", run.metricas, err)
	}
	defer file.Close()
	return escreverMetricas(file, prometheus.DefaultGatherer)
}

// escreverMetricas dumps the emenda collectors in the Prometheus text format.
func escreverMetricas(out io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), "emenda_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(out, family); err != nil {
			return err
		}
	}
	return nil
}

func montarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "montar",
		Short: "Load an amendment onto its norm and print the amended text",
		Long: `Replay the dispositivos of an amendment onto its projeto de norma and
print the amended articulação and the amendment command.

Example:
  emenda montar --norma pl.yaml --emenda emenda.json
  emenda montar --norma pl.yaml --id 0b6c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			normaPath, _ := cmd.Flags().GetString("norma")
			emendaPath, _ := cmd.Flags().GetString("emenda")
			id, _ := cmd.Flags().GetString("id")
			format, _ := cmd.Flags().GetString("format")

			amendment, err := carregarEmenda(cmd.Context(), emendaPath, id)
			if err != nil {
				return err
			}
			projeto, sessaoEdicao, err := abrirSessao(normaPath, string(amendment.ModoEdicao))
			if err != nil {
				return err
			}
			editor := emenda.NewEditor(projeto, sessaoEdicao, emenda.WithLogger(logger))
			if err := editor.SetEmenda(amendment); err != nil {
				return err
			}

			if err := imprimirArvore(cmd.OutOrStdout(), sessaoEdicao.Arvore(), format); err != nil {
				return err
			}
			if format == "text" {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", sessaoEdicao.ComandoEmenda())
			}
			return nil
		},
	}
	cmd.Flags().String("norma", "", "Projeto de norma file (required)")
	cmd.Flags().String("emenda", "", "Amendment JSON file")
	cmd.Flags().String("id", "", "Stored amendment id")
	cmd.Flags().String("format", "text", "Output format: text, json")
	_ = cmd.MarkFlagRequired("norma")
	return cmd
}

func emendasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emendas",
		Short: "Manage stored amendments",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored amendments",
		RunE: func(cmd *cobra.Command, args []string) error {
			urn, _ := cmd.Flags().GetString("urn")
			return comStore(func(amendmentStore *store.Store) error {
				registros, err := amendmentStore.List(cmd.Context(), urn)
				if err != nil {
					return err
				}
				if len(registros) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No amendments stored.")
					return nil
				}
				for _, registro := range registros {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-24s  %s  %s\n",
						registro.ID, registro.Modo, registro.AtualizadoEm.Format("2006-01-02 15:04"), registro.Urn)
				}
				return nil
			})
		},
	}
	list.Flags().String("urn", "", "Only amendments to this norm")

	show := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a stored amendment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return comStore(func(amendmentStore *store.Store) error {
				amendment, err := amendmentStore.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return escreverEmenda(cmd.OutOrStdout(), "", amendment)
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove [id]",
		Short: "Delete a stored amendment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return comStore(func(amendmentStore *store.Store) error {
				if err := amendmentStore.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(list, show, remove)
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the --config path",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
			}
			if err := config.DefaultConfig().Save(configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func parlamentaresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parlamentares",
		Short: "List legislators available as authors",
		Long: `Fetch the legislator directory.

Example:
  emenda parlamentares --casa SF
  emenda parlamentares --busca silva
  emenda parlamentares --id 5012`,
		RunE: func(cmd *cobra.Command, args []string) error {
			casa, _ := cmd.Flags().GetString("casa")
			busca, _ := cmd.Flags().GetString("busca")
			id, _ := cmd.Flags().GetString("id")

			client := parlamentar.NewClient(parlamentar.ClientConfig{
				URL:       cfg.Parlamentares.URL,
				RateLimit: cfg.GetIntervalo(),
				Timeout:   cfg.GetTimeout(),
			})
			defer client.Close()
			diretorio := parlamentar.NewDiretorio(client, cfg.GetTTL(), logger)

			var parlamentares []emenda.Parlamentar
			switch {
			case id != "":
				encontrado, ok := diretorio.Identificar(cmd.Context(), id)
				if !ok {
					return fmt.Errorf("legislator %q not found", id)
				}
				parlamentares = []emenda.Parlamentar{encontrado}
			case busca != "":
				parlamentares = diretorio.Buscar(cmd.Context(), busca)
			case casa != "":
				parlamentares = diretorio.PorCasa(cmd.Context(), casa)
			default:
				parlamentares = diretorio.Parlamentares(cmd.Context())
			}
			for _, parlamentar := range parlamentares {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-40s %s/%s %s\n",
					parlamentar.Identificacao, parlamentar.Nome, parlamentar.SiglaPartido,
					parlamentar.SiglaUF, parlamentar.SiglaCasaLegislativa)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d legislators\n", len(parlamentares))
			return nil
		},
	}
	cmd.Flags().String("casa", "", "Legislative house (SF, CD, CN)")
	cmd.Flags().String("busca", "", "Search by name")
	cmd.Flags().String("id", "", "Show the legislator with this identification")
	return cmd
}

func abrirSessao(normaPath, modo string) (*norma.ProjetoNorma, *sessao.Sessao, error) {
	if modo == "" {
		modo = cfg.Sessao.Modo
	}
	modoEdicao, err := emenda.ParseModoEdicao(modo)
	if err != nil {
		return nil, nil, err
	}
	projeto, err := norma.LoadFile(normaPath)
	if err != nil {
		return nil, nil, err
	}
	engine := renumeracao.NewEngine(logger)
	tree, err := projeto.Arvore(engine)
	if err != nil {
		return nil, nil, err
	}
	metrics, err := sessao.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, nil, err
	}
	sessaoEdicao, err := sessao.New(tree,
		sessao.WithEngine(engine),
		sessao.WithMetrics(metrics),
		sessao.WithLogger(logger),
		sessao.WithModo(modoEdicao),
		sessao.WithLimiteHistorico(cfg.Sessao.LimiteHistorico))
	if err != nil {
		return nil, nil, err
	}
	return projeto, sessaoEdicao, nil
}

func lerPassos(path string) ([]passo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var passos []passo
	if err := json.Unmarshal(data, &passos); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return passos, nil
}

func executarPasso(sessaoEdicao *sessao.Sessao, step passo) error {
	if _, ok := acao.Lookup(step.Type); !ok {
		return fmt.Errorf("%w: %s", acao.ErrUnknownAction, step.Type)
	}
	referencia, err := sessaoEdicao.Referencia(step.ID)
	if err != nil {
		return err
	}
	action := acao.ElementoAction{Type: step.Type, Atual: referencia, Novo: step.Novo}
	if step.Type == acao.AdicionarElemento {
		novo := acao.Novo{}
		if step.Novo != nil {
			novo = *step.Novo
		}
		if novo.ID == "" {
			novo.ID = dispositivo.ID(uuid.NewString())
		}
		action.Novo = &novo
	}
	_, err = sessaoEdicao.Dispatch(action)
	return err
}

func colaboradores(justificativa, data string) ([]emenda.EditorOption, error) {
	texto := &emenda.Justificativa{}
	texto.SetContent(justificativa)
	options := []emenda.EditorOption{emenda.WithLogger(logger), emenda.WithJustificativa(texto)}
	if data != "" {
		parsed, err := emenda.ParseData(data)
		if err != nil {
			return nil, err
		}
		dataMemoria := &emenda.DataMemoria{}
		dataMemoria.SetData(parsed)
		options = append(options, emenda.WithData(dataMemoria))
	}
	return options, nil
}

func carregarEmenda(ctx context.Context, path, id string) (*emenda.Emenda, error) {
	switch {
	case path != "" && id != "":
		return nil, fmt.Errorf("use either --emenda or --id")
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return emenda.Unmarshal(data)
	case id != "":
		var amendment *emenda.Emenda
		err := comStore(func(amendmentStore *store.Store) error {
			var loadErr error
			amendment, loadErr = amendmentStore.Load(ctx, id)
			return loadErr
		})
		return amendment, err
	}
	return nil, fmt.Errorf("--emenda or --id is required")
}

func comStore(run func(*store.Store) error) error {
	amendmentStore, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer amendmentStore.Close()
	return run(amendmentStore)
}

func escreverEmenda(stdout io.Writer, output string, amendment *emenda.Emenda) error {
	data, err := emenda.Marshal(amendment)
	if err != nil {
		return err
	}
	if output == "" {
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	return nil
}

func imprimirArvore(out io.Writer, tree *dispositivo.Tree, format string) error {
	switch format {
	case "json":
		var nodes []dispositivo.Node
		tree.Walk(func(node dispositivo.Node) bool {
			if node.ID != tree.Raiz() {
				nodes = append(nodes, node)
			}
			return true
		})
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(nodes)
	case "text", "":
		depth := map[dispositivo.ID]int{tree.Raiz(): -1}
		tree.Walk(func(node dispositivo.Node) bool {
			if node.ID == tree.Raiz() {
				return true
			}
			depth[node.ID] = depth[node.Pai] + 1
			marker := ""
			if node.Situacao != dispositivo.SituacaoOriginal {
				marker = " [" + string(node.Situacao) + "]"
			}
			fmt.Fprintf(out, "%s%s%s\n", strings.Repeat("  ", depth[node.ID]),
				strings.TrimSpace(node.Rotulo+" "+node.Texto), marker)
			return true
		})
		return nil
	}
	return fmt.Errorf("unknown format %q (valid: text, json)", format)
}
