package sessao

import (
	"strings"

	"github.com/coolbeans/emenda/pkg/dispositivo"
	"github.com/coolbeans/emenda/pkg/emenda"
)

// ComandoEmenda writes the amendment's instructions in legislative language,
// one paragraph per affected dispositivo:
//
//	Dê-se ao art. 2º do Projeto a seguinte redação:
//	“Art. 2º Nova redação.”
//
// Added subtrees are written once, with every added descendant quoted.
func (sessao *Sessao) ComandoEmenda() string {
	return Comando(sessao.base, sessao.atual, sessao.DispositivosEmenda())
}

// Comando renders the instructions for edits computed by Diff.
func Comando(base, atual *dispositivo.Tree, edits []emenda.DispositivoEdit) string {
	var comandos []string
	for _, edit := range edits {
		switch {
		case !base.Has(edit.ID):
			// Descendants of an added dispositivo are quoted under it.
			if !base.Has(edit.IDPai) {
				continue
			}
			comandos = append(comandos, acrescimo(base, atual, edit))
		case edit.Situacao == dispositivo.SituacaoSuprimido:
			// Reworded nodes inside a suppressed subtree go with it.
			if nodeOf(atual, nodeOf(atual, edit.ID).Pai).Situacao == dispositivo.SituacaoSuprimido {
				continue
			}
			comandos = append(comandos, "Suprima-se "+artigoDefinido(edit.Tipo)+" "+citar(base, edit.ID)+" do Projeto.")
		default:
			comandos = append(comandos, "Dê-se "+contracao(edit.Tipo)+" "+citar(base, edit.ID)+
				" do Projeto a seguinte redação:\n"+citacaoTextual([]dispositivo.Node{nodeOf(atual, edit.ID)}))
		}
	}
	return strings.Join(comandos, "\n\n")
}

func acrescimo(base, atual *dispositivo.Tree, edit emenda.DispositivoEdit) string {
	node := nodeOf(atual, edit.ID)
	local := dispositivo.Referencial(node.Tipo, node.Numero, false)
	if node.Tipo == dispositivo.Paragrafo && node.Rotulo == "Parágrafo único." {
		local = "parágrafo único"
	}

	var destino string
	pai := nodeOf(base, edit.IDPai)
	switch {
	case pai.Tipo == dispositivo.Articulacao || pai.Tipo.Agrupador() || node.Tipo == dispositivo.Artigo:
		destino = "ao Projeto"
	case pai.Tipo == dispositivo.Artigo && node.Tipo == dispositivo.Inciso:
		destino = "ao caput do " + citar(base, pai.ID) + " do Projeto"
	default:
		destino = contracao(pai.Tipo) + " " + citar(base, pai.ID) + " do Projeto"
	}

	var bloco []dispositivo.Node
	atual.WalkFrom(edit.ID, func(visited dispositivo.Node) bool {
		if base.Has(visited.ID) {
			return false
		}
		bloco = append(bloco, visited)
		return true
	})
	return "Acrescente-se " + local + " " + destino + ", com a seguinte redação:\n" + citacaoTextual(bloco)
}

// citar renders the full citation of a dispositivo inside its article, from
// the innermost level outwards: "alínea a do inciso I do caput do art. 1º".
func citar(tree *dispositivo.Tree, id dispositivo.ID) string {
	node := nodeOf(tree, id)
	if node.Tipo == dispositivo.Artigo || node.Tipo.Agrupador() {
		return tree.Citacao(id)
	}
	citacao := tree.Citacao(id)
	for node.Pai != "" {
		pai := nodeOf(tree, node.Pai)
		if pai.Tipo == dispositivo.Articulacao || pai.Tipo.Agrupador() {
			break
		}
		if node.Tipo == dispositivo.Inciso && pai.Tipo == dispositivo.Artigo {
			citacao += " do caput"
		}
		citacao += " " + preposicao(pai.Tipo) + " " + tree.Citacao(pai.ID)
		if pai.Tipo == dispositivo.Artigo {
			break
		}
		node = pai
	}
	return citacao
}

func citacaoTextual(nodes []dispositivo.Node) string {
	linhas := make([]string, len(nodes))
	for i, node := range nodes {
		linha := strings.TrimSpace(node.Rotulo + " " + node.Texto)
		if i == 0 {
			linha = "“" + linha
		}
		if i == len(nodes)-1 {
			linha += "”"
		}
		linhas[i] = linha
	}
	return strings.Join(linhas, "\n")
}

func nodeOf(tree *dispositivo.Tree, id dispositivo.ID) dispositivo.Node {
	node, _ := tree.Node(id)
	return node
}

func feminino(tipo dispositivo.Tipo) bool {
	switch tipo {
	case dispositivo.Alinea, dispositivo.Parte, dispositivo.Secao, dispositivo.Subsecao:
		return true
	}
	return false
}

func artigoDefinido(tipo dispositivo.Tipo) string {
	if feminino(tipo) {
		return "a"
	}
	return "o"
}

func contracao(tipo dispositivo.Tipo) string {
	if feminino(tipo) {
		return "à"
	}
	return "ao"
}

func preposicao(tipo dispositivo.Tipo) string {
	if feminino(tipo) {
		return "da"
	}
	return "do"
}
