package dispositivo

import (
	"fmt"
	"strings"
)

// Spec describes a subtree of a norm as produced by a document converter.
type Spec struct {
	Tipo   Tipo   `json:"tipo" yaml:"tipo"`
	Numero string `json:"numero,omitempty" yaml:"numero,omitempty"`
	Texto  string `json:"texto,omitempty" yaml:"texto,omitempty"`
	Filhos []Spec `json:"filhos,omitempty" yaml:"filhos,omitempty"`
}

// RaizID is the identifier given to the root of trees built from a Spec.
const RaizID ID = "articulacao"

// Build creates a tree whose nodes all exist in the norm. Identifiers follow
// the LexML convention of joining kind prefixes and numbers along the path
// ("art1_par2_inc3"); articles are identified document-wide ("art5") and
// groupers by their own grouper path ("tit1_cap2"). Unnumbered nodes fall back
// to their position under the parent ("cap1_artx2"). Labels are not computed;
// run the renumbering engine on the result.
func Build(especificacao []Spec) (*Tree, error) {
	tree := &Tree{
		raiz:   RaizID,
		nodes:  map[ID]*Node{RaizID: {ID: RaizID, Tipo: Articulacao, ExistenteNaNorma: true, Situacao: SituacaoOriginal}},
		versao: proximaVersao(),
	}
	for index, spec := range especificacao {
		if err := tree.buildNode(RaizID, "", index, spec); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func (tree *Tree) buildNode(paiID ID, prefixo string, index int, spec Spec) error {
	pai := tree.nodes[paiID]
	if !PodeConter(pai.Tipo, spec.Tipo) {
		return fmt.Errorf("%w: %s cannot contain %s", ErrEstruturaInvalida, pai.Tipo, spec.Tipo)
	}

	segmento := tipos[spec.Tipo].prefixoID + idNumero(spec, index)
	var id ID
	switch {
	case spec.Tipo == Artigo && spec.Numero != "":
		id = ID(segmento)
	case prefixo == "":
		id = ID(segmento)
	default:
		id = ID(prefixo + "_" + segmento)
	}
	if _, exists := tree.nodes[id]; exists {
		return fmt.Errorf("%w: duplicate dispositivo %s", ErrEstruturaInvalida, id)
	}

	node := &Node{
		ID:               id,
		Tipo:             spec.Tipo,
		Numero:           spec.Numero,
		Texto:            spec.Texto,
		ExistenteNaNorma: true,
		Situacao:         SituacaoOriginal,
		Pai:              paiID,
	}
	if err := (&Builder{base: tree}).checkOrdem(pai.Tipo, append(pai.Filhos, id), *node); err != nil {
		return err
	}
	tree.nodes[id] = node
	pai.Filhos = append(pai.Filhos, id)

	// Articles restart the path; groupers keep their own chain.
	childPrefix := string(id)
	for childIndex, child := range spec.Filhos {
		if err := tree.buildNode(id, childPrefix, childIndex, child); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
	}
	return nil
}

func idNumero(spec Spec, index int) string {
	if spec.Numero == "" {
		return fmt.Sprintf("x%d", index+1)
	}
	numero, err := ParseNumero(spec.Tipo, spec.Numero)
	if err != nil {
		return strings.NewReplacer(" ", "", "º", "").Replace(spec.Numero)
	}
	// LexML ids always carry arabic values: inc4, ali2, art1-1.
	parts := []string{fmt.Sprint(numero.Base)}
	for _, sufixo := range numero.Sufixos {
		parts = append(parts, fmt.Sprint(sufixo))
	}
	return strings.Join(parts, "-")
}

// Spec converts a subtree back into its Spec form, ignoring amendment state.
func (tree *Tree) Spec(id ID) Spec {
	node := tree.nodes[id]
	spec := Spec{Tipo: node.Tipo, Numero: node.Numero, Texto: node.Texto}
	for _, filho := range node.Filhos {
		spec.Filhos = append(spec.Filhos, tree.Spec(filho))
	}
	return spec
}
