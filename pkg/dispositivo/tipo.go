// Package dispositivo models the normative structure of a legal text as an
// arena of nodes (dispositivos) addressed by stable identifiers. Trees are
// persistent: every edit goes through a Builder and yields a new Tree that
// shares unchanged nodes with its predecessor, so earlier snapshots stay valid
// for undo/redo and concurrent readers.
package dispositivo

import "fmt"

// Tipo identifies the kind of a dispositivo.
type Tipo string

const (
	// Articulacao is the root of every tree; it is never numbered.
	Articulacao Tipo = "Articulacao"
	Parte       Tipo = "Parte"
	Livro       Tipo = "Livro"
	Titulo      Tipo = "Titulo"
	Capitulo    Tipo = "Capitulo"
	Secao       Tipo = "Secao"
	Subsecao    Tipo = "Subsecao"
	Artigo      Tipo = "Artigo"
	Paragrafo   Tipo = "Paragrafo"
	Inciso      Tipo = "Inciso"
	Alinea      Tipo = "Alinea"
	Item        Tipo = "Item"
)

// SistemaNumeracao is the system used to write the base of a numbering token.
type SistemaNumeracao int

const (
	// NumeracaoArabica writes bases as decimal integers (1, 2, 10).
	NumeracaoArabica SistemaNumeracao = iota
	// NumeracaoRomana writes bases as upper-case roman numerals (I, IV, XII).
	NumeracaoRomana
	// NumeracaoAlfabetica writes bases as lower-case letters (a, z, aa).
	NumeracaoAlfabetica
)

type tipoInfo struct {
	sistema   SistemaNumeracao
	prefixoID string
	hierarquia int
}

var tipos = map[Tipo]tipoInfo{
	Articulacao: {sistema: NumeracaoArabica, prefixoID: "", hierarquia: 0},
	Parte:       {sistema: NumeracaoRomana, prefixoID: "prt", hierarquia: 1},
	Livro:       {sistema: NumeracaoRomana, prefixoID: "liv", hierarquia: 2},
	Titulo:      {sistema: NumeracaoRomana, prefixoID: "tit", hierarquia: 3},
	Capitulo:    {sistema: NumeracaoRomana, prefixoID: "cap", hierarquia: 4},
	Secao:       {sistema: NumeracaoRomana, prefixoID: "sec", hierarquia: 5},
	Subsecao:    {sistema: NumeracaoRomana, prefixoID: "sub", hierarquia: 6},
	Artigo:      {sistema: NumeracaoArabica, prefixoID: "art", hierarquia: 7},
	Paragrafo:   {sistema: NumeracaoArabica, prefixoID: "par", hierarquia: 8},
	Inciso:      {sistema: NumeracaoRomana, prefixoID: "inc", hierarquia: 9},
	Alinea:      {sistema: NumeracaoAlfabetica, prefixoID: "ali", hierarquia: 10},
	Item:        {sistema: NumeracaoArabica, prefixoID: "ite", hierarquia: 11},
}

// Valid reports whether the kind is one of the known dispositivo kinds.
func (tipo Tipo) Valid() bool {
	_, ok := tipos[tipo]
	return ok
}

// Agrupador reports whether the kind only groups articles (Parte through Subsecao).
func (tipo Tipo) Agrupador() bool {
	info, ok := tipos[tipo]
	return ok && info.hierarquia >= 1 && info.hierarquia <= 6
}

// Sistema returns the numbering system used by the kind.
func (tipo Tipo) Sistema() SistemaNumeracao {
	return tipos[tipo].sistema
}

// PodeConter reports whether a node of kind pai may directly contain a node
// of kind filho.
func PodeConter(pai, filho Tipo) bool {
	if !pai.Valid() || !filho.Valid() || filho == Articulacao {
		return false
	}
	switch {
	case pai == Articulacao || pai.Agrupador():
		// Groupers nest strictly downwards and may hold articles directly.
		return filho == Artigo || (filho.Agrupador() && tipos[filho].hierarquia > tipos[pai].hierarquia)
	case pai == Artigo:
		return filho == Paragrafo || filho == Inciso
	case pai == Paragrafo:
		return filho == Inciso
	case pai == Inciso:
		return filho == Alinea
	case pai == Alinea:
		return filho == Item
	}
	return false
}

// ordemNoPai ranks children so that caput incisos always precede paragraphs
// inside an article. Children of every other parent share the same rank.
func ordemNoPai(pai, filho Tipo) int {
	if pai == Artigo && filho == Paragrafo {
		return 1
	}
	return 0
}

// ParseTipo converts a kind name into a Tipo.
func ParseTipo(nome string) (Tipo, error) {
	tipo := Tipo(nome)
	if !tipo.Valid() {
		return "", fmt.Errorf("unknown dispositivo kind %q", nome)
	}
	return tipo, nil
}
