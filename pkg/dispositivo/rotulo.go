package dispositivo

import (
	"fmt"
	"strings"
)

// Rotulo derives the local label of a dispositivo from its kind and numbering
// token. unico marks the only member of its numbering scope, which turns a
// paragraph numbered 1 into "Parágrafo único.". An empty token yields an empty
// label; an unparseable token is rendered verbatim.
func Rotulo(tipo Tipo, numero string, unico bool) string {
	if numero == "" || tipo == Articulacao {
		return ""
	}
	parsed, err := ParseNumero(tipo, numero)
	if err != nil {
		return rotuloLiteral(tipo, numero)
	}

	switch tipo {
	case Artigo:
		return "Art. " + ordinal(parsed, tipo)
	case Paragrafo:
		if unico && parsed.Base == 1 && !parsed.TemSufixo() {
			return "Parágrafo único."
		}
		return "§ " + ordinal(parsed, tipo)
	case Inciso:
		return parsed.Format(tipo) + " –"
	case Alinea:
		return parsed.Format(tipo) + ")"
	case Item:
		return parsed.Format(tipo) + "."
	}
	return prefixoAgrupador(tipo) + " " + parsed.Format(tipo)
}

// ordinal renders arabic tokens the way articles and paragraphs are written:
// ordinal up to nine ("1º", "9º-A"), cardinal with a trailing period from ten
// on ("10.", "10-A.").
func ordinal(numero Numero, tipo Tipo) string {
	formatted := numero.Format(tipo)
	if numero.Base <= 9 {
		base := fmt.Sprintf("%dº", numero.Base)
		return base + strings.TrimPrefix(formatted, fmt.Sprint(numero.Base))
	}
	return formatted + "."
}

func rotuloLiteral(tipo Tipo, numero string) string {
	switch tipo {
	case Artigo:
		return "Art. " + numero
	case Paragrafo:
		return "§ " + numero
	case Inciso:
		return numero + " –"
	case Alinea:
		return numero + ")"
	case Item:
		return numero + "."
	}
	return prefixoAgrupador(tipo) + " " + numero
}

func prefixoAgrupador(tipo Tipo) string {
	switch tipo {
	case Parte:
		return "PARTE"
	case Livro:
		return "LIVRO"
	case Titulo:
		return "TÍTULO"
	case Capitulo:
		return "CAPÍTULO"
	case Secao:
		return "Seção"
	case Subsecao:
		return "Subseção"
	}
	return string(tipo)
}

// Referencial renders a dispositivo the way it is cited inside running text:
// "art. 2º", "§ 1º", "parágrafo único", "inciso IV", "alínea a", "item 3".
func Referencial(tipo Tipo, numero string, unico bool) string {
	rotulo := Rotulo(tipo, numero, unico)
	switch tipo {
	case Artigo:
		return "art. " + strings.TrimSuffix(strings.TrimPrefix(rotulo, "Art. "), ".")
	case Paragrafo:
		if rotulo == "Parágrafo único." {
			return "parágrafo único"
		}
		return strings.TrimSuffix(rotulo, ".")
	case Inciso:
		return "inciso " + strings.TrimSuffix(rotulo, " –")
	case Alinea:
		return "alínea " + strings.TrimSuffix(rotulo, ")")
	case Item:
		return "item " + strings.TrimSuffix(rotulo, ".")
	}
	if nome, ok := nomesAgrupador[tipo]; ok && rotulo != "" {
		return nome + strings.TrimPrefix(rotulo, prefixoAgrupador(tipo))
	}
	return rotulo
}

var nomesAgrupador = map[Tipo]string{
	Parte:    "Parte",
	Livro:    "Livro",
	Titulo:   "Título",
	Capitulo: "Capítulo",
	Secao:    "Seção",
	Subsecao: "Subseção",
}
