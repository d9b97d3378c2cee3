package dispositivo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNumeroInvalido is returned when a numbering token cannot be parsed for a kind.
var ErrNumeroInvalido = errors.New("invalid numbering token")

// Numero is a parsed numbering token: a base written in the kind's numbering
// system, followed by zero or more letter suffixes ("1", "1-A", "IV-B", "a-A").
// Suffixes are stored as 1-based letter positions (A=1, Z=26, AA=27).
type Numero struct {
	Base    int
	Sufixos []int
}

// ParseNumero parses a numbering token for the given kind. A trailing ordinal
// indicator ("1º") is accepted and ignored.
func ParseNumero(tipo Tipo, token string) (Numero, error) {
	token = strings.TrimSpace(token)
	token = strings.TrimRight(token, "º°.")
	if token == "" {
		return Numero{}, fmt.Errorf("%w: empty token", ErrNumeroInvalido)
	}

	parts := strings.Split(token, "-")
	base, err := parseBase(tipo.Sistema(), strings.TrimRight(parts[0], "º°"))
	if err != nil {
		return Numero{}, fmt.Errorf("%w: %q for %s: %v", ErrNumeroInvalido, token, tipo, err)
	}

	numero := Numero{Base: base}
	for _, part := range parts[1:] {
		sufixo, ok := parseLetras(strings.ToUpper(part), 'A')
		if !ok {
			return Numero{}, fmt.Errorf("%w: %q for %s: bad suffix %q", ErrNumeroInvalido, token, tipo, part)
		}
		numero.Sufixos = append(numero.Sufixos, sufixo)
	}
	return numero, nil
}

// Format writes the token in the numbering system of the given kind.
func (numero Numero) Format(tipo Tipo) string {
	var builder strings.Builder
	builder.WriteString(formatBase(tipo.Sistema(), numero.Base))
	for _, sufixo := range numero.Sufixos {
		builder.WriteByte('-')
		builder.WriteString(formatLetras(sufixo, 'A'))
	}
	return builder.String()
}

// Compare orders tokens the way they appear in a legal text:
// 1 < 1-A < 1-A-A < 1-B < 2.
func (numero Numero) Compare(other Numero) int {
	if numero.Base != other.Base {
		if numero.Base < other.Base {
			return -1
		}
		return 1
	}
	for i := 0; i < len(numero.Sufixos) && i < len(other.Sufixos); i++ {
		if numero.Sufixos[i] != other.Sufixos[i] {
			if numero.Sufixos[i] < other.Sufixos[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(numero.Sufixos) < len(other.Sufixos):
		return -1
	case len(numero.Sufixos) > len(other.Sufixos):
		return 1
	}
	return 0
}

// ProximoSufixo returns the token that follows numero when inserting between
// existing dispositivos: 1 -> 1-A, 1-A -> 1-B.
func (numero Numero) ProximoSufixo() Numero {
	next := Numero{Base: numero.Base, Sufixos: append([]int(nil), numero.Sufixos...)}
	if len(next.Sufixos) == 0 {
		next.Sufixos = []int{1}
		return next
	}
	next.Sufixos[len(next.Sufixos)-1]++
	return next
}

// ProximaBase returns the next plain token: 2 -> 3, 2-A -> 3.
func (numero Numero) ProximaBase() Numero {
	return Numero{Base: numero.Base + 1}
}

// TemSufixo reports whether the token carries a letter suffix.
func (numero Numero) TemSufixo() bool {
	return len(numero.Sufixos) > 0
}

func parseBase(sistema SistemaNumeracao, texto string) (int, error) {
	switch sistema {
	case NumeracaoRomana:
		return parseRomano(texto)
	case NumeracaoAlfabetica:
		valor, ok := parseLetras(strings.ToLower(texto), 'a')
		if !ok {
			return 0, fmt.Errorf("not a letter sequence")
		}
		return valor, nil
	default:
		valor, err := strconv.Atoi(texto)
		if err != nil {
			return 0, err
		}
		if valor < 1 {
			return 0, fmt.Errorf("base must be positive")
		}
		return valor, nil
	}
}

func formatBase(sistema SistemaNumeracao, base int) string {
	switch sistema {
	case NumeracaoRomana:
		return formatRomano(base)
	case NumeracaoAlfabetica:
		return formatLetras(base, 'a')
	default:
		return strconv.Itoa(base)
	}
}

// parseLetras decodes a bijective base-26 letter sequence (A=1, Z=26, AA=27).
func parseLetras(texto string, primeira rune) (int, bool) {
	if texto == "" {
		return 0, false
	}
	valor := 0
	for _, letra := range texto {
		if letra < primeira || letra > primeira+25 {
			return 0, false
		}
		valor = valor*26 + int(letra-primeira) + 1
	}
	return valor, true
}

func formatLetras(valor int, primeira rune) string {
	if valor < 1 {
		return ""
	}
	var letras []rune
	for valor > 0 {
		valor--
		letras = append([]rune{primeira + rune(valor%26)}, letras...)
		valor /= 26
	}
	return string(letras)
}

var romanos = []struct {
	valor   int
	simbolo string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func formatRomano(valor int) string {
	if valor < 1 {
		return ""
	}
	var builder strings.Builder
	for _, romano := range romanos {
		for valor >= romano.valor {
			builder.WriteString(romano.simbolo)
			valor -= romano.valor
		}
	}
	return builder.String()
}

func parseRomano(texto string) (int, error) {
	texto = strings.ToUpper(texto)
	if texto == "" {
		return 0, fmt.Errorf("empty roman numeral")
	}
	valor := 0
	resto := texto
	for _, romano := range romanos {
		for strings.HasPrefix(resto, romano.simbolo) {
			valor += romano.valor
			resto = resto[len(romano.simbolo):]
		}
	}
	// Round-tripping rejects non-canonical forms such as IIII or VX.
	if resto != "" || formatRomano(valor) != texto {
		return 0, fmt.Errorf("not a canonical roman numeral")
	}
	return valor, nil
}
