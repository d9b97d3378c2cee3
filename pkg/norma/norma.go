// Package norma reads the "projeto de norma" produced by the document
// converter: the identification of the target norm and its articulação.
package norma

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/emenda/pkg/dispositivo"
	"github.com/coolbeans/emenda/pkg/renumeracao"
)

// ErrUrnInvalida is returned by GetUrn when the norm cannot be identified.
var ErrUrnInvalida = errors.New("target norm urn cannot be resolved")

// Identificacao carries the norm's uniform resource name.
type Identificacao struct {
	Urn string `json:"urn" yaml:"urn"`
}

// Metadado is the metadata block of a projeto de norma.
type Metadado struct {
	Identificacao Identificacao `json:"identificacao" yaml:"identificacao"`
}

// ProjetoNorma is a converted norm ready for amendment.
type ProjetoNorma struct {
	Metadado    Metadado           `json:"metadado" yaml:"metadado"`
	Sigla       string             `json:"sigla,omitempty" yaml:"sigla,omitempty"`
	Numero      string             `json:"numero,omitempty" yaml:"numero,omitempty"`
	Ano         string             `json:"ano,omitempty" yaml:"ano,omitempty"`
	Ementa      string             `json:"ementa,omitempty" yaml:"ementa,omitempty"`
	Articulacao []dispositivo.Spec `json:"articulacao" yaml:"articulacao"`
}

// GetUrn resolves the URN of the target norm. LexML URNs look like
// urn:lex:br:federal:lei:2020-05-04;14010 and need at least a locality, an
// authority and a document kind after the urn:lex prefix.
func GetUrn(projeto *ProjetoNorma) (string, error) {
	if projeto == nil {
		return "", fmt.Errorf("%w: no projeto de norma", ErrUrnInvalida)
	}
	urn := strings.TrimSpace(projeto.Metadado.Identificacao.Urn)
	if urn == "" {
		return "", fmt.Errorf("%w: empty urn", ErrUrnInvalida)
	}
	if !strings.HasPrefix(urn, "urn:lex:") {
		return "", fmt.Errorf("%w: %q is not a LexML urn", ErrUrnInvalida, urn)
	}
	segmentos := strings.Split(urn, ":")
	if len(segmentos) < 5 {
		return "", fmt.Errorf("%w: %q is incomplete", ErrUrnInvalida, urn)
	}
	for _, segmento := range segmentos {
		if segmento == "" {
			return "", fmt.Errorf("%w: %q has an empty segment", ErrUrnInvalida, urn)
		}
	}
	return urn, nil
}

// Parse decodes a projeto de norma from JSON or YAML.
func Parse(data []byte) (*ProjetoNorma, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty projeto de norma")
	}
	var projeto ProjetoNorma
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &projeto); err != nil {
			return nil, fmt.Errorf("failed to parse projeto de norma: %w", err)
		}
	} else if err := yaml.Unmarshal(trimmed, &projeto); err != nil {
		return nil, fmt.Errorf("failed to parse projeto de norma: %w", err)
	}
	return &projeto, nil
}

// LoadFile reads a projeto de norma from disk.
func LoadFile(path string) (*ProjetoNorma, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Arvore builds the dispositivo tree of the norm and labels every scope.
func (projeto *ProjetoNorma) Arvore(engine *renumeracao.Engine) (*dispositivo.Tree, error) {
	tree, err := dispositivo.Build(projeto.Articulacao)
	if err != nil {
		return nil, fmt.Errorf("failed to build articulacao: %w", err)
	}
	if engine == nil {
		engine = renumeracao.NewEngine(nil)
	}
	return engine.RenumberAll(tree)
}
