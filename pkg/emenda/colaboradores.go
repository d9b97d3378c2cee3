package emenda

import "sync"

// Justificativa keeps the justification text in memory.
type Justificativa struct {
	mu    sync.RWMutex
	texto string
}

func (justificativa *Justificativa) Texto() string {
	justificativa.mu.RLock()
	defer justificativa.mu.RUnlock()
	return justificativa.texto
}

func (justificativa *Justificativa) SetContent(texto string) {
	justificativa.mu.Lock()
	defer justificativa.mu.Unlock()
	justificativa.texto = texto
}

// AutoriaMemoria keeps the authorship in memory.
type AutoriaMemoria struct {
	mu      sync.RWMutex
	autoria Autoria
}

// NewAutoriaMemoria starts with an empty individual authorship.
func NewAutoriaMemoria() *AutoriaMemoria {
	return &AutoriaMemoria{autoria: NewAutoria()}
}

func (autoriaMemoria *AutoriaMemoria) AutoriaAtualizada() Autoria {
	autoriaMemoria.mu.RLock()
	defer autoriaMemoria.mu.RUnlock()
	return autoriaMemoria.autoria.Clone()
}

func (autoriaMemoria *AutoriaMemoria) SetAutoria(autoria Autoria) {
	autoriaMemoria.mu.Lock()
	defer autoriaMemoria.mu.Unlock()
	autoriaMemoria.autoria = autoria.Clone()
}

// DataMemoria keeps the amendment date in memory. A nil date means unset.
type DataMemoria struct {
	mu   sync.RWMutex
	data *Data
}

func (dataMemoria *DataMemoria) Data() *Data {
	dataMemoria.mu.RLock()
	defer dataMemoria.mu.RUnlock()
	if dataMemoria.data == nil {
		return nil
	}
	copied := *dataMemoria.data
	return &copied
}

func (dataMemoria *DataMemoria) SetData(data *Data) {
	dataMemoria.mu.Lock()
	defer dataMemoria.mu.Unlock()
	if data == nil {
		dataMemoria.data = nil
		return
	}
	copied := *data
	dataMemoria.data = &copied
}
