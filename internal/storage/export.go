package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/keplersim/internal/dynamo"
)

type ExportData struct {
	RunMetadata
	Steps  int         `json:"steps"`
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
	Energy []float64   `json:"energy"`
	// AngularMomentum is L along the trajectory.
	AngularMomentum []float64 `json:"angular_momentum"`
}

// NewExportData bundles a run with its H and L series.
func NewExportData(meta RunMetadata, sys dynamo.System, result *dynamo.Result) ExportData {
	data := ExportData{
		RunMetadata: Describe(meta, result),
		Steps:       len(result.Times),
		Times:       result.Times,
		States:      make([][]float64, len(result.States)),
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	if h, ok := sys.(dynamo.Hamiltonian); ok {
		data.Energy = make([]float64, len(result.States))
		for i, s := range result.States {
			data.Energy[i] = h.Energy(s)
		}
	}
	if l, ok := sys.(dynamo.AngularMomentum); ok {
		data.AngularMomentum = make([]float64, len(result.States))
		for i, s := range result.States {
			data.AngularMomentum[i] = l.AngularMomentum(s)
		}
	}
	return data
}

func ExportJSON(w io.Writer, data ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
