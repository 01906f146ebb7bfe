package jsondesc

import (
	"encoding/json"
	"io"

	"cvrpga/internal/model"
)

// Loader reads the native JSON description: {capacity, edgeWeightType, nodes}.
type Loader struct{}

func (Loader) Name() string { return "json" }

func (Loader) Load(r io.Reader) (model.Description, error) {
	var d model.Description
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return model.Description{}, err
	}
	return d, nil
}
