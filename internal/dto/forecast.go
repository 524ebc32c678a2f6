package dto

// ForecastEngineRequest follows the model-server "instances" REST format:
// one instance of shape [window][1].
type ForecastEngineRequest struct {
	Instances [][][]float64 `json:"instances"`
}

type ForecastEngineResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error,omitempty"`
}
