package api

// SizeResponse is the body of GET /api/size
type SizeResponse struct {
	Size int `json:"size"`
}

// SchemaResponse describes the served collection. Columns maps every column
// name any model can emit to its value kind ("int" or "float").
type SchemaResponse struct {
	Size      int               `json:"size"`
	NumModels int               `json:"num_models"`
	SeqLen    int               `json:"seq_len"`
	Columns   map[string]string `json:"columns"`
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
