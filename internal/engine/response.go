package engine

// tierResponse shapes mirror spec §4.D's per-tier required response keys.
// Confidence is a pointer so a JSON object that omits it decodes to nil
// ("undefined"), distinct from an explicit 0.

type hierarchyResponse struct {
	Action     string                 `json:"action"`
	ElementID  string                 `json:"element_id"`
	Parameters map[string]interface{} `json:"parameters"`
	Reasoning  string                 `json:"reasoning"`
	Confidence *float64               `json:"confidence"`
}

type taggedResponse struct {
	Action     string                 `json:"action"`
	TagID      *int                   `json:"tag_id"`
	Parameters map[string]interface{} `json:"parameters"`
	Reasoning  string                 `json:"reasoning"`
	Confidence *float64               `json:"confidence"`
}

type gridResponse struct {
	Action       string                 `json:"action"`
	GridPosition string                 `json:"grid_position"`
	Parameters   map[string]interface{} `json:"parameters"`
	Reasoning    string                 `json:"reasoning"`
	Confidence   *float64               `json:"confidence"`
}

type pureVisionResponse struct {
	Element    string                 `json:"element"`
	Location   *percentLocation       `json:"location"`
	Action     string                 `json:"action"`
	Parameters map[string]interface{} `json:"parameters"`
	Reasoning  string                 `json:"reasoning"`
	Confidence *float64               `json:"confidence"`
}

type percentLocation struct {
	XPercent float64 `json:"x_percent"`
	YPercent float64 `json:"y_percent"`
}

type verificationResponse struct {
	Passed     bool     `json:"passed"`
	Assertions []string `json:"assertions"`
	Issues     []string `json:"issues"`
	Confidence *float64 `json:"confidence"`
}
