package model

// Attachment is a named binary payload carried alongside a result item.
// Data is base64-encoded automatically by encoding/json.
type Attachment struct {
	Data     []byte `json:"data"`
	FileName string `json:"fileName,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// ResultItem is one record of the output stream. One OperationRequest may
// yield zero, one, or many result items (a multi-row read yields one per
// row). JSON always includes at least the operation plus contextual fields.
type ResultItem struct {
	JSON   map[string]any `json:"json"`
	Binary *Attachment    `json:"binary,omitempty"`
	// PairedItem is the index of the input item this result was produced
	// from, so downstream consumers can correlate results with inputs.
	PairedItem int `json:"pairedItem"`
}

// NewResultItem builds a ResultItem for the given input item index.
func NewResultItem(itemIndex int, json map[string]any) ResultItem {
	return ResultItem{JSON: json, PairedItem: itemIndex}
}

// ErrorItem builds the synthetic per-item error record appended in
// continue-on-failure mode.
func ErrorItem(itemIndex int, err error) ResultItem {
	return ResultItem{
		JSON: map[string]any{
			"error":     err.Error(),
			"itemIndex": itemIndex,
		},
		PairedItem: itemIndex,
	}
}
