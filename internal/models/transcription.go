package models

// TranscriptionResult is the output of the document-analysis pipeline for one
// attachment, keyed by the originating message id. Results arrive unordered
// relative to message delivery and may never arrive at all.
type TranscriptionResult struct {
	AttachmentKey string               `json:"attachment_key"`
	RawText       string               `json:"raw_text,omitempty"`
	Tables        []TranscriptionTable `json:"tables,omitempty"`
	Entities      []Entity             `json:"entities,omitempty"`
	Confidence    float64              `json:"confidence"`
}

// TranscriptionTable is one extracted table, rows of cell strings.
type TranscriptionTable struct {
	Rows [][]string `json:"rows"`
}

// Entity is a typed span recognized in the document text.
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
