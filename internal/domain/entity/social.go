package entity

import jsoniter "github.com/json-iterator/go"

// SocialResults maps token id to the raw search payload. A JSON null marks a failed search.
type SocialResults map[string]jsoniter.RawMessage

// SocialReport summarises one social search pass.
type SocialReport struct {
	RunID     string `json:"runId"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// NullPayload is stored for tokens whose search could not be completed.
var NullPayload = jsoniter.RawMessage("null")
