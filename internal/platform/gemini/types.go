package gemini

import "github.com/phrazzld/wordmon-api/internal/domain/evolution"

// branchResponse is the reply schema of the branches prompt.
type branchResponse struct {
	Family     string                      `json:"family"`
	Candidates []evolution.BranchCandidate `json:"candidates"`
}

type ascendedResponse struct {
	Word string `json:"word"`
}

type hiddenMoveResponse struct {
	Move string `json:"move"`
}

type definitionResponse struct {
	Unknown bool     `json:"unknown"`
	Origin  string   `json:"origin"`
	Tags    []string `json:"tags"`
	Zipf    *float64 `json:"zipf"`
}
