package gemini

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// Template names.
const (
	promptBranches   = "branches.tmpl"
	promptAscended   = "ascended.tmpl"
	promptHiddenMove = "hidden_move.tmpl"
	promptDefinition = "definition.tmpl"
)

type promptData struct {
	Word   string
	Family string
	Words  []string
}

func renderPrompt(name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}
