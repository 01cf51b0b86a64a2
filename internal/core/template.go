package core

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// ExecuteTemplate renders content against data using the sprig function map.
func ExecuteTemplate(content string, data interface{}) (string, error) {
	// missingkey=zero allows optional variables (returning nil/zero), which works with Sprig's 'default'.
	// Use 'required' function from Sprig for mandatory variables.
	tmpl, err := template.New("forjar").Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(content)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
