// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package assist

import (
	"strings"
	"text/template"

	"gitlab.com/tozd/go/errors"
)

var repositoryPrompt = template.Must(template.New("repository").Parse(`You are an AI assistant specialized in analyzing GitHub repositories.

Repository Details:
Name: {{.Name}}
Owner: {{.Owner}}
Description: {{.Description}}
Primary Language: {{.Language}}

User Query: {{.Query}}

Please provide a helpful, accurate, and concise response to the query based on the repository information.
`))

var codePrompt = template.Must(template.New("code").Parse(`You are an AI coding assistant specialized in analyzing code.

Code Content:

{{.Code}}


User Query: {{.Query}}

Please provide a helpful, accurate, and concise response to the query based on the provided code.
`))

var documentationPrompt = template.Must(template.New("documentation").Parse(`You are a technical writer documenting a GitHub repository.

Repository Details:
Name: {{.Name}}
Owner: {{.Owner}}
Description: {{.Description}}
Primary Language: {{.Language}}

Files:
{{.Paths}}

Write a README style overview: what the project does, how it is laid out, and how to get started. Use markdown.
`))

func renderPrompt(tmpl *template.Template, data map[string]string) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", errors.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return sb.String(), nil
}
