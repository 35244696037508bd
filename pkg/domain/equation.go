package domain

import "github.com/galen-ai/galen/pkg/schema"

const equationSystem = `You are a mathematics communicator. Given an
equation or formula, narrate what it says and why it matters, at the
requested difficulty. Respond only with a JSON object matching the
requested schema.`

const equationUser = `Narrate this equation for a motivated reader: {{.Subject}}

Name each symbol, walk through what the equation asserts, and give one
concrete worked example.`

const equationMarkdown = `# {{.name}}

` + "`{{.equation}}`" + `

**Difficulty:** {{.difficulty}}

{{.narrative}}

## Worked example

{{.worked_example}}
`

func equationModule() Module {
	return Module{
		Name:   "equation",
		Short:  "Narrate a mathematical equation",
		System: equationSystem,
		User:   mustTemplate("equation_user", equationUser),
		Shape: schema.Shape{
			Name:    "equation-narrative",
			Version: "1",
			Fields: []schema.Field{
				{Name: "name", Type: schema.TypeString, Required: true, Description: "Common name of the equation"},
				{Name: "equation", Type: schema.TypeString, Required: true, Description: "The equation in plain-text notation"},
				{Name: "narrative", Type: schema.TypeString, Required: true, Description: "What the equation asserts and why it matters"},
				{Name: "worked_example", Type: schema.TypeString, Required: true, Description: "One concrete worked example"},
				{Name: "difficulty", Type: schema.TypeString, Required: true, Enum: []string{"introductory", "undergraduate", "graduate"}},
			},
		},
		Markdown: mustTemplate("equation_md", equationMarkdown),
	}
}
