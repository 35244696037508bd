package domain

import "github.com/galen-ai/galen/pkg/schema"

const interactionsSystem = `You are a clinical pharmacology assistant.
Describe drug-drug interactions conservatively; if evidence is weak,
say so in the summary. Respond only with a JSON object matching the
requested schema.`

const interactionsUser = `Summarize the clinically relevant interactions for: {{.Subject}}

The subject is either a single drug or a pair written as "drugA + drugB".
Include the mechanism when it is established.`

const interactionsMarkdown = `# Interaction summary: {{.drugs}}

**Severity:** {{.severity}}

{{.summary}}
{{with .mechanism}}
## Mechanism

{{.}}
{{end}}{{with .monitoring}}
## Monitoring

{{.}}
{{end}}`

func interactionsModule() Module {
	return Module{
		Name:   "interactions",
		Short:  "Summarize drug-drug interactions",
		System: interactionsSystem,
		User:   mustTemplate("interactions_user", interactionsUser),
		Shape: schema.Shape{
			Name:    "drug-interactions",
			Version: "1",
			Fields: []schema.Field{
				{Name: "drugs", Type: schema.TypeString, Required: true, Description: "The drug or drug pair assessed"},
				{Name: "summary", Type: schema.TypeString, Required: true, Description: "Clinical interaction summary"},
				{Name: "severity", Type: schema.TypeString, Required: true, Enum: []string{"none", "minor", "moderate", "major"}},
				{Name: "mechanism", Type: schema.TypeString, Description: "Pharmacologic mechanism, if established"},
				{Name: "monitoring", Type: schema.TypeString, Description: "Suggested monitoring or mitigation"},
			},
		},
		Markdown: mustTemplate("interactions_md", interactionsMarkdown),
	}
}
