package domain

import "github.com/galen-ai/galen/pkg/schema"

const reviewSystem = `You are an editorial reviewer for health and
science articles. Judge clarity, accuracy signals, and structure; do
not fact-check individual claims. Respond only with a JSON object
matching the requested schema.`

const reviewUser = `Review the following article draft:

{{.Subject}}

Assess it for a general readership and list the most impactful
revisions first.`

const reviewMarkdown = `# Article review

**Verdict:** {{.verdict}}

{{.assessment}}

## Suggested revisions
{{range .revisions}}
- {{.}}{{end}}
`

func reviewModule() Module {
	return Module{
		Name:   "review",
		Short:  "Review an article draft",
		System: reviewSystem,
		User:   mustTemplate("review_user", reviewUser),
		Shape: schema.Shape{
			Name:    "article-review",
			Version: "1",
			Fields: []schema.Field{
				{Name: "assessment", Type: schema.TypeString, Required: true, Description: "Overall editorial assessment"},
				{Name: "verdict", Type: schema.TypeString, Required: true, Enum: []string{"accept", "minor_revisions", "major_revisions", "reject"}},
				{Name: "revisions", Type: schema.TypeArray, Required: true, Description: "Suggested revisions, most impactful first"},
				{Name: "tone_notes", Type: schema.TypeString, Description: "Notes on tone and readability"},
			},
		},
		Markdown: mustTemplate("review_md", reviewMarkdown),
	}
}
