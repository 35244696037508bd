package domain

import "github.com/galen-ai/galen/pkg/schema"

const faqSystem = `You are a patient-education writer. Answer in plain
language a layperson can follow. Respond only with a JSON object
matching the requested schema.`

const faqUser = `Produce a patient FAQ for: {{.Subject}}

Write the question a patient would actually ask, a direct answer, and
a short note on when to seek professional care.`

const faqMarkdown = `## {{.question}}

{{.answer}}
{{with .when_to_seek_care}}
**When to seek care:** {{.}}
{{end}}
*Reading level: {{.reading_level}}*
`

func faqModule() Module {
	return Module{
		Name:   "faq",
		Short:  "Generate a patient FAQ entry",
		System: faqSystem,
		User:   mustTemplate("faq_user", faqUser),
		Shape: schema.Shape{
			Name:    "patient-faq",
			Version: "1",
			Fields: []schema.Field{
				{Name: "question", Type: schema.TypeString, Required: true, Description: "The question as a patient would phrase it"},
				{Name: "answer", Type: schema.TypeString, Required: true, Description: "Plain-language answer"},
				{Name: "when_to_seek_care", Type: schema.TypeString, Description: "Signs that warrant professional attention"},
				{Name: "reading_level", Type: schema.TypeString, Required: true, Enum: []string{"basic", "intermediate", "advanced"}},
			},
		},
		Markdown: mustTemplate("faq_md", faqMarkdown),
	}
}
