package domain

import "github.com/galen-ai/galen/pkg/schema"

const topicSystem = `You are a medical educator writing for a general audience.
Explain topics accurately, cite no sources you are not certain of, and
respond only with a JSON object matching the requested schema.`

const topicUser = `Write an overview of the medical topic: {{.Subject}}

Cover what it is, who it affects, typical presentation, and standard
management. Keep every field concise and factual.`

const topicMarkdown = `# {{.title}}

**Audience level:** {{.audience_level}}

{{.overview}}

## Presentation

{{.presentation}}

## Management

{{.management}}
{{with .caveats}}
> {{.}}
{{end}}`

func topicModule() Module {
	return Module{
		Name:   "topic",
		Short:  "Generate a medical topic overview",
		System: topicSystem,
		User:   mustTemplate("topic_user", topicUser),
		Shape: schema.Shape{
			Name:    "medical-topic",
			Version: "1",
			Fields: []schema.Field{
				{Name: "title", Type: schema.TypeString, Required: true, Description: "Topic title, 3-8 words"},
				{Name: "overview", Type: schema.TypeString, Required: true, Description: "What the topic is and who it affects"},
				{Name: "presentation", Type: schema.TypeString, Required: true, Description: "Typical signs and symptoms"},
				{Name: "management", Type: schema.TypeString, Required: true, Description: "Standard management approach"},
				{Name: "audience_level", Type: schema.TypeString, Required: true, Enum: []string{"general", "student", "clinician"}},
				{Name: "caveats", Type: schema.TypeString, Description: "Important limitations or red flags"},
			},
		},
		Markdown: mustTemplate("topic_md", topicMarkdown),
	}
}
