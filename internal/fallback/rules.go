package fallback

// DefaultRules returns the built-in rule list. Keywords cover English and
// Japanese phrasings; replies are rendered from the corpus so they never
// drift from the knowledge base.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "services",
			Keywords: []string{"service", "サービス", "offer"},
			Template: `We offer the following services:
{{range .Services}}
- {{.Name}}: {{.Description}}{{range .Features}}
  - {{.}}{{end}}{{end}}

Which service are you interested in?`,
		},
		{
			Name:     "pricing",
			Keywords: []string{"price", "pricing", "cost", "fee", "料金", "価格", "費用"},
			Template: `Pricing depends on the scope of each project.
{{range .Services}}{{if .Price}}
- {{.Name}}: {{.Price}}{{end}}{{end}}

{{with .Contact.Consultation}}Note: {{.}}.
{{end}}Tell us about your requirements and we will propose the best plan.`,
		},
		{
			Name:     "contact",
			Keywords: []string{"contact", "phone", "email", "連絡先", "電話", "メール"},
			Template: `{{with .Contact}}{{if .Phone}}Phone: {{.Phone}}
{{end}}{{if .Email}}Email: {{.Email}}
{{end}}{{if .BusinessHours}}Business hours: {{.BusinessHours}}
{{end}}{{if .Office}}Office: {{.Office}}
{{end}}{{end}}
Feel free to get in touch!`,
		},
		{
			Name:     "form",
			Keywords: []string{"form", "fill in", "フォーム", "入力", "記入"},
			Template: `Here are some tips for the inquiry form:
- Your name and email address are required.
- The company name is optional, but it helps us make a more specific proposal.
- Please describe your inquiry as concretely as possible.

If you are unsure which service to choose, tell us about your industry and challenges and we will suggest one.`,
		},
		{
			Name:     "greeting",
			Keywords: []string{"hello", "hi there", "good morning", "こんにちは", "はじめまして", "初めまして"},
			Template: `Hello! I am the {{with .Company.Name}}{{.}} {{end}}AI assistant.

I can answer questions about our services and help you fill in the inquiry form. How can I help you today?`,
		},
		{
			Name:     "thanks",
			Keywords: []string{"thank", "ありがとう", "助かりました", "参考になりました"},
			Template: `You are welcome, I am glad I could help!

If you have any other questions, just ask. Once the form is complete, please go ahead and submit it.`,
		},
		{
			Name:     "schedule",
			Keywords: []string{"schedule", "timeline", "how long", "いつ", "期間", "スケジュール"},
			Template: `Typical project timelines:
- Small projects: 1-3 months
- Medium projects: 3-6 months
- Large projects: 6 months or more

A project usually runs through a free first consultation, detailed hearing, proposal, contract, development and launch. Phased rollouts are possible.`,
		},
		{
			Name:     "technical",
			Keywords: []string{"technology", "technical", "system", "development", "技術", "システム", "開発"},
			Template: `{{if .Results}}Here is what I found:
{{range $i, $r := .Results}}{{inc $i}}. {{$r.Content}}
{{end}}{{else}}We build and operate systems across web, cloud and AI.{{end}}
We will propose the technology stack that best fits your requirements.`,
		},
		{
			Name: "interest",
			Kind: KindInterest,
			Template: `{{with .Interest}}Thank you for your interest in {{.Name}}.
{{.Description}}{{range .Features}}
- {{.}}{{end}}{{if .Price}}

Price: {{.Price}}{{end}}{{end}}

Let us know what you would like to achieve and we will follow up.`,
		},
		{
			Name: "default",
			Kind: KindDefault,
			Template: `Thank you for your message!{{if .Results}}

Here is some information that may help:
{{range $i, $r := .Results}}{{inc $i}}. {{$r.Content}}
{{end}}{{end}}
I can help with:
- choosing a service
- drafting your inquiry message
- pricing and contact information
- filling in the inquiry form
{{with .Contact.Email}}
You can also reach us at {{.}}.{{end}}`,
		},
	}
}
