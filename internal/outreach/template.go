package outreach

import (
	"bytes"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospector/internal/model"
)

// Template variables resolved per lead. Missing data degrades to neutral
// phrasing rather than leaving a hole in the letter.
type templateData struct {
	LeadName     string
	ContactFirst string
	Location     string
	IsManagement bool
}

const textBody = `Hi {{.ContactFirst}},

I came across {{.LeadName}}{{if .Location}} in {{.Location}}{{end}} and wanted
to reach out about how we help {{if .IsManagement}}management companies and the
communities they serve{{else}}community associations{{end}} fund capital
repairs without waiting months on a bank or forcing special assessments.

If it's useful, I'd be glad to set up a short call and walk through how it
works. No pitch, just another option for your toolkit.

Best regards
`

const htmlBody = `<p>Hi {{.ContactFirst}},</p>
<p>I came across <strong>{{.LeadName}}</strong>{{if .Location}} in {{.Location}}{{end}}
and wanted to reach out about how we help
{{if .IsManagement}}management companies and the communities they serve{{else}}community associations{{end}}
fund capital repairs without waiting months on a bank or forcing special assessments.</p>
<p>If it's useful, I'd be glad to set up a short call and walk through how it
works. No pitch, just another option for your toolkit.</p>
<p>Best regards</p>`

var (
	textTmpl = texttemplate.Must(texttemplate.New("text").Parse(textBody))
	htmlTmpl = template.Must(template.New("html").Parse(htmlBody))
)

// Render produces the subject and both bodies for an association lead.
func Render(subject string, lead *model.Lead) (string, string, string, error) {
	data := templateData{
		LeadName:     lead.Name,
		ContactFirst: firstName(lead.ContactName),
	}
	if lead.City != nil && lead.State != nil {
		data.Location = *lead.City + ", " + *lead.State
	}
	return render(subject, data)
}

// RenderManagement produces the manager-facing variant for a management
// company contact.
func RenderManagement(subject string, c *model.ManagementContact) (string, string, string, error) {
	data := templateData{
		LeadName:     c.CompanyName,
		ContactFirst: firstName(c.Name),
		IsManagement: true,
	}
	if c.City != nil && c.State != nil {
		data.Location = *c.City + ", " + *c.State
	}
	return render(subject, data)
}

func render(subject string, data templateData) (string, string, string, error) {
	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, data); err != nil {
		return "", "", "", eris.Wrapf(err, "outreach: render text body for %s", data.LeadName)
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return "", "", "", eris.Wrapf(err, "outreach: render html body for %s", data.LeadName)
	}
	return subject, text.String(), html.String(), nil
}

// firstName extracts a usable salutation from a full contact name.
func firstName(full *string) string {
	if full == nil {
		return "there"
	}
	fields := strings.Fields(strings.TrimSpace(*full))
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}
