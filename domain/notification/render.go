package notification

import (
	"bytes"
	"html/template"
)

var signupTemplate = template.Must(template.New("signup").Parse(
	`<h2>New Waitlist Signup</h2>` +
		`<p><strong>Name:</strong> {{.Name}}</p>` +
		`<p><strong>Email:</strong> {{.Email}}</p>` +
		`<p><strong>Company:</strong> {{.Company}}</p>`,
))

// RenderSignupHTML renders the alert body. Record values are HTML-escaped.
func RenderSignupHTML(record WaitlistRecord) (string, error) {
	var buf bytes.Buffer
	if err := signupTemplate.Execute(&buf, record); err != nil {
		return "", err
	}
	return buf.String(), nil
}
