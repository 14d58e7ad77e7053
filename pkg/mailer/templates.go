package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var welcomeHTML = template.Must(template.New(TemplateWelcome).Parse(`
<html>
  <body style="font-family: sans-serif; color: #333;">
    <h2>Welcome to Conduit, {{.Username}}!</h2>
    <p>Your account is ready. Sign in with <strong>{{.Email}}</strong> and start sharing your knowledge.</p>
    <p>— the Conduit team</p>
  </body>
</html>
`))

// Render produces subject, text, and HTML bodies for a named template.
func Render(name string, data map[string]any) (subject, text, html string, err error) {
	switch name {
	case TemplateWelcome:
		var buf bytes.Buffer
		if err = welcomeHTML.Execute(&buf, data); err != nil {
			return "", "", "", err
		}
		subject = "Welcome to Conduit"
		text = fmt.Sprintf("Welcome to Conduit, %v! Your account is ready.", data["Username"])
		html = buf.String()
		return subject, text, html, nil
	default:
		return "", "", "", fmt.Errorf("unknown email template %q", name)
	}
}
