package smtp

import (
	"bytes"
	"fmt"
	"html/template"
)

// Renderer produces the HTML body of the verification email.
type Renderer interface {
	Render(username, code string) (string, error)
}

var verificationTmpl = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; background: #f8fafc; padding: 24px;">
    <div style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 24px;">
      <h2 style="color: #1e293b;">Verify your email</h2>
      <p>Hi {{.Username}},</p>
      <p>Use the code below to verify your email address. It is valid for 1 hour.</p>
      <p style="font-size: 28px; font-weight: bold; letter-spacing: 8px; text-align: center;">{{.Code}}</p>
      <p style="color: #64748b; font-size: 12px;">If you did not sign up, you can ignore this email.</p>
    </div>
  </body>
</html>
`))

type templateRenderer struct {
	tmpl *template.Template
}

func NewRenderer() Renderer {
	return &templateRenderer{tmpl: verificationTmpl}
}

func (r *templateRenderer) Render(username, code string) (string, error) {
	var buf bytes.Buffer
	data := struct{ Username, Code string }{Username: username, Code: code}
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render verification email: %w", err)
	}
	return buf.String(), nil
}
