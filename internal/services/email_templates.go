package services

import (
	"bytes"
	"html/template"
)

const (
	subjectVerifyEmail = "Confirm your email address"
	subjectVerified    = "Your email address is verified"
	subjectReset       = "Reset your password"
)

var (
	verifyEmailTmpl = template.Must(template.New("verify").Parse(`
		<h3>Confirm your email address</h3>
		<p>Use the following code to verify {{.Email}}: <strong>{{.Code}}</strong></p>
		<p>If you did not create an account, you can ignore this email.</p>
	`))

	verifiedTmpl = template.Must(template.New("verified").Parse(`
		<h3>Email verified</h3>
		<p>Thank you, {{.Email}} is now confirmed.</p>
	`))

	resetTmpl = template.Must(template.New("reset").Parse(`
		<h3>Password reset</h3>
		<p>Use this token to set a new password for {{.Email}}: <code>{{.Token}}</code></p>
		<p>The token expires at {{.ExpiresAt.UTC.Format "15:04 MST"}}. If you did not ask for a reset, ignore this email.</p>
	`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
