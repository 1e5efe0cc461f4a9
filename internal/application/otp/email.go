package otp

import (
	"bytes"
	"html/template"
)

var emailTmpl = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2>Verify your sign-in</h2>
  <p>Hi {{.Name}},</p>
  <p>Use the following code to complete your sign-in:</p>
  <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
  <p>This code expires in {{.Minutes}} minutes. If you did not try to sign in, you can ignore this email.</p>
</body>
</html>`))

type emailData struct {
	Name    string
	Code    string
	Minutes int
}

func renderEmail(name, code string, minutes int) (string, error) {
	if name == "" {
		name = "there"
	}
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, emailData{Name: name, Code: code, Minutes: minutes}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
