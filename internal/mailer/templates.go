package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"time"
)

//go:embed templates/*.tmpl
var tplFS embed.FS

// набор шаблонов писем: layout + конкретное письмо (ключ = имя файла)
type mailTemplates map[string]*template.Template

var parsed = mustParse()

func mustParse() mailTemplates {
	all, err := fs.Glob(tplFS, "templates/*.tmpl")
	if err != nil {
		panic(fmt.Sprintf("mailer: glob templates: %v", err))
	}
	out := make(mailTemplates)
	for _, f := range all {
		if path.Base(f) == "layout.tmpl" {
			continue
		}
		t := template.Must(template.New("layout").ParseFS(tplFS, "templates/layout.tmpl", f))
		out[path.Base(f)] = t
	}
	return out
}

func render(name string, data any) (string, error) {
	t, ok := parsed[name]
	if !ok {
		return "", fmt.Errorf("mailer: template not found: %s", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("mailer: render %s: %w", name, err)
	}
	return buf.String(), nil
}

type otpData struct {
	AppName string
	Name    string
	OTP     string
	Minutes int
}

// VerificationEmail: письмо с кодом подтверждения почты.
func VerificationEmail(appName, to, name, otp string, ttl time.Duration) (Message, error) {
	html, err := render("verify_email.tmpl", otpData{AppName: appName, Name: name, OTP: otp, Minutes: int(ttl.Minutes())})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: appName + ": verify your email", HTML: html}, nil
}

// PasswordResetEmail: письмо с кодом сброса пароля.
func PasswordResetEmail(appName, to, name, otp string, ttl time.Duration) (Message, error) {
	html, err := render("reset_password.tmpl", otpData{AppName: appName, Name: name, OTP: otp, Minutes: int(ttl.Minutes())})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: appName + ": password reset code", HTML: html}, nil
}
