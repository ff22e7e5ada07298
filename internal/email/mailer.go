package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

// Mailer arma los correos transaccionales del servicio y los despacha al Sender.
type Mailer struct {
	sender       Sender
	projectName  string
	frontendURL  string
	supportEmail string
	resetHours   int
}

func NewMailer(sender Sender, projectName, frontendURL, supportEmail string, resetHours int) *Mailer {
	if resetHours <= 0 {
		resetHours = 48
	}
	return &Mailer{
		sender:       sender,
		projectName:  projectName,
		frontendURL:  frontendURL,
		supportEmail: supportEmail,
		resetHours:   resetHours,
	}
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<html>
<body>
<p>Hola{{if .Name}} {{.Name}}{{end}},</p>
<p>Tu cuenta en {{.ProjectName}} fue creada.</p>
<p><a href="{{.LoginURL}}">Iniciar sesión</a></p>
{{if .SupportEmail}}<p>Soporte: {{.SupportEmail}}</p>{{end}}
</body>
</html>`))

var passwordResetTemplate = template.Must(template.New("reset").Parse(`<html>
<body>
<p>Hola{{if .Name}} {{.Name}}{{end}},</p>
<p>Recibimos una solicitud para restablecer tu contraseña de {{.ProjectName}}.</p>
<p><a href="{{.ResetURL}}">Restablecer contraseña</a></p>
<p>El enlace vence en {{.ValidHours}} horas. Si no fuiste vos, ignorá este correo.</p>
{{if .SupportEmail}}<p>Soporte: {{.SupportEmail}}</p>{{end}}
</body>
</html>`))

func (m *Mailer) SendWelcomeEmail(ctx context.Context, toEmail, name string) error {
	var body bytes.Buffer
	err := welcomeTemplate.Execute(&body, map[string]any{
		"Name":         name,
		"ProjectName":  m.projectName,
		"LoginURL":     m.frontendURL + "/login",
		"SupportEmail": m.supportEmail,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Welcome to %s", m.projectName)
	return m.sender.Send(ctx, toEmail, subject, body.String())
}

func (m *Mailer) SendPasswordResetEmail(ctx context.Context, toEmail, name, token string) error {
	var body bytes.Buffer
	err := passwordResetTemplate.Execute(&body, map[string]any{
		"Name":         name,
		"ProjectName":  m.projectName,
		"ResetURL":     fmt.Sprintf("%s/reset-password?token=%s", m.frontendURL, token),
		"ValidHours":   m.resetHours,
		"SupportEmail": m.supportEmail,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("%s - Password Reset", m.projectName)
	return m.sender.Send(ctx, toEmail, subject, body.String())
}
