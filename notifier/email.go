package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/quickhitters/clubhouse/models"
)

// EmailNotifier mails subscribers when a tee time fills up. Other roster
// events are ignored; nobody wants four emails per foursome.
type EmailNotifier struct {
	smtpHost string
	smtpPort string
	username string
	password string
	from     string
	clubName string
	storage  RecipientStorage
}

type RecipientStorage interface {
	GetActiveRecipients() ([]models.Recipient, error)
}

type EmailConfig struct {
	SMTPHost string
	SMTPPort string
	Username string
	Password string
	From     string
	ClubName string
	Storage  RecipientStorage
}

func NewEmailNotifier(config EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		smtpHost: config.SMTPHost,
		smtpPort: config.SMTPPort,
		username: config.Username,
		password: config.Password,
		from:     config.From,
		clubName: config.ClubName,
		storage:  config.Storage,
	}
}

func (e *EmailNotifier) GetType() string {
	return "email"
}

func (e *EmailNotifier) Notify(event Event) error {
	if event.Action != ActionSignUp || !event.Slot.Full() {
		return nil
	}

	recipients, err := e.getRecipients()
	if err != nil {
		return fmt.Errorf("getting recipients: %w", err)
	}

	subject := fmt.Sprintf("Tee Time Full - %s", event.Slot.FormattedDate)
	body, err := e.buildEmailBody(event)
	if err != nil {
		return fmt.Errorf("building email body: %w", err)
	}

	message := e.buildMessage(subject, body, recipients)

	auth := smtp.PlainAuth("", e.username, e.password, e.smtpHost)
	addr := fmt.Sprintf("%s:%s", e.smtpHost, e.smtpPort)

	if err := smtp.SendMail(addr, auth, e.from, recipients, []byte(message)); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

func (e *EmailNotifier) getRecipients() ([]string, error) {
	if e.storage == nil {
		return nil, fmt.Errorf("no storage configured for email recipients")
	}

	dbRecipients, err := e.storage.GetActiveRecipients()
	if err != nil {
		return nil, fmt.Errorf("failed to get recipients from database: %w", err)
	}

	var emails []string
	for _, r := range dbRecipients {
		emails = append(emails, r.Email)
	}

	if len(emails) == 0 {
		return nil, fmt.Errorf("no active email recipients in database")
	}

	return emails, nil
}

func (e *EmailNotifier) buildMessage(subject, body string, recipients []string) string {
	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("%s <%s>", e.clubName, e.from)
	headers["To"] = strings.Join(recipients, ", ")
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var message strings.Builder
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(body)

	return message.String()
}

var emailBodyTemplate = template.Must(template.New("email").Parse(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f1efe7; }
        .header { background-color: #3e513d; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: white; padding: 30px; border-radius: 0 0 5px 5px; }
        .slot-details { background-color: #ecf0f1; padding: 15px; border-radius: 5px; margin: 20px 0; }
        .detail-row { margin: 10px 0; font-size: 16px; }
        .label { font-weight: bold; display: inline-block; width: 100px; }
        .footer { text-align: center; margin-top: 20px; font-size: 12px; color: #7f8c8d; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>This foursome is booked</h1>
        </div>
        <div class="content">
            <div class="slot-details">
                <div class="detail-row"><span class="label">Date:</span> {{.Slot.FormattedDate}}</div>
                <div class="detail-row"><span class="label">Time:</span> {{.Slot.Time}}</div>
                <div class="detail-row"><span class="label">Course:</span> {{.Slot.Course}}</div>
                <div class="detail-row"><span class="label">Players:</span> {{range $i, $p := .Slot.Players}}{{if $i}}, {{end}}{{$p}}{{end}}</div>
            </div>
        </div>
        <div class="footer">{{.ClubName}}</div>
    </div>
</body>
</html>
`))

func (e *EmailNotifier) buildEmailBody(event Event) (string, error) {
	data := struct {
		Event
		ClubName string
	}{Event: event, ClubName: e.clubName}

	var buf bytes.Buffer
	if err := emailBodyTemplate.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
