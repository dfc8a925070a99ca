package emailsvc

import (
	"bytes"
	"log"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansourkira/evoluflow/core"
	logsvc "github.com/mansourkira/evoluflow/services/logger"
)

func testConf() *core.Config {
	conf := &core.Config{AppName: "Evoluflow", TestMode: true}
	conf.Server.FrontendBaseURL = "http://localhost:3001"
	conf.Email.DefaultFrom = "Evoluflow <no-reply@admission.com>"
	return conf
}

func TestConsoleService(t *testing.T) {
	var buf bytes.Buffer
	conf := testConf()
	svc := NewConsoleServiceMock(conf, logsvc.NewRollbarLogger(log.New(&buf, "", 0), conf))

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Admin", Address: "admin@admission.com"}},
			Subject:      "Réinitialisation",
			TemplateName: "password_reset",
			TemplateData: map[string]string{"Email": "admin@admission.com", "Link": "http://localhost:3001/reset-password?uid=MQ&token=t"},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "ignored"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "http://localhost:3001/reset-password?uid=MQ&token=t")
	assert.Contains(t, sent[0].HTMLContent, "admin@admission.com")
	assert.Empty(t, buf.String()) // output disabled

	body, err := svc.format(sent[0])
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: [Evoluflow] Réinitialisation")
	assert.Contains(t, body, "From: ")
}

func TestConsoleServiceUnknownTemplate(t *testing.T) {
	var buf bytes.Buffer
	conf := testConf()
	svc := NewConsoleServiceMock(conf, logsvc.NewRollbarLogger(log.New(&buf, "", 0), conf))

	svc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: "admin@admission.com"}},
		TemplateName: "nope",
	})
	assert.Empty(t, svc.SentMessages())
	assert.Contains(t, buf.String(), "rendering email")
}

func TestSendgridPrepare(t *testing.T) {
	conf := testConf()
	svc := NewSendgridService(conf, logsvc.NewRollbarLogger(log.New(&bytes.Buffer{}, "", 0), conf))
	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Address: "agent@admission.com"}},
		Subject:     "Bonjour",
		TextContent: "texte",
	})
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Evoluflow] Bonjour", m.Personalizations[0].Subject)
	assert.Len(t, m.Content, 1)
	assert.Equal(t, "no-reply@admission.com", m.From.Address)
}
