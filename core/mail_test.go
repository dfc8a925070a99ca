package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessageRender(t *testing.T) {
	conf := &Config{AppName: "Evoluflow"}
	conf.Server.FrontendBaseURL = "http://localhost:3001"

	tests := []struct {
		name     string
		msg      EmailMessage
		wantErr  bool
		wantText []string
		wantHTML []string
	}{
		{
			name: "password reset",
			msg: EmailMessage{
				TemplateName: "password_reset",
				TemplateData: map[string]string{"Email": "agent@admission.com", "Link": "http://localhost:3001/reset?uid=Mg&token=t"},
			},
			wantText: []string{"Bonjour,", "agent@admission.com", "http://localhost:3001/reset?uid=Mg&token=t", "L'équipe Evoluflow"},
			wantHTML: []string{"<!DOCTYPE html>", "<b>agent@admission.com</b>", "L'équipe Evoluflow"},
		},
		{
			name:     "plain body",
			msg:      EmailMessage{BodyStr: "hello"},
			wantText: []string{"hello"},
		},
		{
			name:    "unknown template",
			msg:     EmailMessage{TemplateName: "nope"},
			wantErr: true,
		},
		{
			name:    "missing template data",
			msg:     EmailMessage{TemplateName: "password_reset", TemplateData: map[string]string{}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			err := msg.Render(conf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, msg.HasContent())
			for _, s := range tt.wantText {
				assert.Contains(t, msg.TextContent, s)
			}
			if tt.wantHTML == nil {
				assert.Empty(t, msg.HTMLContent)
			}
			for _, s := range tt.wantHTML {
				assert.Contains(t, msg.HTMLContent, s)
			}
		})
	}
}
