package user

import (
	"github.com/mansourkira/evoluflow/core"
)

// NewServiceMock returns a Service that sends its mails synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config, log core.Logger) *Service {
	svc := NewService(repo, mailSvc, conf, log)
	svc.sendMail = svc.sendPasswordResetMail
	return svc
}

// MakeResetToken exposes the reset token of usr to tests of other packages.
func (svc *Service) MakeResetToken(usr User) (string, error) {
	return svc.tokens.makeToken(usr)
}
