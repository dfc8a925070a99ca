package user

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/mansourkira/evoluflow/core"
)

var (
	// password policy
	pwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("le mot de passe doit contenir au moins %d caractères", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "le mot de passe ne doit pas contenir d'espace"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "le mot de passe est trop proche de l'email"
)

// InitValidators registers the password policy on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(userStructValidation, NewUser{}, ChangePassword{}, ResetUserPassword{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		validatePassword(usr.Password, usr.Email, "password", sl)
	case ChangePassword:
		if usr.NewPassword != "" {
			validatePassword(usr.NewPassword, usr.email, "newPassword", sl)
		}
	case ResetUserPassword:
		if usr.Password != "" {
			validatePassword(usr.Password, usr.email, "password", sl)
		}
	}
}

// validatePassword applies the password policy:
// - minLen: 6
// - no whitespace
// - not too similar to the email
func validatePassword(pwd, email, field string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, field, field, tag, "")
	}

	if len([]rune(pwd)) < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
	}
	if similarity(pwd, email) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
	}
}

func similarity(pwd, attr string) float64 {
	if attr == "" {
		return 0
	}
	pwd, attr = strings.ToLower(pwd), strings.ToLower(attr)
	// the local part alone is what users tend to reuse
	local := strings.SplitN(attr, "@", 2)[0]
	ratio := func(a, b string) float64 {
		return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).QuickRatio()
	}
	if r := ratio(pwd, local); r > ratio(pwd, attr) {
		return r
	}
	return ratio(pwd, attr)
}
