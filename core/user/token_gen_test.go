package user

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	gen := newTokenGenerator("secret", 3*24*time.Hour)

	usr := User{
		ID:        "1",
		Name:      "T",
		Email:     "t@test.test",
		LastLogin: time.Now().UTC(),
	}
	_ = usr.SetPassword("pwd123")

	validToken, _ := gen.makeToken(usr)

	// generate an expired token
	dayLate := gen.timeout + (24 * time.Hour)
	late := gen
	late.now = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, _ := late.makeToken(usr)

	// any password change invalidates the token
	changed := usr
	_ = changed.SetPassword("other-pwd")

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "password changed", usr: changed, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := gen.verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseMockToken(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{name: "built token", token: MockToken("12", now), want: "12"},
		{name: "literal token", token: "mock-jwt-token-1-1700000000000", want: "1"},
		{name: "no prefix", token: "jwt-token-1-1700000000000", wantErr: true},
		{name: "no timestamp", token: "mock-jwt-token-1", wantErr: true},
		{name: "no id", token: "mock-jwt-token--1700000000000", wantErr: true},
		{name: "bad timestamp", token: "mock-jwt-token-1-abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMockToken(tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMockToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseMockToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	ru := RemoteUser{Reference: "USR001", NomPrenom: "Jane Doe", EMail: "jane@admission.com", TypeUtilisateur: "agent", ReferenceSite: "SIT2401001"}
	want := User{ID: "USR001", Name: "Jane Doe", Email: "jane@admission.com", Role: "agent", Site: "SIT2401001"}
	if got := ru.Normalize(); got.ID != want.ID || got.Name != want.Name || got.Email != want.Email || got.Role != want.Role || got.Site != want.Site {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestVerifyTokenUsesClock(t *testing.T) {
	now := time.Date(2024, time.October, 3, 10, 0, 0, 0, time.UTC)
	gen := newTokenGenerator("secret", 3*24*time.Hour)
	gen.now = func() time.Time { return now }

	usr := User{ID: "2", Email: "agent@admission.com", LastLogin: now.Add(-time.Hour)}
	_ = usr.SetPassword("agent123")
	token, err := gen.makeToken(usr)
	if err != nil {
		t.Fatalf("makeToken() error = %v", err)
	}

	tests := []struct {
		name    string
		at      time.Time
		wantErr error
	}{
		{name: "same day", at: now},
		{name: "within timeout", at: now.Add(3 * 24 * time.Hour)},
		{name: "past timeout", at: now.Add(5 * 24 * time.Hour), wantErr: errTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := gen
			at.now = func() time.Time { return tt.at }
			if err := at.verifyToken(usr, token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
