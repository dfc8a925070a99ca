package sqlxrepos

import (
	"time"

	"github.com/mansourkira/evoluflow/core/user"
)

// epoch stands for "never logged in" in the last_login column.
var epoch = time.Unix(0, 0).UTC()

func fromDB(usr user.User) user.User {
	if usr.LastLogin.Equal(epoch) {
		usr.LastLogin = time.Time{}
	} else {
		usr.LastLogin = usr.LastLogin.UTC()
	}
	return usr
}
