package inmemdb

import (
	"sync"

	"github.com/mansourkira/evoluflow/core/user"
)

type userTable struct {
	mutex sync.RWMutex
	table map[string]*user.User
	pk    int
}

// DB holds the tables of the in-memory store.
type DB struct {
	user *userTable
}

func NewDB() *DB {
	return &DB{user: &userTable{table: make(map[string]*user.User)}}
}
