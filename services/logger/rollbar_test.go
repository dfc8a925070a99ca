package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/mansourkira/evoluflow/core"
	"github.com/mansourkira/evoluflow/core/user"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{TestMode: true})

	usr := user.User{ID: "1", Email: "admin@admission.com"}
	l.Error("proxy failure", errors.New("boom"), usr, map[string]interface{}{"resource": "salles"})

	out := buf.String()
	assert.Contains(t, out, "ERROR: proxy failure")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "salles")

	args := l.prepare("msg", []interface{}{usr, usr, "x"})
	assert.Equal(t, []interface{}{"msg", "x"}, args)
}
