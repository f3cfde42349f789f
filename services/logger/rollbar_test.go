package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
)

func TestRollbarLogger_print(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Debug: true})

	logger.Error("sending email", errors.New("boom"), user.User{ID: "42", Email: "ada@test.com"})

	out := buf.String()
	assert.Contains(t, out, "ERROR sending email")
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "ada@test.com")
}
