package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/replycheck/replycheck/internal/errs"
)

func TestMismatchError_NamesBothStrings(t *testing.T) {
	t.Parallel()

	err := mismatchError("Hi there", "Sorry, I didn't get that.")

	assert.Equal(t, errs.ReplyMismatch, errs.CodeOf(err))
	assert.Contains(t, err.Error(), `"Hi there"`)
	assert.Contains(t, err.Error(), `"Sorry, I didn't get that."`)
}
