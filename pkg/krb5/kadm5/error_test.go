package kadm5

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDuplicate(t *testing.T) {
	dup := &Error{Code: CodeDuplicate}
	assert.True(t, IsDuplicate(dup))
	assert.True(t, IsDuplicate(fmt.Errorf("failed to create principal: %w", dup)))

	assert.False(t, IsDuplicate(&Error{Code: CodeDuplicate + 1}))
	assert.False(t, IsDuplicate(errors.New("some other error")))
	assert.False(t, IsDuplicate(nil))
}

func TestErrorMessageRendering(t *testing.T) {
	err := &Error{Code: CodeDuplicate}
	assert.NotEmpty(t, err.Error())
}
