package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndValidate(t *testing.T) {
	id := NewItemID()
	assert.True(t, strings.HasPrefix(id, PrefixItem+"_"))
	require.NoError(t, Validate(id, PrefixItem))
	assert.Error(t, Validate(id, PrefixDraft))
	assert.Error(t, Validate("not an id", PrefixItem))

	assert.NotEqual(t, NewDraftID(), NewDraftID())
}
