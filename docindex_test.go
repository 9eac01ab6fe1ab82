package docindex_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := docindex.Errorf(docindex.ENOTFOUND, "document %q not found", "guide.md")

	assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))
	assert.Equal(t, "document \"guide.md\" not found", docindex.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, docindex.ErrorCode(nil))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, docindex.ErrorMessage(nil))
}

func TestErrorCode_Wrapped(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("upsert: %w", docindex.Errorf(docindex.ESTORAGE, "constraint failed"))

	assert.Equal(t, docindex.ESTORAGE, docindex.ErrorCode(err))
	assert.Equal(t, "constraint failed", docindex.ErrorMessage(err))
}

func TestErrorCode_PlainError(t *testing.T) {
	t.Parallel()

	err := errors.New("boom")

	assert.Equal(t, docindex.EINTERNAL, docindex.ErrorCode(err))
	assert.Equal(t, "Internal error.", docindex.ErrorMessage(err))
}
