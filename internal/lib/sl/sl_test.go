package sl_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solvix/solvix-devis/internal/lib/sl"
)

func TestErr(t *testing.T) {
	attr := sl.Err(errors.New("something went wrong"))

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "something went wrong", attr.Value.String())
}

func TestErr_NilError(t *testing.T) {
	assert.NotPanics(t, func() {
		attr := sl.Err(nil)
		assert.Equal(t, "", attr.Value.String())
	})
}

func TestOp(t *testing.T) {
	attr := sl.Op("services.devis.Create")

	assert.Equal(t, "op", attr.Key)
	assert.Equal(t, "services.devis.Create", attr.Value.String())
}
