package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/breakerrors"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

func TestAllKinds(t *testing.T) {
	kinds := AllKinds()

	assert.Len(t, kinds, 4)
	assert.Contains(t, kinds, model.KindInstance)
	assert.Contains(t, kinds, model.KindDatabase)
	assert.Contains(t, kinds, model.KindContainerService)
	assert.Contains(t, kinds, model.KindInstanceGroup)
}

func TestRegistry_Get_UnknownKind(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Get(t.Context(), model.Kind("bogus"), "us-east-1")

	assert.Error(t, err)
	assert.ErrorIs(t, err, breakerrors.KindSentinel(breakerrors.Configuration))
}
