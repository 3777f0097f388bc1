package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iXanadu/abouthr/internal/model"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	assert.Nil(t, reg.Get(model.ProviderGoogle))

	p := newMockProvider()
	reg.Register(p)

	got := reg.Get(model.ProviderGoogle)
	require.NotNil(t, got)
	assert.Same(t, Provider(p), got)

	yp := newMockProvider()
	yp.name = model.ProviderYelp
	reg.Register(yp)

	names := reg.List()
	assert.ElementsMatch(t, []model.ProviderName{model.ProviderGoogle, model.ProviderYelp}, names)
}
