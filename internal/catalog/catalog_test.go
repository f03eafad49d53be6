package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	sickle, err := c.ItemByName("Iron Sickle")
	require.NoError(t, err)
	require.Equal(t, ItemTool, sickle.Kind)
	require.Equal(t, ToolSickle, sickle.ToolKind)
	require.Equal(t, 2, sickle.Tier)

	recipe, err := c.RecipeByID("brew_stamina_elixir")
	require.NoError(t, err)
	require.Equal(t, "alchemy", recipe.Profession)
	require.Len(t, recipe.Materials, 2)

	_, err = c.ItemByTokenID(999999)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "item", nf.Catalog)

	_, err = c.ZoneLayout("wild-meadow")
	require.NoError(t, err)
	_, err = c.ZoneLayout("nowhere")
	require.Error(t, err)
}

func TestScatterDeterministic(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	z, err := c.ZoneLayout("wild-meadow")
	require.NoError(t, err)

	a := z.ScatterPoints(10, 3)
	b := z.ScatterPoints(10, 3)
	require.Equal(t, a, b)
	require.Len(t, a, 10)

	for _, p := range a {
		require.GreaterOrEqual(t, p.X, 0.0)
		require.LessOrEqual(t, p.X, z.Width)
		require.GreaterOrEqual(t, p.Y, 0.0)
		require.LessOrEqual(t, p.Y, z.Height)
	}

	// Different salts give different layers.
	other := z.ScatterPoints(10, 4)
	require.NotEqual(t, a, other)
}

func TestClampToBounds(t *testing.T) {
	z := &ZoneLayout{Width: 100, Height: 50}
	x, y := z.ClampToBounds(-5, 80)
	require.Equal(t, 0.0, x)
	require.Equal(t, 50.0, y)
}
