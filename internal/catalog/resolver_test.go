package catalog

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shirt() (Product, []OptionType, map[string]OptionValue) {
	p := Product{ID: "p-shirt", Name: "Shirt", Price: decimal.RequireFromString("10.00"), Stock: 50}
	types := []OptionType{
		{ID: "t-size", ProductID: p.ID, Name: "Size"},
		{ID: "t-color", ProductID: p.ID, Name: "Color"},
	}
	values := map[string]OptionValue{
		"v-large": {ID: "v-large", OptionTypeID: "t-size", Value: "Large", PriceDelta: decimal.RequireFromString("5.00"), Stock: 30},
		"v-small": {ID: "v-small", OptionTypeID: "t-size", Value: "Small", PriceDelta: decimal.Zero, Stock: 80},
		"v-red":   {ID: "v-red", OptionTypeID: "t-color", Value: "Red", PriceDelta: decimal.RequireFromString("1.50"), Stock: 12},
		"v-other": {ID: "v-other", OptionTypeID: "t-elsewhere", Value: "Blue", Stock: 3},
	}
	return p, types, values
}

func TestNormalizeOptionIDs(t *testing.T) {
	assert.Equal(t, []string{}, NormalizeOptionIDs(nil))
	assert.Equal(t, []string{"a", "b", "c"}, NormalizeOptionIDs([]string{"c", " a", "b", "a", ""}))
}

func TestResolve_NoOptions(t *testing.T) {
	p := Product{ID: "p1", Price: decimal.RequireFromString("10.99"), Stock: 4}

	res, err := Resolve(p, nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Price.Equal(p.Price))
	assert.Equal(t, 4, res.Stock)
	assert.Empty(t, res.OptionIDs)

	_, err = Resolve(p, nil, nil, []string{"v1"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "product has no options")
}

func TestResolve_EffectivePriceAndStock(t *testing.T) {
	p, types, values := shirt()

	res, err := Resolve(p, types, values, []string{"v-red", "v-large"})
	require.NoError(t, err)

	assert.Equal(t, "16.5", res.Price.String())
	assert.Equal(t, 12, res.Stock)
	assert.Equal(t, []string{"v-large", "v-red"}, res.OptionIDs)
	require.Len(t, res.Options, 2)
	assert.Equal(t, "Size", res.Options[0].OptionType)
	assert.Equal(t, "Large", res.Options[0].Value)
}

func TestResolve_MissingSelectionNamesType(t *testing.T) {
	p, types, values := shirt()

	_, err := Resolve(p, types, values, []string{"v-large"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Color")

	_, err = Resolve(p, types, values, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Size, Color")
}

func TestResolve_ForeignValue(t *testing.T) {
	p, types, values := shirt()

	_, err := Resolve(p, types, values, []string{"v-large", "v-red", "v-other"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "v-other")
}

func TestResolve_UnknownOrDeletedValueIsNotFound(t *testing.T) {
	p, types, values := shirt()

	_, err := Resolve(p, types, values, []string{"v-large", "v-missing"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	gone := time.Now()
	red := values["v-red"]
	red.DeletedAt = &gone
	values["v-red"] = red
	_, err = Resolve(p, types, values, []string{"v-large", "v-red"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestResolve_LargeScenario(t *testing.T) {
	p := Product{ID: "p", Price: decimal.RequireFromString("10.00"), Stock: 50}
	types := []OptionType{{ID: "size", ProductID: "p", Name: "Size"}}
	values := map[string]OptionValue{
		"large": {ID: "large", OptionTypeID: "size", Value: "Large", PriceDelta: decimal.RequireFromString("5.00"), Stock: 30},
	}

	res, err := Resolve(p, types, values, []string{"large"})
	require.NoError(t, err)
	assert.Equal(t, 30, res.Stock)
	assert.Equal(t, "45", res.Price.Mul(decimal.NewFromInt(3)).Round(2).String())
}

func TestResolve_RandomCombinations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		p := Product{
			ID:    "p",
			Price: decimal.New(rng.Int63n(100000), -2),
			Stock: rng.Intn(100),
		}
		nTypes := 1 + rng.Intn(4)
		types := make([]OptionType, 0, nTypes)
		values := map[string]OptionValue{}
		var selected []string
		wantPrice := p.Price
		wantStock := p.Stock
		for ti := 0; ti < nTypes; ti++ {
			tid := fmt.Sprintf("t%d", ti)
			types = append(types, OptionType{ID: tid, ProductID: "p", Name: tid})
			for vi := 0; vi < 3; vi++ {
				vid := fmt.Sprintf("t%d-v%d", ti, vi)
				values[vid] = OptionValue{
					ID:           vid,
					OptionTypeID: tid,
					PriceDelta:   decimal.New(rng.Int63n(2000)-500, -2),
					Stock:        rng.Intn(100),
				}
			}
			pick := values[fmt.Sprintf("t%d-v%d", ti, rng.Intn(3))]
			selected = append(selected, pick.ID)
			wantPrice = wantPrice.Add(pick.PriceDelta)
			if pick.Stock < wantStock {
				wantStock = pick.Stock
			}
		}
		rng.Shuffle(len(selected), func(a, b int) { selected[a], selected[b] = selected[b], selected[a] })

		res, err := Resolve(p, types, values, selected)
		require.NoError(t, err)
		assert.True(t, wantPrice.Equal(res.Price), "price: want %s got %s", wantPrice, res.Price)
		assert.Equal(t, wantStock, res.Stock)
	}
}
