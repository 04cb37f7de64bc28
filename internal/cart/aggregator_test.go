package cart_test

import (
	"encoding/json"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_DropsPurgedProducts(t *testing.T) {
	db := seed()
	engine := newEngine(t, db)
	_, err := engine.Add(ctx(), customer, mugID, 2, nil)
	require.NoError(t, err)
	_, err = engine.Add(ctx(), customer, shirtID, 1, []string{largeID, redID})
	require.NoError(t, err)

	db.PurgeProduct(shirtID)

	view, err := engine.View(ctx(), customer)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Count)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "21.98", view.TotalAmount.StringFixed(2))

	// stored cart still holds both lines
	c, err := db.Carts().GetOrCreate(ctx(), customer)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 2)
}

func TestAggregate_UnavailableLinesShownButNotPayable(t *testing.T) {
	db := seed()
	engine := newEngine(t, db)
	_, err := engine.Add(ctx(), customer, mugID, 2, nil)
	require.NoError(t, err)
	_, err = engine.Add(ctx(), customer, shirtID, 2, []string{smallID, redID})
	require.NoError(t, err)

	db.SetOptionStock(smallID, 0)
	db.SoftDeleteProduct(mugID)

	view, err := engine.View(ctx(), customer)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	for _, it := range view.Items {
		assert.False(t, it.IsAvailable, it.Name)
	}
	assert.Equal(t, "21.98", view.Items[0].Subtotal.StringFixed(2))
	assert.True(t, view.TotalAmount.IsZero())

	blocked, ok := view.Unavailable()
	assert.True(t, ok)
	assert.Equal(t, "Mug", blocked.Name)
}

func TestAggregate_DeletedOptionValueMakesLineUnavailable(t *testing.T) {
	db := seed()
	engine := newEngine(t, db)
	_, err := engine.Add(ctx(), customer, shirtID, 1, []string{largeID, redID})
	require.NoError(t, err)

	red := db.OptionValue(redID)
	now := db.Product(shirtID).CreatedAt
	red.DeletedAt = &now
	db.PutOptionValue(red)

	view, err := engine.View(ctx(), customer)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	it := view.Items[0]
	assert.False(t, it.IsAvailable)
	assert.Equal(t, 0, it.Stock)
	assert.Contains(t, it.Issue, redID)
	assert.Equal(t, "10.00", it.UnitPrice.StringFixed(2))
}

func TestAggregate_IsIdempotent(t *testing.T) {
	db := seed()
	engine := newEngine(t, db)
	_, err := engine.Add(ctx(), customer, mugID, 3, nil)
	require.NoError(t, err)
	_, err = engine.Add(ctx(), customer, shirtID, 1, []string{largeID, redID})
	require.NoError(t, err)

	c, err := db.Carts().GetOrCreate(ctx(), customer)
	require.NoError(t, err)
	agg := cart.NewAggregator(db.Catalog())

	first, err := agg.Aggregate(ctx(), c)
	require.NoError(t, err)
	second, err := agg.Aggregate(ctx(), c)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, "49.47", first.TotalAmount.StringFixed(2))
}

func TestAggregate_EmptyCart(t *testing.T) {
	view, err := cart.NewAggregator(seed().Catalog()).Aggregate(ctx(), &cart.Cart{CustomerID: customer})
	require.NoError(t, err)
	assert.Equal(t, 0, view.Count)
	assert.NotNil(t, view.Items)
	assert.True(t, view.TotalAmount.IsZero())
}
