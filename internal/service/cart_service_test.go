package service

import (
	"context"
	"testing"

	"sales-service/internal/outcome"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCartFixture() (*CartService, *memStore, *fakePublisher) {
	m := newMemStore()
	pub := &fakePublisher{}
	return NewCartService(m, pub), m, pub
}

func TestGetCartCreatesOnFirstAccess(t *testing.T) {
	svc, m, _ := newCartFixture()
	ctx := context.Background()
	user := m.seedUser()

	cart, lines, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, cart.UserID)
	assert.Zero(t, cart.TotalValue)
	assert.Zero(t, cart.ProductsCount)
	assert.Empty(t, lines)

	// second access returns the same cart
	again, _, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
}

func TestGetCartUnknownUser(t *testing.T) {
	svc, _, _ := newCartFixture()

	_, _, err := svc.GetCart(context.Background(), 99)
	assert.True(t, outcome.Is(err, outcome.NotFound))
}

func TestAddProductToCartCountsLinesNotAmounts(t *testing.T) {
	svc, m, _ := newCartFixture()
	ctx := context.Background()
	user := m.seedUser()
	x := m.seedProduct(200, 10) // 2.00

	cart, err := svc.AddProductToCart(ctx, user.ID, x.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ProductsCount)
	assert.Equal(t, int64(600), cart.TotalValue)

	// same product again: one line, bigger amount
	cart, err = svc.AddProductToCart(ctx, user.ID, x.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ProductsCount)
	assert.Equal(t, int64(1000), cart.TotalValue)

	_, lines, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Amount)
	assert.True(t, lines[0].Checked)
}

func TestAddProductToCartRejections(t *testing.T) {
	svc, m, _ := newCartFixture()
	ctx := context.Background()
	user := m.seedUser()
	outOfStock := m.seedProduct(200, 0)
	inStock := m.seedProduct(200, 5)

	_, err := svc.AddProductToCart(ctx, user.ID, outOfStock.ID, 1)
	assert.True(t, outcome.Is(err, outcome.StockUnavailable))

	_, err = svc.AddProductToCart(ctx, user.ID, 999, 1)
	assert.True(t, outcome.Is(err, outcome.ProductNotFound))

	_, err = svc.AddProductToCart(ctx, user.ID, inStock.ID, 0)
	assert.True(t, outcome.Is(err, outcome.IncorrectFormatData))

	_, err = svc.AddProductToCart(ctx, 99, inStock.ID, 1)
	assert.True(t, outcome.Is(err, outcome.NotFound))

	// failed adds left the cart untouched
	cart, _, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, cart.ProductsCount)
	assert.Zero(t, cart.TotalValue)
}

func TestCheckUncheckTogglesSubtotal(t *testing.T) {
	svc, m, _ := newCartFixture()
	ctx := context.Background()
	user := m.seedUser()
	x := m.seedProduct(200, 10)

	cart, err := svc.AddProductToCart(ctx, user.ID, x.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(600), cart.TotalValue)

	cart, err = svc.UncheckProduct(ctx, user.ID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cart.TotalValue)
	assert.Equal(t, 1, cart.ProductsCount)

	// unchecking twice changes nothing
	cart, err = svc.UncheckProduct(ctx, user.ID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cart.TotalValue)

	cart, err = svc.CheckProduct(ctx, user.ID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), cart.TotalValue)
}

func TestRemoveUncheckedLineKeepsSubtotal(t *testing.T) {
	svc, m, _ := newCartFixture()
	ctx := context.Background()
	user := m.seedUser()
	x := m.seedProduct(200, 10)
	y := m.seedProduct(500, 10)

	_, err := svc.AddProductToCart(ctx, user.ID, x.ID, 3)
	require.NoError(t, err)
	_, err = svc.AddProductToCart(ctx, user.ID, y.ID, 1)
	require.NoError(t, err)

	_, err = svc.UncheckProduct(ctx, user.ID, x.ID)
	require.NoError(t, err)

	// the unchecked line contributed nothing, so removing it only drops the
	// count
	cart, err := svc.RemoveProductFromCart(ctx, user.ID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ProductsCount)
	assert.Equal(t, int64(500), cart.TotalValue)
}

func TestRemoveProductFromCartTwice(t *testing.T) {
	svc, m, _ := newCartFixture()
	ctx := context.Background()
	user := m.seedUser()
	x := m.seedProduct(200, 10)

	_, err := svc.AddProductToCart(ctx, user.ID, x.ID, 3)
	require.NoError(t, err)

	cart, err := svc.RemoveProductFromCart(ctx, user.ID, x.ID)
	require.NoError(t, err)
	assert.Zero(t, cart.ProductsCount)
	assert.Zero(t, cart.TotalValue)

	_, err = svc.RemoveProductFromCart(ctx, user.ID, x.ID)
	assert.True(t, outcome.Is(err, outcome.ProductNotFound))

	stored := m.cartByUser(user.ID)
	assert.Zero(t, stored.ProductsCount)
	assert.Zero(t, stored.TotalValue)
}

func TestUpdateProductAmount(t *testing.T) {
	svc, m, _ := newCartFixture()
	ctx := context.Background()
	user := m.seedUser()
	x := m.seedProduct(200, 10)

	_, err := svc.AddProductToCart(ctx, user.ID, x.ID, 3)
	require.NoError(t, err)

	cart, err := svc.UpdateProductAmount(ctx, user.ID, x.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), cart.TotalValue)

	cart, err = svc.UpdateProductAmount(ctx, user.ID, x.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(200), cart.TotalValue)

	_, err = svc.UpdateProductAmount(ctx, user.ID, x.ID, 0)
	assert.True(t, outcome.Is(err, outcome.IncorrectFormatData))

	_, err = svc.UpdateProductAmount(ctx, user.ID, 999, 2)
	assert.True(t, outcome.Is(err, outcome.ProductNotFound))
}

func TestUpdateAmountOnUncheckedLine(t *testing.T) {
	svc, m, _ := newCartFixture()
	ctx := context.Background()
	user := m.seedUser()
	x := m.seedProduct(200, 10)

	_, err := svc.AddProductToCart(ctx, user.ID, x.ID, 3)
	require.NoError(t, err)
	_, err = svc.UncheckProduct(ctx, user.ID, x.ID)
	require.NoError(t, err)

	// amount changes on an unchecked line must not leak into the subtotal
	cart, err := svc.UpdateProductAmount(ctx, user.ID, x.ID, 7)
	require.NoError(t, err)
	assert.Zero(t, cart.TotalValue)

	// re-checking picks up the new amount
	cart, err = svc.CheckProduct(ctx, user.ID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1400), cart.TotalValue)
}

func TestClearCart(t *testing.T) {
	svc, m, pub := newCartFixture()
	ctx := context.Background()
	user := m.seedUser()
	x := m.seedProduct(200, 10)
	y := m.seedProduct(500, 10)

	_, err := svc.AddProductToCart(ctx, user.ID, x.ID, 3)
	require.NoError(t, err)
	_, err = svc.AddProductToCart(ctx, user.ID, y.ID, 2)
	require.NoError(t, err)

	cart, err := svc.ClearCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, cart.TotalValue)
	assert.Zero(t, cart.ProductsCount)

	_, lines, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	require.Len(t, pub.cleared, 1)
	assert.Equal(t, 2, pub.cleared[0].LinesRemoved)
	assert.Equal(t, user.ID, pub.cleared[0].UserID)
}

func TestCartScenario(t *testing.T) {
	svc, m, _ := newCartFixture()
	ctx := context.Background()
	user := m.seedUser()
	x := m.seedProduct(200, 10) // value 2.00

	cart, err := svc.AddProductToCart(ctx, user.ID, x.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ProductsCount)
	assert.Equal(t, int64(600), cart.TotalValue)

	cart, err = svc.UncheckProduct(ctx, user.ID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cart.TotalValue)

	cart, err = svc.RemoveProductFromCart(ctx, user.ID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cart.ProductsCount)
	assert.Equal(t, int64(0), cart.TotalValue)
}

func TestGetCartCreationRaceMapsToConflict(t *testing.T) {
	svc, m, _ := newCartFixture()
	ctx := context.Background()
	user := m.seedUser()

	// a concurrent request wins the lazy-creation race: our insert hits the
	// unique index and surfaces as a retryable conflict
	m.failInsertCart = errUniqueViolation
	_, _, err := svc.GetCart(ctx, user.ID)
	assert.True(t, outcome.Is(err, outcome.ConcurrencyConflict))

	m.failInsertCart = nil
	cart, _, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, cart.UserID)
}

func TestCartSubtotalMatchesCheckedLines(t *testing.T) {
	svc, m, _ := newCartFixture()
	ctx := context.Background()
	user := m.seedUser()
	x := m.seedProduct(200, 10)
	y := m.seedProduct(350, 10)
	z := m.seedProduct(125, 2)

	_, err := svc.AddProductToCart(ctx, user.ID, x.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddProductToCart(ctx, user.ID, y.ID, 1)
	require.NoError(t, err)
	_, err = svc.UncheckProduct(ctx, user.ID, y.ID)
	require.NoError(t, err)
	_, err = svc.UpdateProductAmount(ctx, user.ID, x.ID, 4)
	require.NoError(t, err)

	// a rejected add leaves no partial effects behind
	_, err = svc.AddProductToCart(ctx, user.ID, z.ID, 5)
	assert.True(t, outcome.Is(err, outcome.StockUnavailable))

	cart, lines, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)

	// the stored subtotal must equal the sum of checked-line contributions
	values := map[int64]int64{x.ID: 200, y.ID: 350, z.ID: 125}
	var want int64
	for _, line := range lines {
		if line.Checked {
			want += int64(line.Amount) * values[line.ProductID]
		}
	}
	assert.Equal(t, want, cart.TotalValue)
	assert.Equal(t, int64(800), cart.TotalValue)
	assert.Equal(t, 2, cart.ProductsCount)
}

func TestCartMutationsRequireExistingCart(t *testing.T) {
	svc, m, _ := newCartFixture()
	ctx := context.Background()
	m.seedUser() // user 1 exists but never touched a cart through mutations below

	_, err := svc.RemoveProductFromCart(ctx, 1, 5)
	assert.True(t, outcome.Is(err, outcome.NotFound))

	_, err = svc.CheckProduct(ctx, 1, 5)
	assert.True(t, outcome.Is(err, outcome.NotFound))

	_, err = svc.ClearCart(ctx, 1)
	assert.True(t, outcome.Is(err, outcome.NotFound))
}
