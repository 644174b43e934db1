package models

import (
	"testing"
	"time"

	"sales-service/internal/outcome"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartAddRemoveLine(t *testing.T) {
	c := NewShoppingCart(1)

	require.NoError(t, c.AddLine(600)) // one line, amount 3 x value 200
	assert.Equal(t, 1, c.ProductsCount)
	assert.Equal(t, int64(600), c.TotalValue)

	require.NoError(t, c.AddLine(250))
	assert.Equal(t, 2, c.ProductsCount)
	assert.Equal(t, int64(850), c.TotalValue)

	require.NoError(t, c.RemoveLine(600))
	assert.Equal(t, 1, c.ProductsCount)
	assert.Equal(t, int64(250), c.TotalValue)
}

func TestCartRemoveLineFromEmpty(t *testing.T) {
	c := NewShoppingCart(1)

	err := c.RemoveLine(0)
	assert.True(t, outcome.Is(err, outcome.ProductNotFound))
}

func TestCartValueDeltaGuardsNegative(t *testing.T) {
	c := NewShoppingCart(1)
	require.NoError(t, c.AddLine(500))

	err := c.ApplyValueDelta(-600)
	assert.True(t, outcome.Is(err, outcome.IncorrectFormatData))
	assert.Equal(t, int64(500), c.TotalValue)

	require.NoError(t, c.ApplyValueDelta(-500))
	assert.Zero(t, c.TotalValue)
}

func TestCartReset(t *testing.T) {
	c := NewShoppingCart(1)
	require.NoError(t, c.AddLine(500))
	require.NoError(t, c.AddLine(300))

	c.Reset()
	assert.Zero(t, c.TotalValue)
	assert.Zero(t, c.ProductsCount)
}

func TestCartLineContribution(t *testing.T) {
	line := &ShoppingCartProduct{Amount: 3, Checked: true}

	assert.Equal(t, int64(600), line.Contribution(200))
	assert.Equal(t, int64(600), line.Subtotal(200))

	line.Checked = false
	assert.Zero(t, line.Contribution(200))
	assert.Equal(t, int64(600), line.Subtotal(200))
}

func TestWorkShiftClose(t *testing.T) {
	start := time.Now()
	w := &WorkShift{EmployeeID: 1, StartTime: start}
	assert.True(t, w.Open())

	// end before start is rejected
	assert.False(t, w.Close(start.Add(-time.Hour)))
	assert.True(t, w.Open())

	assert.True(t, w.Close(start.Add(8*time.Hour)))
	assert.False(t, w.Open())
	assert.False(t, w.Close(start.Add(9*time.Hour)))
}
