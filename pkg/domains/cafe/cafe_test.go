package cafe

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parthardas/helpdesk/pkg/conversation"
	"github.com/parthardas/helpdesk/pkg/domains"
)

func newBundle(t *testing.T) *domains.Bundle {
	t.Helper()
	b, err := New(Config{Logger: zerolog.Nop()})
	require.NoError(t, err)
	return b
}

func runTurn(t *testing.T, b *domains.Bundle, state *conversation.State, input string) {
	t.Helper()
	state.BeginTurn(input)
	_, err := b.Loop.Run(context.Background(), state)
	require.NoError(t, err)
}

func TestOrderTaking_AddsSingleItem(t *testing.T) {
	b := newBundle(t)
	state := conversation.NewState("sess_1", Name)

	runTurn(t, b, state, "I'd like a latte please")

	items, ok := state.Context["order_items"].([]OrderItem)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, OrderItem{Item: "Latte", Quantity: 1, Price: 3.50}, items[0])
	assert.Equal(t, 3.50, state.Context["total"])
	assert.Contains(t, state.Response, "1x Latte")
	assert.Contains(t, state.Response, "Total: $3.50")
}

func TestOrderTaking_QuantitiesAndAccumulation(t *testing.T) {
	b := newBundle(t)
	state := conversation.NewState("sess_1", Name)

	runTurn(t, b, state, "two burgers and 3 sodas")

	items := state.Context["order_items"].([]OrderItem)
	require.Len(t, items, 2)
	assert.Equal(t, 17.95, state.Context["total"])

	// Ordering the same item again bumps the quantity.
	runTurn(t, b, state, "one more burger")
	items = state.Context["order_items"].([]OrderItem)
	for _, it := range items {
		if it.Item == "Burger" {
			assert.Equal(t, 3, it.Quantity)
		}
	}
	assert.Equal(t, 23.94, state.Context["total"])
}

func TestOrderTaking_RemovesItem(t *testing.T) {
	b := newBundle(t)
	state := conversation.NewState("sess_1", Name)

	runTurn(t, b, state, "a pizza and a salad")
	assert.Equal(t, 13.98, state.Context["total"])

	runTurn(t, b, state, "remove the salad")
	items := state.Context["order_items"].([]OrderItem)
	require.Len(t, items, 1)
	assert.Equal(t, "Pizza", items[0].Item)
	assert.Equal(t, 8.99, state.Context["total"])
}

func TestOrderTaking_MultiWordItemsDoNotDoubleCount(t *testing.T) {
	b := newBundle(t)
	state := conversation.NewState("sess_1", Name)

	runTurn(t, b, state, "a chai latte and an ice cream")

	items := state.Context["order_items"].([]OrderItem)
	require.Len(t, items, 2)
	names := []string{items[0].Item, items[1].Item}
	assert.Contains(t, names, "Chai Latte")
	assert.Contains(t, names, "Ice Cream")
	assert.Equal(t, 7.49, state.Context["total"])
}

func TestOrderTaking_UnknownItemShowsMenu(t *testing.T) {
	b := newBundle(t)
	state := conversation.NewState("sess_1", Name)

	runTurn(t, b, state, "a bowl of ramen please")

	assert.Contains(t, state.Response, "Our Menu:")
	_, hasItems := state.Context["order_items"]
	assert.False(t, hasItems)
}

func TestConfirm_PlacesOrder(t *testing.T) {
	b := newBundle(t)
	state := conversation.NewState("sess_1", Name)

	runTurn(t, b, state, "a mocha and a croissant")
	runTurn(t, b, state, "confirm my order")

	assert.True(t, state.Done)
	assert.Equal(t, true, state.Context["order_confirmed"])
	assert.Contains(t, state.Response, "Thank you for your order!")
	assert.Contains(t, state.Response, "Total: $6.50")
}

func TestConfirm_EmptyOrder(t *testing.T) {
	b := newBundle(t)
	state := conversation.NewState("sess_1", Name)

	runTurn(t, b, state, "that's all")

	assert.Contains(t, state.Response, "You haven't ordered anything yet.")
	_, confirmed := state.Context["order_confirmed"]
	assert.False(t, confirmed)
}

func TestTotal_RoundsToCents(t *testing.T) {
	items := []OrderItem{
		{Item: "Soda", Quantity: 3, Price: 1.99},
		{Item: "Fries", Quantity: 1, Price: 2.99},
	}
	assert.Equal(t, 8.96, Total(items))
}
