// Package cafe is the cafe ordering vertical: deterministic order
// extraction against a fixed menu with an independently computed total.
package cafe

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/parthardas/helpdesk/pkg/conversation"
	"github.com/parthardas/helpdesk/pkg/decision"
	"github.com/parthardas/helpdesk/pkg/dispatch"
	"github.com/parthardas/helpdesk/pkg/domains"
	"github.com/parthardas/helpdesk/pkg/handler"
	"github.com/parthardas/helpdesk/pkg/llm"
)

// Name is the routing domain identifier.
const Name = "cafe"

// OrderItem is one order line carried in session context.
type OrderItem struct {
	Item     string  `json:"item"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Config assembles the cafe bundle.
type Config struct {
	// Provider enables LLM-delegated routing. The order handlers stay
	// deterministic either way; totals are never left to a model.
	Provider llm.Provider

	MaxSteps int
	Logger   zerolog.Logger
}

// Rules is the priority-ordered keyword routing table.
func Rules() []decision.Rule {
	return []decision.Rule{
		{Keywords: []string{"confirm", "checkout", "that's all", "place the order", "place my order"}, Label: "confirm"},
	}
}

// New assembles the cafe domain bundle.
func New(cfg Config) (*domains.Bundle, error) {
	reg := handler.NewRegistry()
	for _, h := range []handler.Handler{
		orderTakingHandler(),
		confirmHandler(),
	} {
		if err := reg.Register(h); err != nil {
			return nil, err
		}
	}

	decider, keyword, err := domains.NewDecider(cfg.Provider, reg, Rules(), "order_taking", cfg.Logger)
	if err != nil {
		return nil, err
	}

	loop, err := dispatch.New(dispatch.Config{
		Registry: reg,
		Decider:  decider,
		Domain:   Name,
		MaxSteps: cfg.MaxSteps,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &domains.Bundle{Name: Name, Registry: reg, Loop: loop, Keyword: keyword}, nil
}

// Total recomputes the order total from the line items, independent of
// any model arithmetic, rounded to cents.
func Total(items []OrderItem) float64 {
	total := 0.0
	for _, it := range items {
		total += float64(it.Quantity) * it.Price
	}
	return math.Round(total*100) / 100
}

// orderItems reads the current order from session context.
func orderItems(state *conversation.State) []OrderItem {
	items, _ := state.Context["order_items"].([]OrderItem)
	return items
}

func orderTakingHandler() handler.Handler {
	return handler.Func("order_taking", "take menu orders, change quantities, remove items", true,
		func(_ context.Context, state *conversation.State) (conversation.Update, error) {
			items := orderItems(state)
			input := strings.ToLower(state.UserInput)
			removing := strings.Contains(input, "remove") || strings.Contains(input, "cancel")

			mentioned := extractItems(state.UserInput)
			if len(mentioned) == 0 {
				return conversation.Update{
					Response: "I didn't catch a menu item there. " + FormatMenu() + "What would you like?",
				}, nil
			}

			for _, m := range mentioned {
				if removing {
					items = removeItem(items, m.Item)
				} else {
					items = addItem(items, m)
				}
			}

			total := Total(items)
			return conversation.Update{
				Response: orderSummary(items, total) + "\nAnything else, or shall I confirm your order?",
				Context: map[string]any{
					"order_items": items,
					"total":       total,
				},
			}, nil
		})
}

func confirmHandler() handler.Handler {
	return handler.Func("confirm", "confirm and place the final order", true,
		func(_ context.Context, state *conversation.State) (conversation.Update, error) {
			items := orderItems(state)
			if len(items) == 0 {
				return conversation.Update{
					Response: "You haven't ordered anything yet. " + FormatMenu(),
				}, nil
			}

			total := Total(items)
			return conversation.Update{
				Response: orderSummary(items, total) + "\nThank you for your order! It will be ready shortly.",
				Context: map[string]any{
					"order_confirmed": true,
					"total":           total,
				},
				End: true,
			}, nil
		})
}

func orderSummary(items []OrderItem, total float64) string {
	if len(items) == 0 {
		return "Your order is empty."
	}
	var b strings.Builder
	b.WriteString("Here's your order:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- %dx %s: $%.2f\n", it.Quantity, it.Item, float64(it.Quantity)*it.Price)
	}
	fmt.Fprintf(&b, "Total: $%.2f", total)
	return b.String()
}

func addItem(items []OrderItem, m OrderItem) []OrderItem {
	for i := range items {
		if items[i].Item == m.Item {
			items[i].Quantity += m.Quantity
			return items
		}
	}
	return append(items, m)
}

func removeItem(items []OrderItem, name string) []OrderItem {
	out := items[:0]
	for _, it := range items {
		if it.Item != name {
			out = append(out, it)
		}
	}
	return out
}

var numberWords = map[string]int{
	"one": 1, "a": 1, "an": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// extractItems scans the input for menu items, longest name first, with an
// optional quantity in the words just before the item.
func extractItems(input string) []OrderItem {
	lowered := strings.ToLower(input)
	var found []OrderItem

	for _, name := range menuNamesByLength() {
		needle := strings.ToLower(name)
		idx := strings.Index(lowered, needle)
		if idx < 0 {
			continue
		}

		qty := quantityBefore(lowered[:idx])
		found = append(found, OrderItem{Item: name, Quantity: qty, Price: Menu[name]})

		// Blank out the match so "Chai Latte" doesn't also count as "Latte".
		lowered = lowered[:idx] + strings.Repeat("*", len(needle)) + lowered[idx+len(needle):]
	}
	return found
}

// quantityBefore inspects the last two tokens preceding an item mention.
func quantityBefore(prefix string) int {
	fields := strings.Fields(prefix)
	for i := len(fields) - 1; i >= 0 && i >= len(fields)-2; i-- {
		token := strings.Trim(fields[i], ",.!?")
		if n, err := strconv.Atoi(token); err == nil && n > 0 {
			return n
		}
		if n, ok := numberWords[token]; ok {
			return n
		}
	}
	return 1
}
