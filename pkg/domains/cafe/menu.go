package cafe

import (
	"fmt"
	"sort"
	"strings"
)

// Menu maps display names to unit prices. Coffee, tea, pastries and
// sandwiches plus the bistro staples.
var Menu = map[string]float64{
	"Espresso":      2.50,
	"Americano":     3.00,
	"Latte":         3.50,
	"Cappuccino":    3.50,
	"Mocha":         4.00,
	"Green Tea":     2.50,
	"Black Tea":     2.50,
	"Herbal Tea":    3.00,
	"Chai Latte":    3.50,
	"Croissant":     2.50,
	"Muffin":        3.00,
	"Scone":         2.75,
	"Brownie":       3.50,
	"Cookie":        2.00,
	"Avocado Toast": 6.50,
	"BLT":           7.00,
	"Veggie Wrap":   6.50,
	"Burger":        5.99,
	"Fries":         2.99,
	"Soda":          1.99,
	"Pizza":         8.99,
	"Salad":         4.99,
	"Ice Cream":     3.99,
}

// menuNamesByLength returns menu item names longest-first so multi-word
// items ("Chai Latte") are matched before their suffixes ("Latte").
func menuNamesByLength() []string {
	names := make([]string, 0, len(Menu))
	for name := range Menu {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}

// FormatMenu renders the menu for greeting and prompt text.
func FormatMenu() string {
	names := make([]string, 0, len(Menu))
	for name := range Menu {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Our Menu:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: $%.2f\n", name, Menu[name])
	}
	return b.String()
}
