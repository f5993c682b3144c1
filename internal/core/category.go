package core

// Category is an entry of the static classification set.
type Category struct {
	Value string          `json:"value"`
	Label string          `json:"label"`
	Type  TransactionType `json:"type"`
}

// Catalog is an ordered, read-only set of categories.
type Catalog struct {
	entries []Category
	index   map[string]int
}

// DefaultCatalog is the fixed category set offered to users.
var DefaultCatalog = NewCatalog(
	Category{Value: "salary", Label: "Salary", Type: Income},
	Category{Value: "freelance", Label: "Freelance", Type: Income},
	Category{Value: "investment", Label: "Investment", Type: Income},
	Category{Value: "other-income", Label: "Other", Type: Income},
	Category{Value: "groceries", Label: "Groceries", Type: Expense},
	Category{Value: "rent", Label: "Rent", Type: Expense},
	Category{Value: "utilities", Label: "Utilities", Type: Expense},
	Category{Value: "transportation", Label: "Transportation", Type: Expense},
	Category{Value: "dining-out", Label: "Dining out", Type: Expense},
	Category{Value: "entertainment", Label: "Entertainment", Type: Expense},
	Category{Value: "shopping", Label: "Shopping", Type: Expense},
	Category{Value: "health", Label: "Health", Type: Expense},
	Category{Value: "other-expense", Label: "Other", Type: Expense},
)

// NewCatalog builds a catalog preserving the given order. Later duplicates
// of a value are ignored.
func NewCatalog(categories ...Category) *Catalog {
	c := &Catalog{index: make(map[string]int, len(categories))}
	for _, cat := range categories {
		if _, dup := c.index[cat.Value]; dup {
			continue
		}
		c.index[cat.Value] = len(c.entries)
		c.entries = append(c.entries, cat)
	}
	return c
}

// All returns a copy of every entry in catalog order.
func (c *Catalog) All() []Category {
	out := make([]Category, len(c.entries))
	copy(out, c.entries)
	return out
}

// ByType returns the entries of the given type in catalog order.
func (c *Catalog) ByType(t TransactionType) []Category {
	var out []Category
	for _, cat := range c.entries {
		if cat.Type == t {
			out = append(out, cat)
		}
	}
	return out
}

func (c *Catalog) Lookup(value string) (Category, bool) {
	i, ok := c.index[value]
	if !ok {
		return Category{}, false
	}
	return c.entries[i], true
}

// Label returns the display label for value, or value itself when unknown.
func (c *Catalog) Label(value string) string {
	if cat, ok := c.Lookup(value); ok {
		return cat.Label
	}
	return value
}
