package cart

import "time"

// Line holds identity and quantity only. Prices and stock are always read
// live from the catalog.
type Line struct {
	ProductID string   `json:"productId"`
	Quantity  int      `json:"quantity"`
	OptionIDs []string `json:"optionIds"`
}

func (l Line) Combination() Combination { return NewCombination(l.OptionIDs) }

type Cart struct {
	CustomerID string
	Lines      []Line
	// Version is bumped on every save and used as a compare-and-swap token.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Find returns the index of the line for productID with combination c, or -1.
func (c *Cart) Find(productID string, comb Combination) int {
	for i, l := range c.Lines {
		if l.ProductID == productID && l.Combination() == comb {
			return i
		}
	}
	return -1
}

// QuantityOf is the quantity already committed to productID+comb.
func (c *Cart) QuantityOf(productID string, comb Combination) int {
	if i := c.Find(productID, comb); i >= 0 {
		return c.Lines[i].Quantity
	}
	return 0
}

func (c *Cart) Empty() bool { return len(c.Lines) == 0 }
