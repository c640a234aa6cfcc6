package core

import "testing"

func TestCartAddMerges(t *testing.T) {
	kopi := Product{ID: "p1", Name: "Kopi", Price: Money{Rupiah: 15000}}
	teh := Product{ID: "p2", Name: "Teh", Price: Money{Rupiah: 5000}}

	var c Cart
	c.Add(kopi, 0)
	c.Add(kopi, 2)
	c.Add(teh, 1)

	if c.Len() != 2 {
		t.Fatalf("expected 2 lines, got %d", c.Len())
	}
	items := c.Items()
	if items[0].Quantity != 3 {
		t.Fatalf("expected merged quantity 3, got %d", items[0].Quantity)
	}
	if c.Total().Rupiah != 50000 || c.TotalItems() != 4 {
		t.Fatalf("unexpected totals %d / %d", c.Total().Rupiah, c.TotalItems())
	}
}

func TestCartUpdateAndRemove(t *testing.T) {
	var c Cart
	c.Add(Product{ID: "p1", Price: Money{Rupiah: 1000}}, 1)
	c.Add(Product{ID: "p2", Price: Money{Rupiah: 2000}}, 1)

	if !c.UpdateQuantity("p1", 5) || c.Total().Rupiah != 7000 {
		t.Fatalf("update failed, total %d", c.Total().Rupiah)
	}
	if c.UpdateQuantity("missing", 1) {
		t.Fatalf("unknown product should report false")
	}
	if !c.UpdateQuantity("p2", 0) || c.Len() != 1 {
		t.Fatalf("zero quantity should remove the line")
	}
	c.Remove("p1")
	if c.Len() != 0 {
		t.Fatalf("expected empty cart")
	}
}

func TestCartItemsIsCopy(t *testing.T) {
	var c Cart
	c.Add(Product{ID: "p1", Price: Money{Rupiah: 1000}}, 1)
	items := c.Items()
	items[0].Quantity = 99
	if c.TotalItems() != 1 {
		t.Fatalf("Items must return a copy")
	}
	c.Clear()
	if c.Len() != 0 || c.Total().Rupiah != 0 {
		t.Fatalf("clear should empty the cart")
	}
}
