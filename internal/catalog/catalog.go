package catalog

import (
	"errors"
	"fmt"
	"strings"

	"mailcannon/internal/util"
)

// Size is the number of SKU columns an orders sheet carries.
const Size = 12

// Catalog is the ordered list of configured SKUs. Order defines the column
// mapping and the order of payload contents, nothing else.
type Catalog struct {
	skus   []string
	byName map[string]int
	folded map[string]string
}

func New(skus []string) (*Catalog, error) {
	if len(skus) != Size {
		return nil, fmt.Errorf("config must list exactly %d SKUs, got %d", Size, len(skus))
	}

	c := &Catalog{
		skus:   make([]string, 0, len(skus)),
		byName: make(map[string]int, len(skus)),
		folded: make(map[string]string, len(skus)),
	}
	var errs []error
	for i, raw := range skus {
		sku := strings.TrimSpace(raw)
		if sku == "" {
			errs = append(errs, fmt.Errorf("sku #%d is empty", i+1))
			continue
		}
		if _, dup := c.byName[sku]; dup {
			errs = append(errs, fmt.Errorf("sku %q is listed more than once", sku))
			continue
		}
		c.byName[sku] = len(c.skus)
		c.folded[util.FoldColumn(sku)] = sku
		c.skus = append(c.skus, sku)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func (c *Catalog) SKUs() []string {
	out := make([]string, len(c.skus))
	copy(out, c.skus)
	return out
}

func (c *Catalog) Contains(sku string) bool {
	_, ok := c.byName[sku]
	return ok
}

// NearMiss returns the configured SKU a header column resembles when it is
// not an exact match, e.g. "s1 " for "S1".
func (c *Catalog) NearMiss(column string) (string, bool) {
	if c.Contains(column) {
		return "", false
	}
	sku, ok := c.folded[util.FoldColumn(column)]
	return sku, ok
}
