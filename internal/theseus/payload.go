package theseus

import "mailcannon/internal"

type Payload struct {
	WarehouseOrder WarehouseOrder `json:"warehouse_order"`
	Address        Address        `json:"address"`
	Contents       []ContentLine  `json:"contents"`
}

type WarehouseOrder struct {
	RecipientEmail string   `json:"recipient_email"`
	Tags           []string `json:"tags"`
}

type Address struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name,omitempty"`
	Line1      string `json:"line_1"`
	Line2      string `json:"line_2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type ContentLine struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// BuildPayload turns a validated row into a request body. Contents follow
// catalog order and leave out zero quantities.
func BuildPayload(row internal.OrderRow, skus, tags []string) Payload {
	contents := make([]ContentLine, 0, len(skus))
	for _, sku := range skus {
		if qty := row.Quantities[sku]; qty > 0 {
			contents = append(contents, ContentLine{SKU: sku, Quantity: qty})
		}
	}
	if tags == nil {
		tags = []string{}
	}

	return Payload{
		WarehouseOrder: WarehouseOrder{
			RecipientEmail: row.Email,
			Tags:           tags,
		},
		Address: Address{
			FirstName:  row.Address.FirstName,
			LastName:   row.Address.LastName,
			Line1:      row.Address.Line1,
			Line2:      row.Address.Line2,
			City:       row.Address.City,
			State:      row.Address.State,
			PostalCode: row.Address.PostalCode,
			Country:    row.Address.Country,
		},
		Contents: contents,
	}
}
