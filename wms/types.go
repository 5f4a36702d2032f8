package wms

import (
	"bytes"
	"encoding/json"
	"time"
)

// OrderTypeReceiveFromHarvest is the receiving order type suites create.
const OrderTypeReceiveFromHarvest = "RECEIVE_FROM_HARVEST"

// Defaults used when a suite does not care about the order details.
const (
	DefaultSKU        = "APPIUM229764"
	DefaultPartnerID  = "000000"
	DefaultUnit       = "kg"
	DefaultQuantity   = "5"
	DefaultLocationGN = "1B5K"
)

// DefaultLocation is used when the location hierarchy offers nothing usable.
var DefaultLocation = Location{Description: "Default Location", LocationGroupName: DefaultLocationGN}

type Product struct {
	SKU string `json:"sku"`
}

type Quantity struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

type Position struct {
	PositionID int      `json:"positionId"`
	Comment    *string  `json:"comment"`
	Product    Product  `json:"product"`
	Quantity   Quantity `json:"quantity"`
}

// ReceiveOrder is the payload for creating a receiving order.
type ReceiveOrder struct {
	OrderType         string     `json:"orderType"`
	ExpectedDate      time.Time  `json:"expectedDate"`
	Positions         []Position `json:"positions"`
	PartnerID         string     `json:"partnerId"`
	LocationGroupName string     `json:"locationGroupName"`
	Limit             int        `json:"limit,omitempty"`
	Offset            int        `json:"offset,omitempty"`
}

// OrderID accepts both numeric and string identifiers.
type OrderID string

func (id *OrderID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = OrderID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = OrderID(n.String())
	return nil
}

// ReceivingOrder is an order as returned by the API.
type ReceivingOrder struct {
	ID     OrderID `json:"id"`
	Status string  `json:"status,omitempty"`
	ReceiveOrder
}

// Location is a selectable location group.
type Location struct {
	Description       string `json:"description"`
	LocationGroupName string `json:"locationGroupName"`
}

type locationGroupNode struct {
	LocationGroup *struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Deleted     bool   `json:"deleted"`
	} `json:"locationGroup"`
	SubGroups []locationGroupNode `json:"subGroups"`
}

// flattenLocations lists the live, named location groups of a hierarchy in
// depth-first order.
func flattenLocations(nodes []locationGroupNode) []Location {
	var out []Location
	for _, n := range nodes {
		if g := n.LocationGroup; g != nil && !g.Deleted && g.Name != "" && g.Description != "" {
			out = append(out, Location{Description: g.Description, LocationGroupName: g.Name})
		}
		out = append(out, flattenLocations(n.SubGroups)...)
	}
	return out
}

// NewReceiveOrderFromHarvest builds a single-position harvest order.
func NewReceiveOrderFromHarvest(sku, quantity, unit string, expected time.Time, partnerID, locationGroupName string) ReceiveOrder {
	return ReceiveOrder{
		OrderType:    OrderTypeReceiveFromHarvest,
		ExpectedDate: expected.UTC(),
		Positions: []Position{{
			PositionID: 1,
			Product:    Product{SKU: sku},
			Quantity:   Quantity{Value: quantity, Unit: unit},
		}},
		PartnerID:         partnerID,
		LocationGroupName: locationGroupName,
	}
}

// NextMonday returns midnight UTC of the first Monday strictly after now.
func NextMonday(now time.Time) time.Time {
	now = now.UTC()
	days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	d := now.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
