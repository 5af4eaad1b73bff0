// File: internal/simulator/store.go
// Description: CSV persistence for the order book. The file carries a fixed
// header row and is rewritten wholesale on every flush; a crash mid-write can
// leave a torn file, which is an accepted limitation of the format.

package simulator

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// csvHeader fixes the column order of the durable file. It matches the Order
// field names.
var csvHeader = []string{
	"order_id",
	"product_id",
	"product_name",
	"price",
	"user_id",
	"order_date",
	"current_state",
	"last_update",
	"expected_delivery",
	"actual_delivery",
	"delay_reason",
	"stuck",
}

// saveOrders rewrites the whole file from the given snapshot.
func saveOrders(path string, orders []Order) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create order db %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, o := range orders {
		actual := ""
		if o.ActualDelivery != nil {
			actual = o.ActualDelivery.Format(time.RFC3339)
		}
		row := []string{
			o.OrderID,
			o.ProductID,
			o.ProductName,
			strconv.FormatFloat(o.Price, 'f', 2, 64),
			o.UserID,
			o.OrderDate.Format(time.RFC3339),
			string(o.CurrentState),
			o.LastUpdate.Format(time.RFC3339),
			o.ExpectedDelivery.Format(time.RFC3339),
			actual,
			string(o.DelayReason),
			strconv.FormatBool(o.Stuck),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write order %s: %w", o.OrderID, err)
		}
	}
	w.Flush()
	return w.Error()
}

// loadOrders reads the full file back into memory.
func loadOrders(path string) (map[string]*Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open order db %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read order db %s: %w", path, err)
	}
	if len(rows) == 0 {
		return map[string]*Order{}, nil
	}

	idx := make(map[string]int, len(rows[0]))
	for i, col := range rows[0] {
		idx[col] = i
	}
	for _, col := range csvHeader {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("order db %s is missing column %q", path, col)
		}
	}

	orders := make(map[string]*Order, len(rows)-1)
	for n, row := range rows[1:] {
		o, err := parseOrderRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("order db %s row %d: %w", path, n+2, err)
		}
		orders[o.OrderID] = o
	}
	return orders, nil
}

func parseOrderRow(row []string, idx map[string]int) (*Order, error) {
	get := func(col string) string { return row[idx[col]] }

	price, err := strconv.ParseFloat(get("price"), 64)
	if err != nil {
		return nil, fmt.Errorf("bad price %q: %w", get("price"), err)
	}
	orderDate, err := time.Parse(time.RFC3339, get("order_date"))
	if err != nil {
		return nil, fmt.Errorf("bad order_date: %w", err)
	}
	lastUpdate, err := time.Parse(time.RFC3339, get("last_update"))
	if err != nil {
		return nil, fmt.Errorf("bad last_update: %w", err)
	}
	expected, err := time.Parse(time.RFC3339, get("expected_delivery"))
	if err != nil {
		return nil, fmt.Errorf("bad expected_delivery: %w", err)
	}
	var actual *time.Time
	if s := get("actual_delivery"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("bad actual_delivery: %w", err)
		}
		actual = &t
	}
	stuck, err := strconv.ParseBool(get("stuck"))
	if err != nil {
		return nil, fmt.Errorf("bad stuck flag %q: %w", get("stuck"), err)
	}

	return &Order{
		OrderID:          get("order_id"),
		ProductID:        get("product_id"),
		ProductName:      get("product_name"),
		Price:            price,
		UserID:           get("user_id"),
		OrderDate:        orderDate,
		CurrentState:     OrderState(get("current_state")),
		LastUpdate:       lastUpdate,
		ExpectedDelivery: expected,
		ActualDelivery:   actual,
		DelayReason:      DelayReason(get("delay_reason")),
		Stuck:            stuck,
	}, nil
}
