package journal

import (
	"encoding/csv"
	"io"
	"strconv"
)

var orderHeader = []string{
	"order_id", "deal_date", "deal_time", "stock_code", "stock_name", "side",
	"price", "qty", "amount", "reason", "position_after", "cash_after",
}

// WriteOrdersCSV writes a blotter export with a header row.
func WriteOrdersCSV(w io.Writer, orders []Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(orderHeader); err != nil {
		return err
	}
	for _, o := range orders {
		if err := cw.Write([]string{
			o.OrderID,
			o.DealDate,
			o.DealTime,
			o.Code,
			o.Name,
			string(o.Side),
			o.Price.StringFixed(2),
			strconv.FormatInt(o.Qty, 10),
			o.Amount.StringFixed(2),
			o.Reason,
			strconv.FormatInt(o.PositionAfter, 10),
			o.CashAfter.StringFixed(2),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
