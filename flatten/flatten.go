// Package flatten turns nested marketplace orders into the flat general, charge and refund rows.
package flatten

import (
	"strconv"
	"time"

	"wmorders/models"
)

// DateLayout is the calendar format written for every converted timestamp
const DateLayout = "2006-01-02"

// marketplace reports are pinned to UTC-7 regardless of daylight saving
var reportZone = time.FixedZone("UTC-7", -7*60*60)

// Date converts epoch milliseconds to a calendar date in UTC-7, nil or zero gives ""
func Date(ms *int64) string {
	if ms == nil || *ms == 0 {
		return ""
	}
	return time.Unix(*ms/1000, (*ms%1000)*int64(time.Millisecond)).In(reportZone).Format(DateLayout)
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func amount(a models.Amount) (string, string) {
	if !a.Amount.Valid {
		return str(a.Currency), ""
	}
	return str(a.Currency), a.Amount.Decimal.String()
}

func tax(t *models.Tax) (name, currency, value string) {
	if t == nil {
		return "", "", ""
	}
	currency, value = amount(t.TaxAmount)
	return str(t.TaxName), currency, value
}

func tracking(t *models.TrackingInfo) [7]string {
	if t == nil {
		return [7]string{}
	}
	return [7]string{
		Date(t.ShipDateTime),
		str(t.CarrierName.OtherCarrier),
		str(t.CarrierName.Carrier),
		str(t.MethodCode),
		str(t.CarrierMethodCode),
		str(t.TrackingNumber),
		str(t.TrackingURL),
	}
}

func statusDate(ms *int64) string {
	if ms == nil {
		return ""
	}
	return strconv.FormatInt(*ms, 10)
}

func required(op string, field string, value string) error {
	if value == "" {
		return models.Errorf(models.ErrDecode, op, "missing required field %s", field)
	}
	return nil
}

// Order flattens one order into one general row per line, one charge row per
// line charge and one refund row per refund charge.
// The line status is always the first entry of the status list.
func Order(o models.Order) (general []models.OrderGeneralRecord, charges []models.OrderChargeRecord, refunds []models.OrderRefundRecord, err error) {
	const op = "flatten.Order"
	if err = required(op, "purchaseOrderId", o.PurchaseOrderID); err != nil {
		return nil, nil, nil, err
	}
	ship := o.ShippingInfo
	addr := ship.PostalAddress
	customerOrderID := str(o.CustomerOrderID)

	for _, line := range o.OrderLines.OrderLine {
		if err = required(op, "lineNumber", line.LineNumber); err != nil {
			return nil, nil, nil, err
		}
		if err = required(op, "item.sku", line.Item.SKU); err != nil {
			return nil, nil, nil, err
		}
		if err = required(op, "orderLineQuantity.amount", line.OrderLineQuantity.Amount); err != nil {
			return nil, nil, nil, err
		}
		statuses := line.OrderLineStatuses.OrderLineStatus
		if len(statuses) == 0 {
			return nil, nil, nil, models.Errorf(models.ErrDecode, op, "order %s line %s has no status", o.PurchaseOrderID, line.LineNumber)
		}
		status := statuses[0]
		track := tracking(status.TrackingInfo)
		ful := line.Fulfillment

		general = append(general, models.OrderGeneralRecord{
			PurchaseOrderID:       o.PurchaseOrderID,
			CustomerOrderID:       customerOrderID,
			CustomerEmailID:       o.CustomerEmailID,
			OrderDate:             Date(o.OrderDate),
			Phone:                 str(ship.Phone),
			EstimatedDeliveryDate: Date(ship.EstimatedDeliveryDate),
			EstimatedShipDate:     Date(ship.EstimatedShipDate),
			ShipMethodCode:        str(ship.MethodCode),
			Name:                  str(addr.Name),
			Address1:              str(addr.Address1),
			Address2:              str(addr.Address2),
			City:                  str(addr.City),
			State:                 str(addr.State),
			PostalCode:            str(addr.PostalCode),
			Country:               str(addr.Country),
			AddressType:           str(addr.AddressType),
			LineNumber:            line.LineNumber,
			ProductName:           line.Item.ProductName,
			SKU:                   line.Item.SKU,
			Quantity:              line.OrderLineQuantity.Amount,
			StatusDate:            statusDate(line.StatusDate),
			Status:                str(status.Status),
			ShipDate:              track[0],
			OtherCarrier:          track[1],
			Carrier:               track[2],
			TrackingMethodCode:    track[3],
			CarrierMethodCode:     track[4],
			TrackingNumber:        track[5],
			TrackingURL:           track[6],
			FulfillmentOption:     str(ful.FulfillmentOption),
			ShipMethod:            str(ful.ShipMethod),
			StoreID:               str(ful.StoreID),
			PickUpDate:            Date(ful.PickUpDateTime),
			PickUpBy:              str(ful.PickUpBy),
			ShippingProgramType:   str(ful.ShippingProgramType),
		})

		refunds = append(refunds, refundRows(o, customerOrderID, line)...)

		for _, c := range line.Charges.Charge {
			currency, value := amount(c.ChargeAmount)
			taxName, taxCurrency, taxValue := tax(c.Tax)
			charges = append(charges, models.OrderChargeRecord{
				PurchaseOrderID: o.PurchaseOrderID,
				CustomerOrderID: customerOrderID,
				LineNumber:      line.LineNumber,
				ProductName:     line.Item.ProductName,
				SKU:             line.Item.SKU,
				ChargeType:      str(c.ChargeType),
				ChargeName:      str(c.ChargeName),
				Currency:        currency,
				Amount:          value,
				TaxName:         taxName,
				TaxCurrency:     taxCurrency,
				TaxAmount:       taxValue,
			})
		}
	}
	return general, charges, refunds, nil
}

func refundRows(o models.Order, customerOrderID string, line models.OrderLine) []models.OrderRefundRecord {
	if line.Refund == nil {
		return nil
	}
	var rows []models.OrderRefundRecord
	for _, rc := range line.Refund.RefundCharges.RefundCharge {
		currency, value := amount(rc.Charge.ChargeAmount)
		taxName, taxCurrency, taxValue := tax(rc.Charge.Tax)
		rows = append(rows, models.OrderRefundRecord{
			PurchaseOrderID: o.PurchaseOrderID,
			CustomerOrderID: customerOrderID,
			LineNumber:      line.LineNumber,
			ProductName:     line.Item.ProductName,
			SKU:             line.Item.SKU,
			RefundID:        str(line.Refund.RefundID),
			RefundComments:  str(line.Refund.RefundComments),
			RefundReason:    str(rc.RefundReason),
			ChargeType:      str(rc.Charge.ChargeType),
			ChargeName:      str(rc.Charge.ChargeName),
			Currency:        currency,
			Amount:          value,
			TaxName:         taxName,
			TaxCurrency:     taxCurrency,
			TaxAmount:       taxValue,
		})
	}
	return rows
}

// Orders flattens every order into batch, stopping at the first malformed order
func Orders(orders []models.Order, batch *models.OrderBatch) error {
	for _, o := range orders {
		general, charges, refunds, err := Order(o)
		if err != nil {
			return err
		}
		batch.Append(general, charges, refunds)
	}
	return nil
}
