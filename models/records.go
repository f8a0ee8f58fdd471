package models

// OrderGeneralRecord is one row per (order, line)
type OrderGeneralRecord struct {
	PurchaseOrderID       string `db:"purchase_order_id"`
	CustomerOrderID       string `db:"customer_order_id"`
	CustomerEmailID       string `db:"customer_email_id"`
	OrderDate             string `db:"order_date"`
	Phone                 string `db:"phone"`
	EstimatedDeliveryDate string `db:"estimated_delivery_date"`
	EstimatedShipDate     string `db:"estimated_ship_date"`
	ShipMethodCode        string `db:"ship_method_code"`
	Name                  string `db:"name"`
	Address1              string `db:"address1"`
	Address2              string `db:"address2"`
	City                  string `db:"city"`
	State                 string `db:"state"`
	PostalCode            string `db:"postal_code"`
	Country               string `db:"country"`
	AddressType           string `db:"address_type"`
	LineNumber            string `db:"line_number"`
	ProductName           string `db:"product_name"`
	SKU                   string `db:"sku"`
	Quantity              string `db:"quantity"`
	StatusDate            string `db:"status_date"`
	Status                string `db:"status"`
	ShipDate              string `db:"ship_date"`
	OtherCarrier          string `db:"other_carrier"`
	Carrier               string `db:"carrier"`
	TrackingMethodCode    string `db:"tracking_method_code"`
	CarrierMethodCode     string `db:"carrier_method_code"`
	TrackingNumber        string `db:"tracking_number"`
	TrackingURL           string `db:"tracking_url"`
	FulfillmentOption     string `db:"fulfillment_option"`
	ShipMethod            string `db:"ship_method"`
	StoreID               string `db:"store_id"`
	PickUpDate            string `db:"pick_up_date"`
	PickUpBy              string `db:"pick_up_by"`
	ShippingProgramType   string `db:"shipping_program_type"`
}

// OrderGeneralColumns lists the general table columns in schema order
var OrderGeneralColumns = []string{
	"purchase_order_id", "customer_order_id", "customer_email_id", "order_date",
	"phone", "estimated_delivery_date", "estimated_ship_date", "ship_method_code",
	"name", "address1", "address2", "city", "state", "postal_code", "country", "address_type",
	"line_number", "product_name", "sku", "quantity", "status_date", "status",
	"ship_date", "other_carrier", "carrier", "tracking_method_code", "carrier_method_code",
	"tracking_number", "tracking_url",
	"fulfillment_option", "ship_method", "store_id", "pick_up_date", "pick_up_by", "shipping_program_type",
}

// OrderChargeRecord is one row per (order, line, charge)
type OrderChargeRecord struct {
	PurchaseOrderID string `db:"purchase_order_id"`
	CustomerOrderID string `db:"customer_order_id"`
	LineNumber      string `db:"line_number"`
	ProductName     string `db:"product_name"`
	SKU             string `db:"sku"`
	ChargeType      string `db:"charge_type"`
	ChargeName      string `db:"charge_name"`
	Currency        string `db:"currency"`
	Amount          string `db:"amount"`
	TaxName         string `db:"tax_name"`
	TaxCurrency     string `db:"tax_currency"`
	TaxAmount       string `db:"tax_amount"`
}

// OrderChargeColumns lists the charges table columns in schema order
var OrderChargeColumns = []string{
	"purchase_order_id", "customer_order_id", "line_number", "product_name", "sku",
	"charge_type", "charge_name", "currency", "amount",
	"tax_name", "tax_currency", "tax_amount",
}

// OrderRefundRecord is one row per (order, line, refund charge)
type OrderRefundRecord struct {
	PurchaseOrderID string `db:"purchase_order_id"`
	CustomerOrderID string `db:"customer_order_id"`
	LineNumber      string `db:"line_number"`
	ProductName     string `db:"product_name"`
	SKU             string `db:"sku"`
	RefundID        string `db:"refund_id"`
	RefundComments  string `db:"refund_comments"`
	RefundReason    string `db:"refund_reason"`
	ChargeType      string `db:"charge_type"`
	ChargeName      string `db:"charge_name"`
	Currency        string `db:"currency"`
	Amount          string `db:"amount"`
	TaxName         string `db:"tax_name"`
	TaxCurrency     string `db:"tax_currency"`
	TaxAmount       string `db:"tax_amount"`
}

// OrderRefundColumns lists the refunds table columns in schema order
var OrderRefundColumns = []string{
	"purchase_order_id", "customer_order_id", "line_number", "product_name", "sku",
	"refund_id", "refund_comments", "refund_reason",
	"charge_type", "charge_name", "currency", "amount",
	"tax_name", "tax_currency", "tax_amount",
}

// OrderBatch accumulates the three record families across pages
type OrderBatch struct {
	General []OrderGeneralRecord
	Charges []OrderChargeRecord
	Refunds []OrderRefundRecord
}

// Append adds flattened records to the batch
func (b *OrderBatch) Append(general []OrderGeneralRecord, charges []OrderChargeRecord, refunds []OrderRefundRecord) {
	b.General = append(b.General, general...)
	b.Charges = append(b.Charges, charges...)
	b.Refunds = append(b.Refunds, refunds...)
}

// Len is the total number of rows held
func (b *OrderBatch) Len() int {
	return len(b.General) + len(b.Charges) + len(b.Refunds)
}

// PurchaseOrderIDs lists the distinct purchase order ids of the general rows in batch order
func (b *OrderBatch) PurchaseOrderIDs() []string {
	seen := make(map[string]bool, len(b.General))
	var ids []string
	for _, g := range b.General {
		if !seen[g.PurchaseOrderID] {
			seen[g.PurchaseOrderID] = true
			ids = append(ids, g.PurchaseOrderID)
		}
	}
	return ids
}
