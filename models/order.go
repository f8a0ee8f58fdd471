package models

import (
	"github.com/shopspring/decimal"
)

// Order is one purchase order as listed by the marketplace
type Order struct {
	PurchaseOrderID string       `json:"purchaseOrderId"`
	CustomerOrderID *string      `json:"customerOrderId"`
	CustomerEmailID string       `json:"customerEmailId"`
	OrderDate       *int64       `json:"orderDate"`
	ShippingInfo    ShippingInfo `json:"shippingInfo"`
	OrderLines      struct {
		OrderLine []OrderLine `json:"orderLine"`
	} `json:"orderLines"`
}

// ShippingInfo holds the delivery details of an order
type ShippingInfo struct {
	Phone                 *string       `json:"phone"`
	EstimatedDeliveryDate *int64        `json:"estimatedDeliveryDate"`
	EstimatedShipDate     *int64        `json:"estimatedShipDate"`
	MethodCode            *string       `json:"methodCode"`
	PostalAddress         PostalAddress `json:"postalAddress"`
}

// PostalAddress of the ship-to party
type PostalAddress struct {
	Name        *string `json:"name"`
	Address1    *string `json:"address1"`
	Address2    *string `json:"address2"`
	City        *string `json:"city"`
	State       *string `json:"state"`
	PostalCode  *string `json:"postalCode"`
	Country     *string `json:"country"`
	AddressType *string `json:"addressType"`
}

// OrderLine is one line item of an order
type OrderLine struct {
	LineNumber string `json:"lineNumber"`
	Item       Item   `json:"item"`
	Charges    struct {
		Charge []Charge `json:"charge"`
	} `json:"charges"`
	OrderLineQuantity Quantity `json:"orderLineQuantity"`
	StatusDate        *int64   `json:"statusDate"`
	OrderLineStatuses struct {
		OrderLineStatus []LineStatus `json:"orderLineStatus"`
	} `json:"orderLineStatuses"`
	Refund      *Refund     `json:"refund"`
	Fulfillment Fulfillment `json:"fulfillment"`
}

// Item sold on a line
type Item struct {
	ProductName string `json:"productName"`
	SKU         string `json:"sku"`
}

// Quantity is a unit of measure and an amount, both sent as strings
type Quantity struct {
	UnitOfMeasurement *string `json:"unitOfMeasurement"`
	Amount            string  `json:"amount"`
}

// LineStatus is one entry of the line status list
type LineStatus struct {
	Status         *string       `json:"status"`
	StatusQuantity *Quantity     `json:"statusQuantity"`
	TrackingInfo   *TrackingInfo `json:"trackingInfo"`
}

// TrackingInfo of a shipped line
type TrackingInfo struct {
	ShipDateTime      *int64  `json:"shipDateTime"`
	CarrierName       Carrier `json:"carrierName"`
	MethodCode        *string `json:"methodCode"`
	CarrierMethodCode *string `json:"carrierMethodCode"`
	TrackingNumber    *string `json:"trackingNumber"`
	TrackingURL       *string `json:"trackingURL"`
}

// Carrier is either a known carrier or a free-text other carrier
type Carrier struct {
	OtherCarrier *string `json:"otherCarrier"`
	Carrier      *string `json:"carrier"`
}

// Fulfillment of a line
type Fulfillment struct {
	FulfillmentOption   *string `json:"fulfillmentOption"`
	ShipMethod          *string `json:"shipMethod"`
	StoreID             *string `json:"storeId"`
	PickUpDateTime      *int64  `json:"pickUpDateTime"`
	PickUpBy            *string `json:"pickUpBy"`
	ShippingProgramType *string `json:"shippingProgramType"`
}

// Charge is a monetary adjustment on a line
type Charge struct {
	ChargeType   *string `json:"chargeType"`
	ChargeName   *string `json:"chargeName"`
	ChargeAmount Amount  `json:"chargeAmount"`
	Tax          *Tax    `json:"tax"`
}

// Amount is a currency and a value
type Amount struct {
	Currency *string             `json:"currency"`
	Amount   decimal.NullDecimal `json:"amount"`
}

// Tax attached to a charge
type Tax struct {
	TaxName   *string `json:"taxName"`
	TaxAmount Amount  `json:"taxAmount"`
}

// Refund of a line
type Refund struct {
	RefundID       *string `json:"refundId"`
	RefundComments *string `json:"refundComments"`
	RefundCharges  struct {
		RefundCharge []RefundCharge `json:"refundCharge"`
	} `json:"refundCharges"`
}

// RefundCharge is a charge reversed by a refund
type RefundCharge struct {
	RefundReason *string `json:"refundReason"`
	Charge       Charge  `json:"charge"`
}
