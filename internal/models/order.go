package models

import (
	"time"
)

// Statuts possibles d'une commande
const (
	OrderPending              = "pending"
	OrderPaid                 = "paid"
	OrderFulfillmentRequested = "fulfillment_requested"
	OrderFulfilled            = "fulfilled"
	OrderFulfillmentFailed    = "fulfillment_failed"
	OrderCanceled             = "canceled"
)

// Order représente une commande merch, une ligne par session Stripe Checkout.
// session_id est la clé d'idempotence de tout le flux webhook → Printful → email.
type Order struct {
	SessionID       string     `json:"session_id"`
	OrderID         string     `json:"order_id"`
	PaymentIntentID string     `json:"payment_intent_id,omitempty"`
	Status          string     `json:"status"`
	Currency        string     `json:"currency"`
	AmountTotal     int64      `json:"amount_total"` // en centimes
	CustomerEmail   string     `json:"customer_email,omitempty"`
	CustomerName    string     `json:"customer_name,omitempty"`

	// Cible fulfillment — posée une seule fois depuis les metadata Stripe,
	// jamais modifiée ensuite
	ProductID   int64  `json:"printful_product_id,omitempty"`
	VariantID   int64  `json:"printful_variant_id,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	StoreID     string `json:"printful_store_id,omitempty"`

	Recipient *Recipient `json:"recipient,omitempty"`

	// PrintfulOrderID reste à 0 tant que la commande Printful n'a pas été créée.
	// Une fois posé, il n'est jamais effacé ni réassigné.
	PrintfulOrderID  int64  `json:"printful_order_id,omitempty"`
	PrintfulResponse string `json:"-"` // snapshot brut de la dernière réponse Printful
	RawEvent         string `json:"-"` // snapshot brut du dernier événement Stripe reçu

	// NotifiedAt marque l'envoi de l'email interne (zéro = pas encore envoyé).
	// Une fois posé, jamais effacé.
	NotifiedAt time.Time `json:"notified_at,omitzero"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recipient est l'adresse de livraison structurée, sérialisée en JSON
// dans la colonne recipient
type Recipient struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address1    string `json:"address1,omitempty"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city,omitempty"`
	StateCode   string `json:"state_code,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Zip         string `json:"zip,omitempty"`
}

// FullName recompose le nom complet pour l'API Printful
func (r *Recipient) FullName() string {
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

// Notifiable indique si la commande justifie l'email de notification interne
func (o *Order) Notifiable() bool {
	switch o.Status {
	case OrderPaid, OrderFulfillmentRequested, OrderFulfillmentFailed:
		return true
	}
	return false
}
