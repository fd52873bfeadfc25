package orders

import (
	"strconv"
	"strings"

	"blackfall_back_end/internal/models"

	"github.com/stripe/stripe-go/v83"
)

// NormalizeCheckoutSession dérive les champs métier d'une session Stripe Checkout.
// Seuls les champs normalisés pilotent la logique ensuite — le payload brut n'est
// conservé que comme snapshot d'audit.
func NormalizeCheckoutSession(s *stripe.CheckoutSession) models.Order {
	order := models.Order{
		SessionID:   s.ID,
		Status:      PaymentStatusOf(s),
		Currency:    string(s.Currency),
		AmountTotal: s.AmountTotal,
		ProductID:   metaInt(s.Metadata, "printful_product_id"),
		VariantID:   metaInt(s.Metadata, "printful_variant_id"),
		Quantity:    int(metaInt(s.Metadata, "quantity")),
		ProductName: s.Metadata["product_name"],
		StoreID:     s.Metadata["printful_store_id"],
		Recipient:   RecipientFromSession(s),
	}

	if s.PaymentIntent != nil {
		order.PaymentIntentID = s.PaymentIntent.ID
	}

	order.CustomerName, order.CustomerEmail = customerContact(s)

	if order.Quantity <= 0 {
		order.Quantity = 1
	}

	return order
}

// PaymentStatusOf traduit le payment_status Stripe en statut de commande :
// paid si et seulement si le paiement est capturé, sinon pending
func PaymentStatusOf(s *stripe.CheckoutSession) string {
	if s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		return models.OrderPaid
	}
	return models.OrderPending
}

// customerContact préfère les coordonnées client explicites, avec repli
// sur le contact de livraison collecté
func customerContact(s *stripe.CheckoutSession) (name, email string) {
	if s.CustomerDetails != nil {
		name = s.CustomerDetails.Name
		email = s.CustomerDetails.Email
	}

	if shipping := shippingDetails(s); shipping != nil {
		if name == "" {
			name = shipping.Name
		}
	}

	return name, email
}

// RecipientFromSession construit l'adresse de livraison structurée.
// Retourne nil tant que Stripe n'a encore collecté aucune adresse — état
// intermédiaire normal, pas une erreur.
func RecipientFromSession(s *stripe.CheckoutSession) *models.Recipient {
	var name string
	var addr *stripe.Address

	if shipping := shippingDetails(s); shipping != nil && shipping.Address != nil {
		name = shipping.Name
		addr = shipping.Address
	} else if s.CustomerDetails != nil && s.CustomerDetails.Address != nil {
		name = s.CustomerDetails.Name
		addr = s.CustomerDetails.Address
	}

	if addr == nil {
		return nil
	}

	first, last := SplitName(name)
	recipient := &models.Recipient{
		FirstName:   first,
		LastName:    last,
		Address1:    addr.Line1,
		Address2:    addr.Line2,
		City:        addr.City,
		StateCode:   addr.State,
		CountryCode: addr.Country,
		Zip:         addr.PostalCode,
	}

	if s.CustomerDetails != nil {
		recipient.Email = s.CustomerDetails.Email
		recipient.Phone = s.CustomerDetails.Phone
	}

	return recipient
}

// SplitName découpe "Jean Du Pont" en ("Jean", "Du Pont"). Un nom à un seul
// token donne un nom de famille vide. Heuristique volontairement simpliste :
// les prénoms composés sans tiret sont coupés au premier espace (limitation connue).
func SplitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}

	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}

// ExternalID dérive la référence externe Printful depuis la session Stripe.
// Déterministe : une deuxième tentative de dispatch porte la même référence,
// ce qui laisse Printful détecter lui-même les doublons.
func ExternalID(sessionID string) string {
	return "stripe_" + sessionID
}

func shippingDetails(s *stripe.CheckoutSession) *stripe.CheckoutSessionCollectedInformationShippingDetails {
	if s.CollectedInformation == nil {
		return nil
	}
	return s.CollectedInformation.ShippingDetails
}

func metaInt(meta map[string]string, key string) int64 {
	v, ok := meta[key]
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
