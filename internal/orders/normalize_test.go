package orders

import (
	"testing"

	"blackfall_back_end/internal/models"

	"github.com/stripe/stripe-go/v83"
)

func paidSession() *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:            "cs_test_1",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Currency:      stripe.CurrencyUSD,
		AmountTotal:   2599,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_test_1"},
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
			Name:  "Jean Morane",
			Email: "jean@exemple.fr",
			Phone: "+33600000000",
		},
		Metadata: map[string]string{
			"printful_product_id": "301",
			"printful_variant_id": "11576",
			"quantity":            "2",
			"product_name":        "T-shirt Blackfall Tour",
			"printful_store_id":   "7",
		},
		CollectedInformation: &stripe.CheckoutSessionCollectedInformation{
			ShippingDetails: &stripe.CheckoutSessionCollectedInformationShippingDetails{
				Name: "Jean Morane",
				Address: &stripe.Address{
					Line1:      "12 rue des Brumes",
					City:       "Lille",
					PostalCode: "59000",
					Country:    "FR",
				},
			},
		},
	}
}

func TestNormalizePaidSession(t *testing.T) {
	order := NormalizeCheckoutSession(paidSession())

	if order.SessionID != "cs_test_1" {
		t.Fatalf("session_id inattendu: %s", order.SessionID)
	}
	if order.Status != models.OrderPaid {
		t.Fatalf("statut attendu paid, reçu %s", order.Status)
	}
	if order.PaymentIntentID != "pi_test_1" {
		t.Fatalf("payment_intent inattendu: %s", order.PaymentIntentID)
	}
	if order.AmountTotal != 2599 || order.Currency != "usd" {
		t.Fatalf("montant/devise inattendus: %d %s", order.AmountTotal, order.Currency)
	}
	if order.ProductID != 301 || order.VariantID != 11576 || order.Quantity != 2 {
		t.Fatalf("cible produit inattendue: %d/%d x%d", order.ProductID, order.VariantID, order.Quantity)
	}
	if order.StoreID != "7" {
		t.Fatalf("boutique inattendue: %q", order.StoreID)
	}
	if order.ProductName != "T-shirt Blackfall Tour" {
		t.Fatalf("libellé produit inattendu: %q", order.ProductName)
	}
	if order.CustomerEmail != "jean@exemple.fr" || order.CustomerName != "Jean Morane" {
		t.Fatalf("contact inattendu: %s <%s>", order.CustomerName, order.CustomerEmail)
	}
	if order.Recipient == nil || order.Recipient.CountryCode != "FR" {
		t.Fatalf("destinataire inattendu: %+v", order.Recipient)
	}
	if order.Recipient.Email != "jean@exemple.fr" || order.Recipient.Phone != "+33600000000" {
		t.Fatalf("contact destinataire non repris depuis customer_details")
	}
}

func TestNormalizeUnpaidSessionIsPending(t *testing.T) {
	s := paidSession()
	s.PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid

	if got := NormalizeCheckoutSession(s).Status; got != models.OrderPending {
		t.Fatalf("statut attendu pending, reçu %s", got)
	}
}

func TestNormalizeNoPaymentRequiredIsPending(t *testing.T) {
	// no_payment_required n'est pas un paiement capturé : on ne dispatch pas
	s := paidSession()
	s.PaymentStatus = stripe.CheckoutSessionPaymentStatusNoPaymentRequired

	if got := NormalizeCheckoutSession(s).Status; got != models.OrderPending {
		t.Fatalf("statut attendu pending, reçu %s", got)
	}
}

func TestNormalizeQuantityDefaultsToOne(t *testing.T) {
	s := paidSession()
	delete(s.Metadata, "quantity")

	if got := NormalizeCheckoutSession(s).Quantity; got != 1 {
		t.Fatalf("quantité attendue 1, reçue %d", got)
	}

	s.Metadata["quantity"] = "pas-un-nombre"
	if got := NormalizeCheckoutSession(s).Quantity; got != 1 {
		t.Fatalf("quantité illisible : attendu 1, reçu %d", got)
	}
}

func TestNormalizeNegativeMetadataIgnored(t *testing.T) {
	s := paidSession()
	s.Metadata["printful_product_id"] = "-5"

	if got := NormalizeCheckoutSession(s).ProductID; got != 0 {
		t.Fatalf("identifiant négatif : attendu 0, reçu %d", got)
	}
}

func TestRecipientNilWithoutAddress(t *testing.T) {
	s := paidSession()
	s.CollectedInformation = nil
	s.CustomerDetails.Address = nil

	if got := RecipientFromSession(s); got != nil {
		t.Fatalf("sans adresse collectée, destinataire attendu nil, reçu %+v", got)
	}
}

func TestRecipientFallsBackToCustomerAddress(t *testing.T) {
	s := paidSession()
	s.CollectedInformation = nil
	s.CustomerDetails.Address = &stripe.Address{
		Line1:      "3 impasse du Corbeau",
		City:       "Nantes",
		PostalCode: "44000",
		Country:    "FR",
	}

	r := RecipientFromSession(s)
	if r == nil || r.Address1 != "3 impasse du Corbeau" {
		t.Fatalf("repli sur l'adresse client attendu, reçu %+v", r)
	}
	if r.FirstName != "Jean" || r.LastName != "Morane" {
		t.Fatalf("nom dérivé de customer_details attendu, reçu %s %s", r.FirstName, r.LastName)
	}
}

func TestCustomerNameFallsBackToShipping(t *testing.T) {
	s := paidSession()
	s.CustomerDetails.Name = ""

	name, email := customerContact(s)
	if name != "Jean Morane" {
		t.Fatalf("repli sur le nom de livraison attendu, reçu %q", name)
	}
	if email != "jean@exemple.fr" {
		t.Fatalf("email inattendu: %q", email)
	}
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		in    string
		first string
		last  string
	}{
		{"Jean Morane", "Jean", "Morane"},
		{"Jean Du Pont", "Jean", "Du Pont"},
		{"Prince", "Prince", ""},
		{"  Marie  Curie  ", "Marie", "Curie"},
		{"", "", ""},
	}

	for _, c := range cases {
		first, last := SplitName(c.in)
		if first != c.first || last != c.last {
			t.Errorf("SplitName(%q) = (%q, %q), attendu (%q, %q)", c.in, first, last, c.first, c.last)
		}
	}
}

func TestExternalIDIsDeterministic(t *testing.T) {
	if got := ExternalID("cs_test_1"); got != "stripe_cs_test_1" {
		t.Fatalf("référence externe inattendue: %s", got)
	}
	if ExternalID("cs_test_1") != ExternalID("cs_test_1") {
		t.Fatal("la référence externe doit être stable entre deux appels")
	}
}
