package utils

import (
	"strings"
	"testing"
	"time"

	"blackfall_back_end/internal/models"
)

func sampleOrder(status string) *models.Order {
	return &models.Order{
		SessionID:     "cs_test_1",
		OrderID:       "aabbccdd-1111-2222-3333-444455556666",
		Status:        status,
		Currency:      "usd",
		AmountTotal:   2599,
		CustomerName:  "Jean Morane",
		CustomerEmail: "jean@exemple.fr",
		CreatedAt:     time.Now().UTC(),
	}
}

func TestNotificationSubjectPerStatus(t *testing.T) {
	cases := []struct {
		status string
		want   string
	}{
		{models.OrderPaid, "🤘 Nouvelle commande aabbccdd payée — Blackfall Records"},
		{models.OrderFulfillmentRequested, "📦 Nouvelle commande aabbccdd envoyée chez Printful"},
		{models.OrderFulfillmentFailed, "❌ Échec fulfillment Printful — commande aabbccdd à vérifier"},
	}

	for _, c := range cases {
		subject, _, _ := BuildOrderNotification(sampleOrder(c.status))
		if subject != c.want {
			t.Errorf("statut %s: sujet %q, attendu %q", c.status, subject, c.want)
		}
	}
}

func TestNotificationBodies(t *testing.T) {
	order := sampleOrder(models.OrderFulfillmentRequested)
	order.PrintfulOrderID = 42

	_, text, html := BuildOrderNotification(order)

	for _, want := range []string{"cs_test_1", "25.99 USD", "Jean Morane", "jean@exemple.fr", "#42"} {
		if !strings.Contains(text, want) {
			t.Errorf("corps texte sans %q:\n%s", want, text)
		}
		if !strings.Contains(html, want) {
			t.Errorf("corps HTML sans %q", want)
		}
	}
}

func TestNotificationFailureWarning(t *testing.T) {
	_, text, html := BuildOrderNotification(sampleOrder(models.OrderFulfillmentFailed))

	if !strings.Contains(text, "intervention manuelle") {
		t.Errorf("avertissement manquant dans le corps texte:\n%s", text)
	}
	if !strings.Contains(html, "intervention manuelle") {
		t.Error("avertissement manquant dans le corps HTML")
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		minor    int64
		currency string
		want     string
	}{
		{2599, "usd", "25.99 USD"},
		{2599, "eur", "25.99 EUR"},
		{100, "usd", "1.00 USD"},
		{0, "usd", "0.00 USD"},
		{999999, "eur", "9999.99 EUR"},
	}

	for _, c := range cases {
		if got := FormatAmount(c.minor, c.currency); got != c.want {
			t.Errorf("FormatAmount(%d, %q) = %q, attendu %q", c.minor, c.currency, got, c.want)
		}
	}
}
