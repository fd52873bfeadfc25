// Package webhook porte le flux de réconciliation paiement → fulfillment :
// vérification de l'événement Stripe, upsert de la commande, création de la
// commande Printful, notification interne. Le webhook est acquitté en succès
// dès que la signature et le parsing passent — un échec d'intégration aval est
// enregistré dans la commande, jamais renvoyé à Stripe (sinon ses retries
// martèleraient pour des conditions qu'un retry ne corrige pas).
package webhook

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"blackfall_back_end/internal/database"
	"blackfall_back_end/internal/orders"
	"blackfall_back_end/internal/printful"
	"blackfall_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v83"
	stripewebhook "github.com/stripe/stripe-go/v83/webhook"
)

// MailSender envoie l'email de notification interne (texte + HTML).
// nil quand la configuration SMTP est absente — le flux saute alors l'étape.
type MailSender interface {
	Send(subject, textBody, htmlBody string) error
}

// Handler regroupe les collaborateurs du flux de réconciliation
type Handler struct {
	Store    orders.Store
	Printful printful.API
	Mail     MailSender
}

func NewHandler(store orders.Store, pf printful.API, mail MailSender) *Handler {
	return &Handler{Store: store, Printful: pf, Mail: mail}
}

// Résultat interne d'une étape : fait / sauté / échec enregistré.
// Les issues métier attendues (adresse incomplète, mail non configuré, échec
// Printful) ne sont pas des erreurs Go — elles ne remontent jamais en HTTP.
type stepResult int

const (
	stepDone stepResult = iota
	stepSkipped
	stepFailed
)

// HandleStripeWebhook est le point d'entrée du webhook Stripe
func (h *Handler) HandleStripeWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	// Secret absent = serveur mal configuré, distinct d'une mauvaise signature.
	// Jamais de mode non signé : on refuse avant toute écriture.
	secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if secret == "" {
		log.Println("❌ STRIPE_WEBHOOK_SECRET manquant — webhook refusé")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook non configuré"})
		return
	}

	event, err := stripewebhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), secret)
	if err != nil {
		log.Println("❌ Signature Stripe invalide:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
		return
	}

	log.Printf("📥 Événement Stripe reçu : %s (%s)", event.Type, event.ID)

	switch event.Type {
	case "checkout.session.completed":
		if h.alreadySettled(c.Request.Context(), event.ID) {
			log.Printf("🔁 Événement %s déjà traité, on acquitte sans rien faire", event.ID)
			break
		}

		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			log.Println("❌ Erreur décodage CheckoutSession:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Payload illisible"})
			return
		}

		if h.reconcile(c.Request.Context(), &session, payload) {
			h.markSettled(c.Request.Context(), event.ID)
		}

	case "checkout.session.expired":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			log.Println("❌ Erreur décodage CheckoutSession:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Payload illisible"})
			return
		}

		if err := h.Store.MarkExpired(c.Request.Context(), session.ID, payload); err != nil {
			// Enregistré côté logs seulement : on acquitte quand même
			log.Printf("❌ Erreur annulation session %s: %v", session.ID, err)
		} else if order, err := h.Store.FindBySessionID(c.Request.Context(), session.ID); err == nil {
			// Le miroir Elastic doit refléter l'annulation, comme chaque
			// autre écriture du flux
			go services.IndexOrder(*order)
		}

	default:
		// Types inconnus acquittés sans action (compatibilité ascendante)
		log.Printf("ℹ️ Événement ignoré : %s", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// reconcile déroule upsert → dispatch → notification pour une session payée.
// Retourne true quand il ne reste rien de rejouable : une redélivrance du même
// événement n'apporterait plus rien.
func (h *Handler) reconcile(ctx context.Context, session *stripe.CheckoutSession, rawEvent []byte) bool {
	order, err := h.Store.UpsertFromCheckoutSession(ctx, session, rawEvent)
	if err != nil {
		log.Printf("❌ Erreur upsert commande %s: %v", session.ID, err)
		return false
	}

	order, dispatch := h.maybeDispatch(ctx, order)
	order, notify := h.maybeNotify(ctx, order)

	// Miroir Elastic pour le back-office, sans jamais bloquer le flux
	go services.IndexOrder(*order)

	return dispatch != stepFailed && notify != stepFailed
}

// alreadySettled consulte le marqueur Redis d'événement entièrement traité.
// Best-effort : sans Redis, on retombe sur l'idempotence de la base.
func (h *Handler) alreadySettled(ctx context.Context, eventID string) bool {
	if redisClient() == nil || eventID == "" {
		return false
	}
	exists, err := redisClient().Exists(ctx, settledKey(eventID)).Result()
	if err != nil {
		log.Printf("⚠️ Redis indisponible pour %s: %v", eventID, err)
		return false
	}
	return exists > 0
}

// markSettled pose le marqueur uniquement quand plus rien n'est rejouable —
// un dispatch échoué ou un email en attente doit laisser passer la redélivrance
func (h *Handler) markSettled(ctx context.Context, eventID string) {
	if redisClient() == nil || eventID == "" {
		return
	}
	if err := redisClient().Set(ctx, settledKey(eventID), "1", 72*time.Hour).Err(); err != nil {
		log.Printf("⚠️ Impossible de marquer %s traité: %v", eventID, err)
	}
}

func settledKey(eventID string) string {
	return "stripe_event:" + eventID
}

func redisClient() *redis.Client {
	return database.Redis
}
