package webhook

import (
	"context"
	"log"
	"os"
	"strconv"

	"blackfall_back_end/internal/models"
	"blackfall_back_end/internal/orders"
	"blackfall_back_end/internal/printful"
)

// maybeDispatch crée la commande Printful une seule fois par commande payée.
// Les préconditions sont vérifiées dans l'ordre, court-circuit sans appel
// réseau dès qu'une échoue :
//  1. paiement capturé (statut paid)
//  2. aucun printful_order_id déjà posé
//  3. statut pas déjà fulfillment_requested / fulfilled
//  4. adresse structurée avec un pays résolvable
//
// Une adresse sans pays est un état intermédiaire normal (Stripe n'a pas fini
// de collecter la livraison) : on saute, on n'échoue pas.
func (h *Handler) maybeDispatch(ctx context.Context, order *models.Order) (*models.Order, stepResult) {
	switch {
	case order.Status != models.OrderPaid:
		return order, stepSkipped
	case order.PrintfulOrderID != 0:
		log.Printf("🔁 Session %s déjà expédiée chez Printful (#%d), on ne redemande pas", order.SessionID, order.PrintfulOrderID)
		return order, stepSkipped
	case order.Status == models.OrderFulfillmentRequested || order.Status == models.OrderFulfilled:
		// Garde redondante avec les deux précédentes, conservée par défense
		return order, stepSkipped
	case order.Recipient == nil || order.Recipient.CountryCode == "":
		log.Printf("ℹ️ Session %s : adresse incomplète, fulfillment différé", order.SessionID)
		return order, stepSkipped
	}

	// CAS paid → fulfillment_requested avant l'appel réseau : ferme la course
	// entre deux livraisons concurrentes du même événement
	claimed, err := h.Store.ClaimDispatch(ctx, order.SessionID)
	if err != nil {
		log.Printf("❌ Erreur claim dispatch pour %s: %v", order.SessionID, err)
		return order, stepFailed
	}
	if !claimed {
		log.Printf("🔁 Dispatch déjà réclamé pour %s, on laisse l'autre livraison finir", order.SessionID)
		return order, stepSkipped
	}
	order.Status = models.OrderFulfillmentRequested

	storeID, err := h.resolveStoreID(ctx, order.StoreID)
	if err != nil {
		log.Printf("❌ Résolution boutique Printful impossible pour %s: %v", order.SessionID, err)
		return h.recordDispatchFailure(ctx, order, []byte(err.Error()))
	}

	req := buildPrintfulOrder(order)

	result, raw, err := h.Printful.CreateOrder(ctx, storeID, req)
	if err != nil {
		// Échec enregistré, jamais propagé : l'acquittement HTTP doit réussir
		log.Printf("❌ Printful a refusé la commande %s: %v", order.SessionID, err)
		detail := raw
		if len(detail) == 0 {
			detail = []byte(err.Error())
		}
		return h.recordDispatchFailure(ctx, order, detail)
	}

	if err := h.Store.RecordFulfillment(ctx, order.SessionID, result.ID, raw); err != nil {
		// Printful a bien créé la commande : surtout ne pas écrire
		// fulfillment_failed ici, une redélivrance redispatcherait un doublon.
		// L'opérateur réconcilie côté Printful via la référence externe.
		log.Printf("❌ Commande Printful #%d créée mais non persistée pour %s (référence %s): %v",
			result.ID, order.SessionID, orders.ExternalID(order.SessionID), err)
		return order, stepFailed
	}

	order.PrintfulOrderID = result.ID
	order.PrintfulResponse = string(raw)
	log.Printf("📦 Commande Printful #%d créée pour session %s", result.ID, order.SessionID)
	return order, stepDone
}

func (h *Handler) recordDispatchFailure(ctx context.Context, order *models.Order, detail []byte) (*models.Order, stepResult) {
	if err := h.Store.RecordFulfillmentFailure(ctx, order.SessionID, detail); err != nil {
		log.Printf("❌ Impossible d'enregistrer l'échec fulfillment pour %s: %v", order.SessionID, err)
	}
	order.Status = models.OrderFulfillmentFailed
	order.PrintfulResponse = string(detail)
	return order, stepFailed
}

// resolveStoreID retourne la boutique Printful à utiliser : l'identifiant
// stocké sur la commande s'il est valide, sinon PRINTFUL_STORE_ID, sinon la
// première boutique accessible avec le token
func (h *Handler) resolveStoreID(ctx context.Context, explicit string) (int64, error) {
	if id, err := strconv.ParseInt(explicit, 10, 64); err == nil && id > 0 {
		return id, nil
	}

	if env := os.Getenv("PRINTFUL_STORE_ID"); env != "" {
		if id, err := strconv.ParseInt(env, 10, 64); err == nil && id > 0 {
			return id, nil
		}
		log.Printf("⚠️ PRINTFUL_STORE_ID invalide (%q), on interroge l'API", env)
	}

	stores, err := h.Printful.ListStores(ctx)
	if err != nil {
		return 0, err
	}
	if len(stores) == 0 {
		return 0, errNoStore
	}
	return stores[0].ID, nil
}

var errNoStore = &printful.APIError{StatusCode: 0, Message: "aucune boutique accessible avec ce token"}

// buildPrintfulOrder construit le payload de création. external_id est dérivé
// de la session : même référence à chaque tentative, Printful peut donc
// détecter un doublon de son côté.
func buildPrintfulOrder(order *models.Order) *printful.OrderRequest {
	quantity := order.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	return &printful.OrderRequest{
		ExternalID: orders.ExternalID(order.SessionID),
		Recipient: printful.Recipient{
			Name:        order.Recipient.FullName(),
			Email:       order.Recipient.Email,
			Phone:       order.Recipient.Phone,
			Address1:    order.Recipient.Address1,
			Address2:    order.Recipient.Address2,
			City:        order.Recipient.City,
			StateCode:   order.Recipient.StateCode,
			CountryCode: order.Recipient.CountryCode,
			Zip:         order.Recipient.Zip,
		},
		Items: []printful.OrderItem{{
			ProductID: order.ProductID,
			VariantID: order.VariantID,
			Quantity:  quantity,
			Name:      order.ProductName,
		}},
	}
}
