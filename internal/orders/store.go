package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"blackfall_back_end/internal/database"
	"blackfall_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
)

// ErrNotFound est renvoyée quand aucune commande ne correspond à la session
var ErrNotFound = errors.New("commande introuvable")

// Store est le contrat du dépôt de commandes. Chaque opération est
// indépendamment idempotente — le flux webhook peut rejouer n'importe laquelle.
type Store interface {
	// UpsertFromCheckoutSession crée ou met à jour la commande de cette session.
	// Rejouable à volonté : le résultat converge vers les données du dernier
	// événement (last-write-wins sur les champs mutables, identité et cible
	// fulfillment intactes après la première écriture).
	UpsertFromCheckoutSession(ctx context.Context, s *stripe.CheckoutSession, rawEvent []byte) (*models.Order, error)

	// MarkExpired passe la commande en canceled et remplace le snapshot d'audit.
	// Sans effet si la session est inconnue, idempotent si rejouée.
	MarkExpired(ctx context.Context, sessionID string, rawEvent []byte) error

	// ClaimDispatch réserve le droit d'appeler Printful : CAS paid →
	// fulfillment_requested, uniquement si aucun printful_order_id n'est posé.
	// Retourne false si une autre livraison du même événement a déjà gagné.
	ClaimDispatch(ctx context.Context, sessionID string) (bool, error)

	// RecordFulfillment pose l'identifiant de commande Printful et le snapshot
	// de réponse. L'identifiant n'est jamais réassigné.
	RecordFulfillment(ctx context.Context, sessionID string, printfulOrderID int64, rawResponse []byte) error

	// RecordFulfillmentFailure enregistre l'échec (statut fulfillment_failed +
	// détail brut) pour suivi opérateur — l'échec n'est pas propagé au flux.
	RecordFulfillmentFailure(ctx context.Context, sessionID string, detail []byte) error

	// MarkNotified pose le timestamp d'envoi de l'email interne, une seule fois
	// (CAS sur notified_at null). Retourne false si déjà posé.
	MarkNotified(ctx context.Context, sessionID string, at time.Time) (bool, error)

	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]models.Order, error)
}

// ScyllaStore implémente Store sur le keyspace orders
type ScyllaStore struct{}

func NewScyllaStore() *ScyllaStore {
	return &ScyllaStore{}
}

func (st *ScyllaStore) UpsertFromCheckoutSession(ctx context.Context, s *stripe.CheckoutSession, rawEvent []byte) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	normalized := NormalizeCheckoutSession(s)
	normalized.RawEvent = string(rawEvent)
	now := time.Now().UTC()

	existing, err := st.FindBySessionID(ctx, s.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if existing == nil {
		// Première réception : créer la ligne et figer la cible fulfillment
		normalized.OrderID = uuid.NewString()
		normalized.CreatedAt = now
		normalized.UpdatedAt = now

		recipientJSON, err := marshalRecipient(normalized.Recipient)
		if err != nil {
			return nil, err
		}

		err = session.Query(`INSERT INTO orders (session_id, order_id, payment_intent_id, status, currency, amount_total,
			customer_email, customer_name, printful_product_id, printful_variant_id, quantity,
			product_name, printful_store_id, recipient, raw_event, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			normalized.SessionID, mustUUID(normalized.OrderID), normalized.PaymentIntentID,
			normalized.Status, normalized.Currency, normalized.AmountTotal,
			normalized.CustomerEmail, normalized.CustomerName,
			normalized.ProductID, normalized.VariantID, normalized.Quantity,
			normalized.ProductName, normalized.StoreID, recipientJSON, normalized.RawEvent, now, now,
		).WithContext(ctx).Exec()
		if err != nil {
			return nil, err
		}

		log.Printf("✅ Commande créée pour session %s (statut %s)", normalized.SessionID, normalized.Status)
		return &normalized, nil
	}

	// Re-réception : écraser les champs mutables, ne jamais dupliquer la ligne.
	// Le statut ne régresse pas depuis fulfillment_requested / fulfilled — une
	// redélivrance du même événement doit laisser une commande expédiée intacte.
	status := normalized.Status
	if existing.Status == models.OrderFulfillmentRequested || existing.Status == models.OrderFulfilled {
		status = existing.Status
	}

	recipientJSON, err := marshalRecipient(normalized.Recipient)
	if err != nil {
		return nil, err
	}

	err = session.Query(`UPDATE orders SET payment_intent_id = ?, status = ?, currency = ?, amount_total = ?,
		customer_email = ?, customer_name = ?, recipient = ?, raw_event = ?, updated_at = ?
		WHERE session_id = ?`,
		normalized.PaymentIntentID, status, normalized.Currency, normalized.AmountTotal,
		normalized.CustomerEmail, normalized.CustomerName, recipientJSON, normalized.RawEvent, now,
		normalized.SessionID,
	).WithContext(ctx).Exec()
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.PaymentIntentID = normalized.PaymentIntentID
	updated.Status = status
	updated.Currency = normalized.Currency
	updated.AmountTotal = normalized.AmountTotal
	updated.CustomerEmail = normalized.CustomerEmail
	updated.CustomerName = normalized.CustomerName
	updated.Recipient = normalized.Recipient
	updated.RawEvent = normalized.RawEvent
	updated.UpdatedAt = now

	log.Printf("🔁 Commande mise à jour pour session %s (statut %s)", updated.SessionID, updated.Status)
	return &updated, nil
}

func (st *ScyllaStore) MarkExpired(ctx context.Context, sessionID string, rawEvent []byte) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	// IF EXISTS : une expiration pour une session inconnue ne doit pas créer
	// de ligne fantôme
	applied, err := session.Query(`UPDATE orders SET status = ?, raw_event = ?, updated_at = ?
		WHERE session_id = ? IF EXISTS`,
		models.OrderCanceled, string(rawEvent), time.Now().UTC(), sessionID,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}

	if applied {
		log.Printf("🚫 Session %s expirée → commande annulée", sessionID)
	}
	return nil
}

func (st *ScyllaStore) ClaimDispatch(ctx context.Context, sessionID string) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, err
	}

	// LWT : ferme la course check-then-act entre livraisons concurrentes du
	// même événement. fulfillment_requested n'est atteignable que depuis paid.
	applied, err := session.Query(`UPDATE orders SET status = ?, updated_at = ?
		WHERE session_id = ? IF status = ? AND printful_order_id = null`,
		models.OrderFulfillmentRequested, time.Now().UTC(), sessionID, models.OrderPaid,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, err
	}

	return applied, nil
}

func (st *ScyllaStore) RecordFulfillment(ctx context.Context, sessionID string, printfulOrderID int64, rawResponse []byte) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	// IF printful_order_id = null : l'identifiant, une fois posé, n'est jamais
	// écrasé ni réassigné
	applied, err := session.Query(`UPDATE orders SET printful_order_id = ?, printful_response = ?, status = ?, updated_at = ?
		WHERE session_id = ? IF printful_order_id = null`,
		printfulOrderID, string(rawResponse), models.OrderFulfillmentRequested, time.Now().UTC(), sessionID,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}

	if !applied {
		log.Printf("⚠️ printful_order_id déjà posé pour session %s — écriture ignorée", sessionID)
	}
	return nil
}

func (st *ScyllaStore) RecordFulfillmentFailure(ctx context.Context, sessionID string, detail []byte) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	return session.Query(`UPDATE orders SET status = ?, printful_response = ?, updated_at = ?
		WHERE session_id = ?`,
		models.OrderFulfillmentFailed, string(detail), time.Now().UTC(), sessionID,
	).WithContext(ctx).Exec()
}

func (st *ScyllaStore) MarkNotified(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, err
	}

	applied, err := session.Query(`UPDATE orders SET notified_at = ?, updated_at = ?
		WHERE session_id = ? IF notified_at = null`,
		at.UTC(), time.Now().UTC(), sessionID,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, err
	}

	return applied, nil
}

func (st *ScyllaStore) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	q := session.Query(database.SelectOrderBySessionCQL, sessionID).WithContext(ctx)

	order, err := scanOrder(q)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (st *ScyllaStore) ListByStatus(ctx context.Context, status string, limit int) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}

	iter := session.Query(database.SelectOrdersByStatusCQL, status, limit).WithContext(ctx).Iter()
	defer iter.Close()

	var result []models.Order
	for {
		order, ok := scanOrderFromIter(iter)
		if !ok {
			break
		}
		result = append(result, *order)
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- helpers de scan ---

func scanOrder(q *gocql.Query) (*models.Order, error) {
	var o models.Order
	var orderID gocql.UUID
	var recipientJSON string

	err := q.Scan(&o.SessionID, &orderID, &o.PaymentIntentID, &o.Status, &o.Currency, &o.AmountTotal,
		&o.CustomerEmail, &o.CustomerName, &o.ProductID, &o.VariantID, &o.Quantity,
		&o.ProductName, &o.StoreID, &recipientJSON, &o.PrintfulOrderID, &o.PrintfulResponse, &o.RawEvent,
		&o.NotifiedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	o.OrderID = orderID.String()
	o.Recipient = unmarshalRecipient(recipientJSON)
	return &o, nil
}

func scanOrderFromIter(iter *gocql.Iter) (*models.Order, bool) {
	var o models.Order
	var orderID gocql.UUID
	var recipientJSON string

	ok := iter.Scan(&o.SessionID, &orderID, &o.PaymentIntentID, &o.Status, &o.Currency, &o.AmountTotal,
		&o.CustomerEmail, &o.CustomerName, &o.ProductID, &o.VariantID, &o.Quantity,
		&o.ProductName, &o.StoreID, &recipientJSON, &o.PrintfulOrderID, &o.PrintfulResponse, &o.RawEvent,
		&o.NotifiedAt, &o.CreatedAt, &o.UpdatedAt)
	if !ok {
		return nil, false
	}

	o.OrderID = orderID.String()
	o.Recipient = unmarshalRecipient(recipientJSON)
	return &o, true
}

func marshalRecipient(r *models.Recipient) (string, error) {
	if r == nil {
		return "", nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalRecipient(data string) *models.Recipient {
	if data == "" {
		return nil
	}
	var r models.Recipient
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		log.Printf("⚠️ Recipient illisible en base: %v", err)
		return nil
	}
	return &r
}

func mustUUID(s string) gocql.UUID {
	u, err := gocql.ParseUUID(s)
	if err != nil {
		// uuid.NewString produit toujours un UUID valide
		return gocql.UUID{}
	}
	return u
}
