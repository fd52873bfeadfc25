package webhook

import (
	"context"
	"log"
	"time"

	"blackfall_back_end/internal/models"
	"blackfall_back_end/internal/utils"
)

// maybeNotify envoie l'email interne "nouvelle commande", au plus une fois par
// commande. Le timestamp notified_at persisté est la garde de déduplication :
// tant qu'il est vide, une redélivrance du même événement retentera l'envoi.
// Un doublon d'email coûte moins cher qu'une notification perdue.
func (h *Handler) maybeNotify(ctx context.Context, order *models.Order) (*models.Order, stepResult) {
	if !order.Notifiable() || !order.NotifiedAt.IsZero() {
		return order, stepSkipped
	}

	// Transport non configuré : soft-fail assumé, loggé mais jamais escaladé
	if h.Mail == nil {
		log.Printf("⚠️ SMTP non configuré — notification sautée pour %s", order.SessionID)
		return order, stepSkipped
	}

	subject, text, html := utils.BuildOrderNotification(order)

	if err := h.Mail.Send(subject, text, html); err != nil {
		// Timestamp laissé vide : la prochaine redélivrance retentera
		log.Printf("❌ Erreur envoi notification pour %s: %v", order.SessionID, err)
		return order, stepFailed
	}

	now := time.Now().UTC()
	applied, err := h.Store.MarkNotified(ctx, order.SessionID, now)
	if err != nil {
		log.Printf("❌ Erreur persistance notified_at pour %s: %v", order.SessionID, err)
		return order, stepFailed
	}
	if !applied {
		// Une livraison concurrente a déjà notifié — doublon d'email accepté
		log.Printf("🔁 notified_at déjà posé pour %s", order.SessionID)
	}

	order.NotifiedAt = now
	log.Printf("📧 Notification interne envoyée pour session %s", order.SessionID)
	return order, stepDone
}
