package webhook

import (
	"errors"
	"net/http"

	"blackfall_back_end/internal/models"
	"blackfall_back_end/internal/orders"
	"blackfall_back_end/internal/services"

	"github.com/gin-gonic/gin"
)

// GetOrder retourne la commande d'une session Checkout — c'est par ici que
// les échecs de fulfillment enregistrés deviennent visibles pour le suivi
// opérateur
func (h *Handler) GetOrder(c *gin.Context) {
	sessionID := c.Param("sessionId")

	order, err := h.Store.FindBySessionID(c.Request.Context(), sessionID)
	if errors.Is(err, orders.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListOrders liste les commandes par statut (par défaut les échecs fulfillment,
// le cas qui demande une intervention)
func (h *Handler) ListOrders(c *gin.Context) {
	status := c.DefaultQuery("status", models.OrderFulfillmentFailed)

	validStatuses := map[string]bool{
		models.OrderPending:              true,
		models.OrderPaid:                 true,
		models.OrderFulfillmentRequested: true,
		models.OrderFulfilled:            true,
		models.OrderFulfillmentFailed:    true,
		models.OrderCanceled:             true,
	}
	if !validStatuses[status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut invalide"})
		return
	}

	result, err := h.Store.ListByStatus(c.Request.Context(), status, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status, "count": len(result), "orders": result})
}

// SearchOrders interroge le miroir Elasticsearch (email, nom, session, statut)
func (h *Handler) SearchOrders(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre q requis"})
		return
	}

	results, err := services.SearchOrders(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Recherche indisponible", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(results), "orders": results})
}
