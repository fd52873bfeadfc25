package database

// Colonnes de la table orders, dans l'ordre de scan attendu par le store
const OrderColumns = `session_id, order_id, payment_intent_id, status, currency, amount_total,
	customer_email, customer_name, printful_product_id, printful_variant_id, quantity,
	product_name, printful_store_id, recipient, printful_order_id, printful_response, raw_event,
	notified_at, created_at, updated_at`

// Requêtes fréquentes de la table orders. gocql prépare chaque chaîne une
// seule fois et met le statement en cache côté driver : chaque appel construit
// donc un *gocql.Query neuf sans repayer la préparation. Un query partagé est
// exclu — Query.Bind mute son receveur, et deux requêtes HTTP concurrentes
// exécuteraient le session_id l'une de l'autre.
const (
	SelectOrderBySessionCQL = "SELECT " + OrderColumns + " FROM orders WHERE session_id = ?"

	// Listing par statut via l'index secondaire orders_status_idx
	SelectOrdersByStatusCQL = "SELECT " + OrderColumns + " FROM orders WHERE status = ? LIMIT ?"
)
