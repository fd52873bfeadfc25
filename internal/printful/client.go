// Package printful est le client du fournisseur d'impression à la demande.
// Une seule opération d'écriture est consommée : la création de commande.
package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

const DefaultBaseURL = "https://api.printful.com"

// API est la surface consommée par le dispatcher fulfillment
type API interface {
	// CreateOrder crée une commande de production. Un seul aller-retour réseau,
	// aucun retry interne — les retries se font au niveau de la livraison
	// d'événements. Retourne aussi le corps brut de la réponse pour audit.
	CreateOrder(ctx context.Context, storeID int64, req *OrderRequest) (*OrderResult, []byte, error)

	// ListStores liste les boutiques accessibles avec le token (résolution du
	// store par défaut)
	ListStores(ctx context.Context) ([]StoreInfo, error)
}

// Client implémente API contre l'API REST v1 de Printful
type Client struct {
	BaseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		token:      token,
		httpClient: http.DefaultClient,
	}
}

// OrderRequest est le payload de création de commande
type OrderRequest struct {
	ExternalID string      `json:"external_id"`
	Shipping   string      `json:"shipping,omitempty"`
	Recipient  Recipient   `json:"recipient"`
	Items      []OrderItem `json:"items"`
}

// Recipient est l'adresse de destination au format Printful.
// Seul country_code est obligatoire côté flux ; tout le reste est omittable.
type Recipient struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address1    string `json:"address1,omitempty"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city,omitempty"`
	StateCode   string `json:"state_code,omitempty"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip,omitempty"`
}

type OrderItem struct {
	ProductID int64  `json:"product_id,omitempty"`
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name,omitempty"`
}

// OrderResult est la partie utile de la réponse de création
type OrderResult struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

type StoreInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// APIError porte le détail d'une erreur renvoyée par Printful, corps brut inclus
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
	Raw        []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("printful: %s (%s, HTTP %d)", e.Message, e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("printful: HTTP %d", e.StatusCode)
}

// envelope est l'enveloppe commune des réponses Printful v1
type envelope struct {
	Code   int             `json:"code"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) CreateOrder(ctx context.Context, storeID int64, order *OrderRequest) (*OrderResult, []byte, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if storeID > 0 {
		req.Header.Set("X-PF-Store-Id", strconv.FormatInt(storeID, 10))
	}

	raw, err := c.do(req)
	if err != nil {
		return nil, raw, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, raw, fmt.Errorf("printful: réponse illisible: %w", err)
	}

	var result OrderResult
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return nil, raw, fmt.Errorf("printful: result illisible: %w", err)
	}

	return &result, raw, nil
}

func (c *Client) ListStores(ctx context.Context) ([]StoreInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/stores", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("printful: réponse illisible: %w", err)
	}

	var stores []StoreInfo
	if err := json.Unmarshal(env.Result, &stores); err != nil {
		return nil, fmt.Errorf("printful: result illisible: %w", err)
	}

	return stores, nil
}

// do exécute la requête et traduit les statuts non-2xx en *APIError
func (c *Client) do(req *http.Request) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{StatusCode: res.StatusCode, Raw: raw}

		var env envelope
		if json.Unmarshal(raw, &env) == nil {
			if env.Error != nil {
				apiErr.Reason = env.Error.Reason
				apiErr.Message = env.Error.Message
			}
			if apiErr.Message == "" {
				// Certaines erreurs portent le message directement dans result
				var msg string
				if json.Unmarshal(env.Result, &msg) == nil {
					apiErr.Message = msg
				}
			}
		}

		return raw, apiErr
	}

	return raw, nil
}
