package database

import (
	"context"
	"crypto/x509"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
)

// --- Configuration ScyllaDB ---
type ScyllaConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	SSLEnabled  bool
	CACertPath  string
	Timeout     time.Duration
	NumConns    int
	Consistency gocql.Consistency
}

// --- Variables Globales ---
var (
	scyllaSession *gocql.Session
	scyllaConfig  ScyllaConfig
	scyllaMu      sync.Mutex

	Redis   *redis.Client
	Elastic *elasticsearch.Client
)

// --- Initialisation ---
func ConnectDatabases() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Initialiser ScyllaDB (keyspace orders)
	if err := InitScyllaDB(); err != nil {
		log.Fatalf("❌ Échec initialisation ScyllaDB: %v", err)
	}

	// 2. Initialiser Redis
	connectRedis(ctx)

	// 3. Initialiser Elasticsearch
	connectElastic()

	log.Println("✅ Toutes les bases de données sont connectées")
}

// =============================================
// SCYLLA DB (Keyspace orders avec SSL & Rôle dédié)
// =============================================

// InitScyllaDB charge la configuration et ouvre la session du keyspace orders
func InitScyllaDB() error {
	scyllaConfig = loadScyllaConfig()
	if scyllaConfig.Keyspace == "" {
		return fmt.Errorf("SCYLLA_KS_ORDERS_KEYSPACE non configuré")
	}

	if _, err := GetOrdersSession(); err != nil {
		return fmt.Errorf("échec initialisation keyspace %s: %v", scyllaConfig.Keyspace, err)
	}

	// Note: La table orders doit être créée manuellement via scripts/scylladb_init.cql
	// L'initialisation automatique est désactivée pour éviter les problèmes de permissions

	return nil
}

// loadScyllaConfig charge la configuration depuis .env
func loadScyllaConfig() ScyllaConfig {
	return ScyllaConfig{
		Hosts:       strings.Split(os.Getenv("SCYLLA_HOSTS"), ","),
		Keyspace:    os.Getenv("SCYLLA_KS_ORDERS_KEYSPACE"),
		Username:    os.Getenv("SCYLLA_KS_ORDERS_ROLE"),
		Password:    os.Getenv("SCYLLA_KS_ORDERS_PASSWORD"),
		SSLEnabled:  strings.ToLower(os.Getenv("SCYLLA_SSL_ENABLED")) == "true",
		CACertPath:  os.Getenv("SCYLLA_SSL_CA_PATH"),
		Timeout:     5 * time.Second,
		NumConns:    20,
		Consistency: gocql.Quorum,
	}
}

// createScyllaCluster crée la configuration de cluster pour le keyspace orders
func createScyllaCluster(config ScyllaConfig) (*gocql.ClusterConfig, error) {
	cluster := gocql.NewCluster(config.Hosts...)
	cluster.Keyspace = config.Keyspace
	cluster.Consistency = config.Consistency
	cluster.Timeout = config.Timeout
	cluster.NumConns = config.NumConns

	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = 1 * time.Second
	cluster.Authenticator = gocql.PasswordAuthenticator{
		Username: config.Username,
		Password: config.Password,
	}

	// Configuration SSL si activé
	if config.SSLEnabled && config.CACertPath != "" {
		caCert, err := os.ReadFile(config.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("impossible de lire le certificat CA: %v", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("impossible de parser le certificat CA")
		}
	}

	// Politique de sélection d'hôtes optimisée
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	return cluster, nil
}

// GetOrdersSession retourne la session du keyspace orders, en la recréant si invalide
func GetOrdersSession() (*gocql.Session, error) {
	scyllaMu.Lock()
	defer scyllaMu.Unlock()

	// Si la session existe déjà, la retourner
	if scyllaSession != nil {
		if err := scyllaSession.Query("SELECT now() FROM system.local").Exec(); err == nil {
			return scyllaSession, nil
		}
		// Si la session est invalide, la recréer
		scyllaSession.Close()
		scyllaSession = nil
	}

	cluster, err := createScyllaCluster(scyllaConfig)
	if err != nil {
		return nil, fmt.Errorf("erreur configuration cluster pour %s: %v", scyllaConfig.Keyspace, err)
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %v", scyllaConfig.Keyspace, err)
	}

	scyllaSession = session
	log.Printf("✅ Nouvelle session ScyllaDB pour keyspace '%s' (utilisateur: %s)",
		scyllaConfig.Keyspace, scyllaConfig.Username)

	return session, nil
}

// CloseScylla ferme la session ScyllaDB
func CloseScylla() {
	scyllaMu.Lock()
	defer scyllaMu.Unlock()

	if scyllaSession != nil {
		scyllaSession.Close()
		scyllaSession = nil
		log.Printf("🔌 Session ScyllaDB fermée pour keyspace '%s'", scyllaConfig.Keyspace)
	}
}

// =============================================
// REDIS
// =============================================
func connectRedis(ctx context.Context) {
	Redis = redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_HOST"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	if err := Redis.Ping(ctx).Err(); err != nil {
		log.Fatal("❌ Erreur connexion Redis:", err)
	}
	log.Println("✅ Connecté à Redis")
}

// =============================================
// ELASTICSEARCH
// =============================================
func connectElastic() {
	cfg := elasticsearch.Config{
		Addresses: []string{os.Getenv("ELASTIC_URL")},
		Username:  os.Getenv("ELASTIC_USER"),
		Password:  os.Getenv("ELASTIC_PASSWORD"),
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		log.Fatal("❌ Erreur création client Elasticsearch:", err)
	}

	res, err := client.Info()
	if err != nil {
		log.Fatal("❌ Erreur connexion Elasticsearch:", err)
	}
	defer res.Body.Close()

	Elastic = client
	log.Println("✅ Connecté à Elasticsearch")
}
