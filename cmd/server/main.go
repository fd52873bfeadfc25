package main

import (
	"context"
	"log"
	"os"

	"blackfall_back_end/internal/config"
	"blackfall_back_end/internal/database"
	"blackfall_back_end/internal/handlers/webhook"
	"blackfall_back_end/internal/orders"
	"blackfall_back_end/internal/printful"
	"blackfall_back_end/internal/routes"
	"blackfall_back_end/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
)

func main() {
	config.Load()

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		log.Fatal("❌ Impossible d'initialiser Stripe : clé manquante")
	}
	log.Println("✅ Stripe initialisé")

	database.ConnectDatabases()

	// ✅ Pré-chauffer le cache Redis
	warmupRedisCache()

	handler := webhook.NewHandler(
		orders.NewScyllaStore(),
		initPrintful(),
		initMailer(),
	)

	r := gin.Default()
	r.Use(cors.Default())
	routes.RegisterRoutes(r, handler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("🚀 Serveur Blackfall lancé sur le port", port)
	r.Run(":" + port)
}

func initPrintful() printful.API {
	token := os.Getenv("PRINTFUL_API_KEY")
	if token == "" {
		log.Println("⚠️ PRINTFUL_API_KEY manquant — les dispatchs seront enregistrés en échec")
	} else {
		log.Println("✅ Client Printful initialisé")
	}
	return printful.NewClient(token)
}

// initMailer retourne nil quand la configuration SMTP est incomplète :
// le flux saute alors la notification au lieu d'échouer
func initMailer() webhook.MailSender {
	cfg, ok := utils.LoadSMTPConfig()
	if !ok {
		log.Println("⚠️ Configuration SMTP incomplète — notifications internes désactivées")
		return nil
	}
	log.Println("✅ Transport SMTP initialisé pour", cfg.To)
	return utils.NewSMTPSender(cfg)
}

// warmupRedisCache pré-chauffe le cache Redis pour éviter la latence du premier appel
func warmupRedisCache() {
	ctx := context.Background()
	if err := database.Redis.Ping(ctx).Err(); err == nil {
		log.Println("✅ Cache Redis pré-chauffé")
	}
}
