package utils

import (
	"fmt"
	"strings"

	"blackfall_back_end/internal/models"
)

// BuildOrderNotification construit l'email interne "nouvelle commande" :
// sujet, corps texte et corps HTML
func BuildOrderNotification(order *models.Order) (subject, textBody, htmlBody string) {
	subject = getNotificationSubject(order)
	textBody = buildNotificationText(order)
	htmlBody = buildNotificationHTML(order)
	return subject, textBody, htmlBody
}

func getNotificationSubject(order *models.Order) string {
	ref := order.OrderID
	if len(ref) >= 8 {
		ref = ref[:8]
	}

	switch order.Status {
	case models.OrderFulfillmentFailed:
		return fmt.Sprintf("❌ Échec fulfillment Printful — commande %s à vérifier", ref)
	case models.OrderFulfillmentRequested:
		return fmt.Sprintf("📦 Nouvelle commande %s envoyée chez Printful", ref)
	default:
		return fmt.Sprintf("🤘 Nouvelle commande %s payée — Blackfall Records", ref)
	}
}

func buildNotificationText(order *models.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Nouvelle commande merch Blackfall Records\n\n")
	fmt.Fprintf(&b, "Commande:  %s\n", order.OrderID)
	fmt.Fprintf(&b, "Session:   %s\n", order.SessionID)
	fmt.Fprintf(&b, "Statut:    %s\n", order.Status)
	fmt.Fprintf(&b, "Montant:   %s\n", FormatAmount(order.AmountTotal, order.Currency))

	if order.CustomerName != "" || order.CustomerEmail != "" {
		fmt.Fprintf(&b, "Client:    %s <%s>\n", order.CustomerName, order.CustomerEmail)
	}

	if order.PrintfulOrderID != 0 {
		fmt.Fprintf(&b, "Printful:  #%d\n", order.PrintfulOrderID)
	}

	if order.Status == models.OrderFulfillmentFailed {
		fmt.Fprintf(&b, "\n⚠️ La création de la commande Printful a échoué — intervention manuelle requise.\n")
		fmt.Fprintf(&b, "Détail enregistré sur la commande (champ printful_response).\n")
	}

	return b.String()
}

func buildNotificationHTML(order *models.Order) string {
	statusColor := getStatusColor(order.Status)

	printfulRow := ""
	if order.PrintfulOrderID != 0 {
		printfulRow = fmt.Sprintf(`
				<tr>
					<td style="padding: 8px 0; color: #666666;"><strong>Printful:</strong></td>
					<td style="padding: 8px 0; text-align: right;">#%d</td>
				</tr>`, order.PrintfulOrderID)
	}

	warning := ""
	if order.Status == models.OrderFulfillmentFailed {
		warning = `
			<p style="color: #991b1b; background-color: #fef2f2; border-left: 4px solid #ef4444; padding: 12px;">
				⚠️ La création de la commande Printful a échoué — intervention manuelle requise.
			</p>`
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<title>Nouvelle commande</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Nouvelle commande Blackfall Records</h2>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<tr>
				<td style="padding: 8px 0; color: #666666;"><strong>Commande:</strong></td>
				<td style="padding: 8px 0; text-align: right;">%s</td>
			</tr>
			<tr>
				<td style="padding: 8px 0; color: #666666;"><strong>Session Stripe:</strong></td>
				<td style="padding: 8px 0; text-align: right;">%s</td>
			</tr>
			<tr>
				<td style="padding: 8px 0; color: #666666;"><strong>Statut:</strong></td>
				<td style="padding: 8px 0; text-align: right; color: %s; font-weight: 600;">%s</td>
			</tr>
			<tr>
				<td style="padding: 8px 0; color: #666666;"><strong>Montant:</strong></td>
				<td style="padding: 8px 0; text-align: right; font-weight: 600;">%s</td>
			</tr>
			<tr>
				<td style="padding: 8px 0; color: #666666;"><strong>Client:</strong></td>
				<td style="padding: 8px 0; text-align: right;">%s &lt;%s&gt;</td>
			</tr>%s
		</table>
		%s
		<p style="margin-top: 30px; color: #555;">
			— Back-office Blackfall Records
		</p>
	</div>
</body>
</html>`,
		order.OrderID, order.SessionID, statusColor, order.Status,
		FormatAmount(order.AmountTotal, order.Currency),
		order.CustomerName, order.CustomerEmail, printfulRow, warning)
}

func getStatusColor(status string) string {
	switch status {
	case models.OrderPaid:
		return "#10b981" // Green
	case models.OrderFulfillmentRequested, models.OrderFulfilled:
		return "#3b82f6" // Blue
	case models.OrderFulfillmentFailed:
		return "#ef4444" // Red
	case models.OrderCanceled:
		return "#6b7280" // Gray
	default:
		return "#f59e0b" // Orange
	}
}

// FormatAmount affiche un montant en centimes sous forme lisible ("25.99 USD")
func FormatAmount(minorUnits int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(minorUnits)/100, strings.ToUpper(currency))
}
