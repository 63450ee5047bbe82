package database

import "sort"

// DefaultSkip lists bookkeeping tables that never hold application data
var DefaultSkip = []string{"_prisma_migrations"}

// DefaultTableOrder puts parent tables before the tables that reference them.
// Tables not listed are copied afterwards in alphabetical order.
var DefaultTableOrder = []string{
	"Company",
	"Store",
	"SaasModule",
	"SaasPlan",
	"SaasPlanModule",
	"SaasPlanPrice",
	"SaasSubscription",
	"User",
	"Rider",
	"RiderAccount",
	"Menu",
	"MenuCategory",
	"IngredientGroup",
	"Ingredient",
	"OptionGroup",
	"Option",
	"Product",
	"ProductOptionGroup",
	"TechnicalSheet",
	"TechnicalSheetItem",
	"PaymentMethod",
	"Neighborhood",
	"Customer",
	"CustomerAccount",
	"CustomerAddress",
	"CustomerGroup",
	"CustomerGroupRule",
	"CustomerGroupMember",
	"CashbackSetting",
	"CashbackProductRule",
	"CashbackWallet",
	"CashbackTransaction",
	"Affiliate",
	"AffiliateSale",
	"AffiliatePayment",
	"Coupon",
	"Order",
	"OrderItem",
	"OrderStatusHistory",
	"RiderTransaction",
	"PrinterSetting",
	"WhatsAppInstance",
	"ApiIntegration",
	"NfeProtocol",
	"DadosFiscais",
	"EmailVerification",
	"Media",
	"FileSource",
	"MetaPixel",
	"PaymentGatewayConfig",
	"WebhookEvent",
	"FinancialAccount",
	"FinancialTransaction",
	"CostCenter",
	"CashFlowEntry",
	"OfxImport",
	"OfxReconciliationItem",
	"StockMovement",
	"StockMovementItem",
	"CashSession",
	"CashMovement",
	"Ticket",
}

// OrderTables returns the source tables in copy order: the priority tables
// that exist, in priority order, followed by the rest sorted by name.
// Tables in skip are left out entirely.
func OrderTables(source, priority, skip []string) []string {
	skipped := make(map[string]bool, len(skip))
	for _, name := range skip {
		skipped[name] = true
	}

	present := make(map[string]bool, len(source))
	for _, name := range source {
		present[name] = true
	}

	placed := make(map[string]bool, len(source))
	ordered := make([]string, 0, len(source))
	for _, name := range priority {
		if !present[name] || skipped[name] || placed[name] {
			continue
		}
		placed[name] = true
		ordered = append(ordered, name)
	}

	var rest []string
	for name := range present {
		if !placed[name] && !skipped[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)

	return append(ordered, rest...)
}
