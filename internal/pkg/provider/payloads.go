package provider

import "github.com/korefinance/kore/internal/pkg/env"

// The Build*Payload helpers cover the provider's full transact
// surface. Goal collections only use the invoice flow today; the
// disburse, subscription and instalment builders back the payout and
// scheduled-contribution flows.

// resolveMockMode prefers the explicit value over the configured
// default.
func resolveMockMode(mockMode string) string {
	if mockMode != "" {
		return mockMode
	}
	return env.GetEnv("PWA_MOCK_MODE", "inspect")
}

// BuildInvoicePayload builds a transact payload for the invoice
// (payment collection) flow.
func BuildInvoicePayload(amountTotal float64, customerEmail, customerName string, meta map[string]any, currency, narrative, mockMode string) map[string]any {
	if meta == nil {
		meta = map[string]any{}
	}
	if currency == "" {
		currency = "NGN"
	}
	return map[string]any{
		"transaction": map[string]any{
			"type":         "debit",
			"amount":       amountTotal,
			"currency":     currency,
			"request_type": env.GetEnv("PWA_REQUEST_TYPE_INVOICE", "invoice"),
			"mock_mode":    resolveMockMode(mockMode),
			"narrative":    narrative,
			"customer": map[string]any{
				"email": customerEmail,
				"name":  customerName,
			},
			"meta": meta,
		},
	}
}

// BuildDisbursePayload builds a transact payload for the disbursement
// (payout) flow.
func BuildDisbursePayload(amount float64, beneficiaryAccount, beneficiaryBankCode string, meta map[string]any, currency, narrative, mockMode string) map[string]any {
	if meta == nil {
		meta = map[string]any{}
	}
	if currency == "" {
		currency = "NGN"
	}
	return map[string]any{
		"transaction": map[string]any{
			"type":         "credit",
			"amount":       amount,
			"currency":     currency,
			"request_type": env.GetEnv("PWA_REQUEST_TYPE_DISBURSE", "disburse"),
			"mock_mode":    resolveMockMode(mockMode),
			"narrative":    narrative,
			"beneficiary": map[string]any{
				"account_number": beneficiaryAccount,
				"bank_code":      beneficiaryBankCode,
			},
			"meta": meta,
		},
	}
}

// BuildSubscriptionPayload builds a transact payload for recurring
// charges. schedule carries the provider's frequency/interval/duration
// fields.
func BuildSubscriptionPayload(amountTotal float64, schedule, meta map[string]any, currency, mockMode string) map[string]any {
	if schedule == nil {
		schedule = map[string]any{}
	}
	if meta == nil {
		meta = map[string]any{}
	}
	if currency == "" {
		currency = "NGN"
	}
	return map[string]any{
		"transaction": map[string]any{
			"type":         "debit",
			"amount":       amountTotal,
			"currency":     currency,
			"request_type": env.GetEnv("PWA_REQUEST_TYPE_SUBSCRIPTION", "subscription"),
			"mock_mode":    resolveMockMode(mockMode),
			"schedule":     schedule,
			"meta":         meta,
		},
	}
}

// BuildInstalmentPayload builds a transact payload for split payments:
// a down payment now, the rest charged per schedule.
func BuildInstalmentPayload(amountTotal, downPayment float64, schedule, meta map[string]any, currency, mockMode string) map[string]any {
	if schedule == nil {
		schedule = map[string]any{}
	}
	if meta == nil {
		meta = map[string]any{}
	}
	if currency == "" {
		currency = "NGN"
	}
	return map[string]any{
		"transaction": map[string]any{
			"type":         "debit",
			"amount":       amountTotal,
			"currency":     currency,
			"request_type": env.GetEnv("PWA_REQUEST_TYPE_INSTALMENT", "instalment"),
			"mock_mode":    resolveMockMode(mockMode),
			"down_payment": downPayment,
			"schedule":     schedule,
			"meta":         meta,
		},
	}
}
