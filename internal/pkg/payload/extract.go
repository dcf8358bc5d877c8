// Package payload extracts common fields from provider webhook
// payloads. Providers disagree on key names and nesting, so every
// extractor walks an ordered list of candidate paths and returns the
// first scalar hit. The candidate order is a compatibility contract;
// append new paths, never reorder existing ones.
package payload

import (
	"encoding/json"
	"strconv"
	"strings"
)

// getByPath walks nested maps by key. Returns nil when any hop is
// missing or the node under a non-final key is not a map.
func getByPath(payload map[string]any, path []string) any {
	var node any = payload
	for _, key := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = m[key]
		if node == nil {
			return nil
		}
	}
	return node
}

// coerceScalar renders a scalar leaf as a string. Containers (maps,
// slices) yield ok=false so a nested object never shadows a deeper
// scalar candidate, e.g. ["event"] must not hide ["event","id"].
func coerceScalar(val any) (string, bool) {
	switch v := val.(type) {
	case string:
		return strings.TrimSpace(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

// firstScalar returns the first non-empty scalar found along the
// candidate paths, or "".
func firstScalar(payload map[string]any, paths [][]string) string {
	for _, path := range paths {
		val := getByPath(payload, path)
		if val == nil {
			continue
		}
		s, ok := coerceScalar(val)
		if !ok || s == "" {
			continue
		}
		return s
	}
	return ""
}

// firstNumeric returns the first numeric value found along the
// candidate paths. Numeric strings are parsed; anything else is
// skipped.
func firstNumeric(payload map[string]any, paths [][]string) (float64, bool) {
	for _, path := range paths {
		val := getByPath(payload, path)
		if val == nil {
			continue
		}
		switch v := val.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

var requestRefPaths = [][]string{
	{"request_ref"},
	{"requestRef"},
	{"request_reference"},
	{"requestReference"},
	{"ref"},
	{"transaction", "request_ref"},
	{"transaction", "requestRef"},
	{"transaction", "reference"},
	{"data", "request_ref"},
	{"data", "requestRef"},
	{"data", "reference"},
	{"meta", "request_ref"},
	{"meta", "requestRef"},
	{"event", "request_ref"},
	{"event", "requestRef"},
	{"payload", "request_ref"},
	{"payload", "requestRef"},
}

// ExtractRequestRef returns our transaction reference from a webhook
// payload, or "" when absent.
func ExtractRequestRef(payload map[string]any) string {
	return firstScalar(payload, requestRefPaths)
}

var providerRefPaths = [][]string{
	{"provider_ref"},
	{"providerRef"},
	{"transaction_ref"},
	{"transactionRef"},
	{"txRef"},
	{"tx_ref"},
	{"reference"},
	{"ref"},
	{"flutterwave_ref"},
	{"flutterwaveRef"},
	{"paystack_ref"},
	{"paystackRef"},
	{"monnify_ref"},
	{"monnifyRef"},
	{"transaction", "reference"},
	{"transaction", "ref"},
	{"transaction", "transaction_ref"},
	{"transaction", "transactionRef"},
	{"data", "reference"},
	{"data", "transaction_ref"},
	{"data", "transactionRef"},
	{"data", "txRef"},
	{"meta", "provider_ref"},
	{"meta", "providerRef"},
	{"event", "reference"},
}

// ExtractProviderRef returns the provider-side transaction reference,
// or "" when absent.
func ExtractProviderRef(payload map[string]any) string {
	return firstScalar(payload, providerRefPaths)
}

var statusPaths = [][]string{
	{"status"},
	{"transaction_status"},
	{"transactionStatus"},
	{"payment_status"},
	{"paymentStatus"},
	{"state"},
	{"transaction", "status"},
	{"transaction", "state"},
	{"data", "status"},
	{"data", "transaction_status"},
	{"data", "transactionStatus"},
	{"event", "status"},
	{"event", "state"},
	{"meta", "status"},
	{"response", "status"},
}

// ExtractStatus returns the raw provider status string, or "" when
// absent. Callers normalize it; nothing here interprets the value.
func ExtractStatus(payload map[string]any) string {
	return firstScalar(payload, statusPaths)
}

var amountPaths = [][]string{
	{"amount"},
	{"value"},
	{"total"},
	{"total_amount"},
	{"totalAmount"},
	{"transaction_amount"},
	{"transactionAmount"},
	{"payable_amount"},
	{"payableAmount"},
	{"transaction", "amount"},
	{"transaction", "value"},
	{"transaction", "total"},
	{"data", "amount"},
	{"data", "value"},
	{"data", "total"},
	{"data", "transaction_amount"},
	{"meta", "amount"},
	{"meta", "value"},
	{"body", "amount"},
	{"body", "value"},
}

// ExtractAmount returns the transaction amount when present and
// numeric.
func ExtractAmount(payload map[string]any) (float64, bool) {
	return firstNumeric(payload, amountPaths)
}

var currencyPaths = [][]string{
	{"currency"},
	{"currency_code"},
	{"currencyCode"},
	{"currency_type"},
	{"currencyType"},
	{"curr"},
	{"transaction", "currency"},
	{"transaction", "currency_code"},
	{"data", "currency"},
	{"data", "currency_code"},
	{"data", "currencyCode"},
	{"meta", "currency"},
	{"body", "currency"},
}

// ExtractCurrency returns the currency code as sent by the provider,
// or "" when absent. No case normalization is applied here.
func ExtractCurrency(payload map[string]any) string {
	return firstScalar(payload, currencyPaths)
}

var eventIDPaths = [][]string{
	{"event_id"},
	{"eventId"},
	{"event"},
	{"id"},
	{"webhook_id"},
	{"webhookId"},
	{"event_key"},
	{"eventKey"},
	{"flutterwave_event_id"},
	{"flutterwaveEventId"},
	{"paystack_reference"},
	{"monnify_transaction_ref"},
	{"event", "id"},
	{"event", "event_id"},
	{"data", "event_id"},
	{"data", "eventId"},
	{"data", "id"},
	{"meta", "event_id"},
	{"meta", "eventId"},
	{"payload", "event_id"},
	{"payload", "id"},
}

// ExtractEventID returns the provider's delivery identifier used for
// webhook deduplication, or "" when the payload carries none.
func ExtractEventID(payload map[string]any) string {
	return firstScalar(payload, eventIDPaths)
}
