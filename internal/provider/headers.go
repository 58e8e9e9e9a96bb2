package provider

import "net/http"

const contentTypeJSON = "application/json"

// JSONHeaders returns the content headers every request carries.
func JSONHeaders() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", contentTypeJSON)
	h.Set("Accept", contentTypeJSON)
	return h
}

// BearerHeaders is the generic header set used by OpenAI-compatible vendors.
func BearerHeaders(apiKey string) http.Header {
	h := JSONHeaders()
	h.Set("Authorization", "Bearer "+apiKey)
	return h
}
