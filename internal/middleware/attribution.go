package middleware

import (
	"context"
	"net/http"
)

const (
	AttributionSourceKey   contextKey = "attribution_source"
	AttributionCampaignKey contextKey = "attribution_campaign"
)

// Attribution captures marketing attribution headers so handlers can pass
// them along without reaching back into the request.
func Attribution(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if source := r.Header.Get("X-Attribution-Source"); source != "" {
			ctx = context.WithValue(ctx, AttributionSourceKey, source)
		}
		if campaign := r.Header.Get("X-Attribution-Campaign"); campaign != "" {
			ctx = context.WithValue(ctx, AttributionCampaignKey, campaign)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAttributionSource extracts the attribution source from context
func GetAttributionSource(ctx context.Context) string {
	if source, ok := ctx.Value(AttributionSourceKey).(string); ok {
		return source
	}
	return ""
}

// GetAttributionCampaign extracts the attribution campaign from context
func GetAttributionCampaign(ctx context.Context) string {
	if campaign, ok := ctx.Value(AttributionCampaignKey).(string); ok {
		return campaign
	}
	return ""
}
