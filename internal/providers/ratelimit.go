package providers

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedVision waits on a shared limiter before every call, so all
// concurrent page extractions stay under the provider's request rate.
type RateLimitedVision struct {
	next    VisionProvider
	limiter *rate.Limiter
}

// visionDescriber reports which provider and model serve vision calls.
type visionDescriber interface {
	VisionInfo() ProviderInfo
}

func NewRateLimitedVision(next VisionProvider, limiter *rate.Limiter) *RateLimitedVision {
	return &RateLimitedVision{next: next, limiter: limiter}
}

func (r *RateLimitedVision) ExtractImage(ctx context.Context, req VisionRequest) (VisionResponse, ProviderInfo, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return VisionResponse{}, r.VisionInfo(), fmt.Errorf("vision rate limit wait: %w", err)
	}
	return r.next.ExtractImage(ctx, req)
}

func (r *RateLimitedVision) VisionInfo() ProviderInfo {
	if d, ok := r.next.(visionDescriber); ok {
		return d.VisionInfo()
	}
	return ProviderInfo{}
}
