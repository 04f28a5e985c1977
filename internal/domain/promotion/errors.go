package promotion

import "errors"

var (
	ErrPromotionNotFound    = errors.New("promotion not found")
	ErrPromotionExpired     = errors.New("promotion expired")
	ErrPromotionExhausted   = errors.New("promotion usage limit reached")
	ErrPromotionNotEligible = errors.New("promotion not eligible for this purchase")
)
