package enrollment

import "errors"

var (
	ErrEmptyClassList      = errors.New("class list is empty")
	ErrMissingPaymentNonce = errors.New("payment method nonce required when money is due")
	ErrPaymentFailed       = errors.New("payment failed")
	ErrNotTrialCourse      = errors.New("class does not belong to a trial course")
	ErrAlreadyEnrolled     = errors.New("student is already enrolled in this class")
)
