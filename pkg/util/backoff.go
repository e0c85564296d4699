package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/spf13/viper"
)

const (
	paramRetryInterval = "retry-interval"  // constant
	paramRetryMaxCount = "retry-max-count" // constant + exponential
	paramRetryMaxTime  = "retry-max-time"  // constant + exponential
	paramRetryPolicy   = "retry-policy"

	defaultRetryInterval = 1 * time.Second // constant
	defaultRetryMaxCount = 0               // constant + exponential
	defaultRetryMaxTime  = 5 * time.Second // constant + exponential
	defaultRetryPolicy   = PolicyDisabled

	// PolicyConstant retries at a fixed (randomized) interval.
	PolicyConstant = "constant"
	// PolicyDisabled never retries: a failed delivery is abandoned.
	PolicyDisabled = "disabled"
	// PolicyExponential retries with an exponentially growing interval.
	PolicyExponential = "exponential"
)

// BackoffFactory creates a fresh backoff.BackOff for every delivery attempt.
type BackoffFactory func() backoff.BackOff

// RetryOptions describes a retry policy.
type RetryOptions struct {
	Policy   string
	Interval time.Duration // constant policy only
	MaxCount uint64        // 0 means unlimited
	MaxTime  time.Duration
	// Clock, if set, is used to measure the elapsed time of the policy.
	Clock backoff.Clock
}

// DisabledRetries is a factory that never retries.
func DisabledRetries() backoff.BackOff {
	return &backoff.StopBackOff{}
}

// NewBackoffFactory creates a new BackoffFactory based on a backoff.ExponentialBackoff
//
// backoff.ConstantBackoff lacks randomization of the interval and a maximum duration, so the
// constant policy is an backoff.ExponentialBackOff with a Multiplier of 1.0.
func NewBackoffFactory(multiplier float64, maxElapsedTime, interval time.Duration, maxRetries uint64, clk backoff.Clock) BackoffFactory {
	return func() backoff.BackOff {
		bo := backoff.NewExponentialBackOff()
		bo.Multiplier = multiplier
		bo.MaxElapsedTime = maxElapsedTime
		bo.InitialInterval = interval
		if clk != nil {
			bo.Clock = clk
		}
		bo.Reset() // Reset is required to make the InitialInterval and Clock changes take effect.
		if maxRetries == 0 {
			return bo
		}
		return backoff.WithMaxRetries(bo, maxRetries)
	}
}

// Factory validates the options and builds the matching BackoffFactory.
func (o RetryOptions) Factory() (BackoffFactory, error) {
	if o.Interval <= 0 {
		return nil, errors.New(paramRetryInterval + " must be positive")
	}
	if o.MaxTime <= 0 {
		return nil, errors.New(paramRetryMaxTime + " must be positive")
	}
	switch o.Policy {
	case PolicyDisabled:
		return DisabledRetries, nil
	case PolicyExponential:
		return NewBackoffFactory(backoff.DefaultMultiplier, o.MaxTime, backoff.DefaultInitialInterval, o.MaxCount, o.Clock), nil
	case PolicyConstant:
		return NewBackoffFactory(1.0, o.MaxTime, o.Interval, o.MaxCount, o.Clock), nil
	default:
		return nil, fmt.Errorf("%s (%s) not one of %s, %s, or %s", paramRetryPolicy, o.Policy, PolicyDisabled, PolicyConstant, PolicyExponential)
	}
}

// GetRetryOptionsFromViper reads the retry policy settings, applying defaults.  Retries are
// disabled unless configured, so that a line is delivered at most once.
func GetRetryOptionsFromViper(v *viper.Viper) (RetryOptions, error) {
	v.SetDefault(paramRetryInterval, defaultRetryInterval)
	v.SetDefault(paramRetryMaxCount, defaultRetryMaxCount)
	v.SetDefault(paramRetryMaxTime, defaultRetryMaxTime)
	v.SetDefault(paramRetryPolicy, defaultRetryPolicy)

	retryMaxCount := v.GetInt64(paramRetryMaxCount)
	if retryMaxCount < 0 {
		return RetryOptions{}, errors.New(paramRetryMaxCount + " must be zero or positive")
	}
	return RetryOptions{
		Policy:   v.GetString(paramRetryPolicy),
		Interval: v.GetDuration(paramRetryInterval),
		MaxCount: uint64(retryMaxCount),
		MaxTime:  v.GetDuration(paramRetryMaxTime),
	}, nil
}

// GetRetryFromViper builds a BackoffFactory from the retry policy settings.
func GetRetryFromViper(v *viper.Viper) (BackoffFactory, error) {
	opts, err := GetRetryOptionsFromViper(v)
	if err != nil {
		return nil, err
	}
	return opts.Factory()
}
