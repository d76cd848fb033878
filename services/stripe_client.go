package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
)

// PaymentIntent is the part of a provider intent the workflow hands back.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

// PaymentIntentCreator creates card payment intents at the provider.
type PaymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string) (*PaymentIntent, error)
}

// StripeService talks to the Stripe API with its own client, so the secret key
// never lives in package state. Network retries are disabled.
type StripeService struct {
	api *client.API
}

// NewStripeService builds a client for secretKey. apiURL overrides the Stripe
// API base URL (stripe-mock, tests); empty means api.stripe.com.
func NewStripeService(secretKey, apiURL string) *StripeService {
	backendConfig := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if apiURL != "" {
		backendConfig.URL = stripe.String(apiURL)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	}
	return &StripeService{api: client.New(secretKey, backends)}
}

// CreatePaymentIntent creates an intent for amount minor units, restricted to cards.
func (s *StripeService) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}
