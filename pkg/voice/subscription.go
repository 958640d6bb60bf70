package voice

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

const subscriptionTimeout = 5 * time.Second

// Subscription is the result of the account check done when the ElevenLabs backend
// initializes. It is one of SubscriptionKnown, SubscriptionUnknown or
// SubscriptionUnauthorized.
type Subscription interface {
	isSubscription()
}

type SubscriptionKnown struct {
	Tier           string
	Status         string
	CharacterCount int
	CharacterLimit int
}

func (SubscriptionKnown) isSubscription() {}

func (s SubscriptionKnown) Remaining() int {
	return s.CharacterLimit - s.CharacterCount
}

// SubscriptionUnknown means the check itself failed; the key may still be valid.
type SubscriptionUnknown struct {
	Err error
}

func (SubscriptionUnknown) isSubscription() {}

type SubscriptionUnauthorized struct {
	StatusCode int
}

func (SubscriptionUnauthorized) isSubscription() {}

type subscriptionResponse struct {
	Tier           string `json:"tier"`
	Status         string `json:"status"`
	CharacterCount int    `json:"character_count"`
	CharacterLimit int    `json:"character_limit"`
}

func (e *ElevenLabs) checkSubscription(ctx context.Context) Subscription {
	ctx, cancel := context.WithTimeout(ctx, subscriptionTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/user/subscription", nil)
	if err != nil {
		return SubscriptionUnknown{Err: errors.Wrap(err, "could not build subscription request")}
	}
	req.Header.Set("xi-api-key", e.desc.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return SubscriptionUnknown{Err: errors.Wrap(err, "subscription request failed")}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return SubscriptionUnauthorized{StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return SubscriptionUnknown{Err: errors.Errorf("subscription request returned %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SubscriptionUnknown{Err: errors.Wrap(err, "could not read subscription")}
	}
	var s subscriptionResponse
	if err := sonic.Unmarshal(body, &s); err != nil {
		return SubscriptionUnknown{Err: errors.Wrap(err, "could not decode subscription")}
	}

	return SubscriptionKnown{
		Tier:           s.Tier,
		Status:         s.Status,
		CharacterCount: s.CharacterCount,
		CharacterLimit: s.CharacterLimit,
	}
}
