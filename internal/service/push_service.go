package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/SherClockHolmes/webpush-go"

	"smart_switch/internal/logger"
	"smart_switch/internal/models"
	"smart_switch/internal/repository"
)

// PushSender sends one web-push message.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

type WebPushSender struct{}

func (WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// PushService stores browser subscriptions and delivers notifications to
// them. Expired subscriptions (410 Gone) are removed.
type PushService struct {
	repo   repository.PushRepo
	cfg    PushConfig
	sender PushSender
	log    *logger.Logger
}

func NewPushService(repo repository.PushRepo, cfg PushConfig, log *logger.Logger) *PushService {
	if log == nil {
		log = logger.Nop()
	}
	return &PushService{repo: repo, cfg: cfg, sender: WebPushSender{}, log: log}
}

func (s *PushService) VAPIDPublicKey() string { return s.cfg.VAPIDPublicKey }

func (s *PushService) SubscribePush(ctx context.Context, sub models.PushSubscription) error {
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	if sub.Endpoint == "" || sub.P256DH == "" || sub.Auth == "" {
		return ErrInvalidSubscription
	}
	return s.repo.Save(ctx, sub)
}

type pushPayload struct {
	Kind      models.NotificationKind `json:"kind"`
	Condition models.AlertCondition   `json:"condition,omitempty"`
	Title     string                  `json:"title"`
	Body      string                  `json:"body"`
}

// Notify sends n to every stored subscription. It is a no-op without VAPID
// keys.
func (s *PushService) Notify(ctx context.Context, n models.Notification) error {
	if s.cfg.VAPIDPrivateKey == "" || s.cfg.VAPIDPublicKey == "" {
		return nil
	}
	subs, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(pushPayload{Kind: n.Kind, Condition: n.Condition, Title: n.Title, Body: n.Body})
	if err != nil {
		return err
	}

	opts := &webpush.Options{
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             s.cfg.TTL,
	}
	var errs []error
	for _, sub := range subs {
		if err := s.send(ctx, sub, payload, opts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *PushService) send(ctx context.Context, sub models.PushSubscription, payload []byte, opts *webpush.Options) error {
	resp, err := s.sender.Send(payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256DH, Auth: sub.Auth},
	}, opts)
	if err != nil {
		return fmt.Errorf("push to %s: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone:
		s.log.Infow("push_subscription_expired", "endpoint", sub.Endpoint)
		return s.repo.Delete(ctx, sub.Endpoint)
	case resp.StatusCode >= 400:
		return fmt.Errorf("push to %s: status %d", sub.Endpoint, resp.StatusCode)
	}
	return nil
}
