package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/apperr"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/ports"
)

const validSignature = "t=1,v1=ok"

type fakeGateway struct {
	mu           sync.Mutex
	sessions     []model.CheckoutSessionParams
	intents      []model.PaymentIntentParams
	event        *model.WebhookEvent
	gatewayErr   error
	verifyCalled int
}

func (g *fakeGateway) Name() model.PaymentProvider { return "fake" }

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, p model.CheckoutSessionParams) (*model.CheckoutSessionResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions = append(g.sessions, p)
	if g.gatewayErr != nil {
		return nil, g.gatewayErr
	}
	return &model.CheckoutSessionResponse{ID: "cs_test_1", URL: "https://pay.example.com/cs_test_1"}, nil
}

func (g *fakeGateway) CreatePaymentIntent(ctx context.Context, p model.PaymentIntentParams) (*model.PaymentIntentResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents = append(g.intents, p)
	if g.gatewayErr != nil {
		return nil, g.gatewayErr
	}
	return &model.PaymentIntentResponse{ClientSecret: "pi_1_secret", PaymentIntentID: "pi_1"}, nil
}

func (g *fakeGateway) VerifyWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*model.WebhookEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalled++
	if signatureHeader != validSignature {
		return nil, apperr.Signature("webhook signature verification failed", errors.New("bad signature"))
	}
	ev := *g.event
	ev.RawBody = rawBody
	ev.SignatureHeader = signatureHeader
	return &ev, nil
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []*model.EmailMessage
	err  error
}

func (t *fakeTransport) Send(ctx context.Context, msg *model.EmailMessage) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, msg)
	if t.err != nil {
		return "", t.err
	}
	return "msg-1", nil
}

type fakeDeduper struct {
	mu           sync.Mutex
	claimed      map[string]bool
	released     []string
	err          error
	honorContext bool
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{claimed: map[string]bool{}}
}

func (d *fakeDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if d.claimed[key] {
		return false, nil
	}
	d.claimed[key] = true
	return true, nil
}

func (d *fakeDeduper) Release(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.honorContext && ctx.Err() != nil {
		return ctx.Err()
	}
	delete(d.claimed, key)
	d.released = append(d.released, key)
	return nil
}

type fakeOrders struct {
	mu      sync.Mutex
	updates []ports.OrderPaymentUpdate
	err     error
	// block waits for ctx to end, like a stalled database
	block bool
}

func (o *fakeOrders) UpdatePaymentStatus(ctx context.Context, u ports.OrderPaymentUpdate) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates = append(o.updates, u)
	if o.block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	if o.err != nil {
		return false, o.err
	}
	return true, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []model.PaymentLifecycleEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, event model.PaymentLifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}
