package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/freshcatch/api/internal/domain"
	"github.com/freshcatch/api/internal/platform/observability"
	"github.com/freshcatch/api/internal/repositories"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input parameters.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
	// ErrCheckoutEmptyCart indicates the cart has no priceable lines.
	ErrCheckoutEmptyCart = errors.New("checkout: empty cart")
	// ErrCheckoutBelowMinimum indicates the order is under the wholesale minimum and the bronze override is absent.
	ErrCheckoutBelowMinimum = errors.New("checkout: below minimum order weight")
	// ErrCheckoutConflict indicates a concurrent modification prevented completing checkout.
	ErrCheckoutConflict = errors.New("checkout: conflict")
)

// linkValidator narrows OrderLinkService to what checkout needs.
type linkValidator interface {
	Validate(ctx context.Context, token string) (LinkSession, error)
	MarkUsed(ctx context.Context, token string) (OrderLink, error)
}

// cartQuoter narrows CartService to the quote and clear operations.
type cartQuoter interface {
	Quote(ctx context.Context, session LinkSession) (CartQuote, error)
	ClearCart(ctx context.Context, session LinkSession) error
}

// orderNumberSource narrows CounterService to order numbering.
type orderNumberSource interface {
	NextOrderNumber(ctx context.Context) (string, error)
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Links       linkValidator
	Carts       cartQuoter
	Orders      repositories.OrderRepository
	Numbers     orderNumberSource
	Publisher   NotificationPublisher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	links     linkValidator
	carts     cartQuoter
	orders    repositories.OrderRepository
	numbers   orderNumberSource
	publisher NotificationPublisher
	now       func() time.Time
	newID     func() string
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Links == nil {
		return nil, errors.New("checkout service: order link service is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart service is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Numbers == nil {
		return nil, errors.New("checkout service: counter service is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &checkoutService{
		links:     deps.Links,
		carts:     deps.Carts,
		orders:    deps.Orders,
		numbers:   deps.Numbers,
		publisher: deps.Publisher,
		now:       func() time.Time { return clock().UTC() },
		newID:     idGen,
		logger:    logger,
	}, nil
}

// Quote validates the token and recomputes the summary server side so the
// checkout surface never trusts a client-computed total.
func (s *checkoutService) Quote(ctx context.Context, token string) (CheckoutQuote, error) {
	session, err := s.links.Validate(ctx, token)
	if err != nil {
		return CheckoutQuote{}, err
	}

	quote, err := s.carts.Quote(ctx, session)
	if err != nil {
		return CheckoutQuote{}, ErrCheckoutUnavailable
	}

	return CheckoutQuote{
		Session:          session,
		Summary:          quote.Summary,
		CheckoutEligible: quote.CheckoutEligible,
		MinOrderWeightKg: quote.MinOrderWeightKg,
	}, nil
}

// Submit turns an eligible cart into a persisted order: validate the link,
// reprice, gate on the minimum weight, assign a number, persist, burn the
// link, and hand the order to the notification pipeline.
func (s *checkoutService) Submit(ctx context.Context, cmd SubmitOrderCommand) (Order, error) {
	contactName := strings.TrimSpace(cmd.Contact.Name)
	contactPhone := strings.TrimSpace(cmd.Contact.Phone)
	if contactName == "" {
		return Order{}, fmt.Errorf("%w: contact name is required", ErrCheckoutInvalidInput)
	}
	if contactPhone == "" {
		return Order{}, fmt.Errorf("%w: contact phone is required", ErrCheckoutInvalidInput)
	}

	session, err := s.links.Validate(ctx, cmd.Token)
	if err != nil {
		return Order{}, err
	}

	quote, err := s.carts.Quote(ctx, session)
	if err != nil {
		return Order{}, ErrCheckoutUnavailable
	}
	if len(quote.Summary.Items) == 0 {
		return Order{}, ErrCheckoutEmptyCart
	}
	if !quote.CheckoutEligible {
		return Order{}, fmt.Errorf("%w: %.1fkg more needed", ErrCheckoutBelowMinimum, quote.MinOrderWeightKg-quote.Summary.TotalWeight)
	}

	number, err := s.numbers.NextOrderNumber(ctx)
	if err != nil {
		return Order{}, ErrCheckoutUnavailable
	}

	now := s.now()
	order := domain.Order{
		ID:         strings.TrimSpace(s.newID()),
		Number:     number,
		CustomerID: session.CustomerID,
		LinkToken:  session.Token,
		Status:     domain.OrderStatusPending,
		Contact: domain.OrderContact{
			Name:  contactName,
			Phone: contactPhone,
			Place: strings.TrimSpace(cmd.Contact.Place),
			Notes: strings.TrimSpace(cmd.Contact.Notes),
		},
		Summary:     quote.Summary,
		SubmittedAt: now,
		UpdatedAt:   now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return Order{}, s.translateRepoError(err)
	}

	if _, err := s.links.MarkUsed(ctx, session.Token); err != nil {
		// The order is already persisted; an unburned link is recoverable by
		// the back office, a lost order is not.
		s.logger(ctx, "checkout.mark_used_failed", map[string]any{
			"orderID": order.ID,
			"token":   observability.RedactToken(session.Token),
			"error":   err.Error(),
		})
	}

	if err := s.carts.ClearCart(ctx, session); err != nil {
		s.logger(ctx, "checkout.clear_cart_failed", map[string]any{
			"orderID": order.ID,
			"error":   err.Error(),
		})
	}

	s.publishSubmitted(ctx, order, contactName, contactPhone)

	return order, nil
}

func (s *checkoutService) publishSubmitted(ctx context.Context, order domain.Order, name, phone string) {
	if s.publisher == nil {
		return
	}
	message := OrderSubmittedMessage{
		OrderID:        order.ID,
		OrderNumber:    order.Number,
		CustomerID:     order.CustomerID,
		CustomerName:   name,
		CustomerPhone:  phone,
		TotalWeightKg:  order.Summary.TotalWeight,
		Subtotal:       order.Summary.Subtotal,
		Tier:           string(order.Summary.Tier),
		SubmittedAt:    order.SubmittedAt.Format(time.RFC3339),
		IdempotencyKey: order.ID,
	}
	if _, err := s.publisher.PublishOrderSubmitted(ctx, message); err != nil {
		s.logger(ctx, "checkout.notification_publish_failed", map[string]any{
			"orderID": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *checkoutService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsConflict() {
			return ErrCheckoutConflict
		}
	}
	return ErrCheckoutUnavailable
}
