package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/freshcatch/api/internal/domain"
)

type memoryOrderRepository struct {
	orders map[string]domain.Order
}

func newMemoryOrderRepository(orders ...domain.Order) *memoryOrderRepository {
	s := &memoryOrderRepository{orders: make(map[string]domain.Order)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *memoryOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	s.orders[order.ID] = order
	return nil
}

func (s *memoryOrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, &fakeRepoError{notFound: true}
	}
	order.Status = status
	order.UpdatedAt = updatedAt
	s.orders[orderID] = order
	return order, nil
}

func (s *memoryOrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, &fakeRepoError{notFound: true}
	}
	return order, nil
}

func (s *memoryOrderRepository) List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error) {
	var items []domain.Order
	for _, o := range s.orders {
		items = append(items, o)
	}
	return domain.CursorPage[domain.Order]{Items: items}, nil
}

var orderTestNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestOrderService(t *testing.T, repo *memoryOrderRepository) OrderService {
	t.Helper()
	svc, err := NewOrderService(OrderServiceDeps{
		Orders: repo,
		Clock:  func() time.Time { return orderTestNow },
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	return svc
}

func pendingOrder(id string) domain.Order {
	return domain.Order{
		ID:         id,
		Number:     "FC-2025-000001",
		CustomerID: "cust-1",
		Status:     domain.OrderStatusPending,
	}
}

func TestOrderServiceTransitionLadder(t *testing.T) {
	repo := newMemoryOrderRepository(pendingOrder("order-1"))
	svc := newTestOrderService(t, repo)
	ctx := context.Background()

	order, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "order-1", Status: domain.OrderStatusConfirmed})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", order.Status)
	}
	if !order.UpdatedAt.Equal(orderTestNow) {
		t.Fatalf("expected updatedAt %v, got %v", orderTestNow, order.UpdatedAt)
	}

	order, err = svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "order-1", Status: domain.OrderStatusDelivered})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if order.Status != domain.OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", order.Status)
	}
}

func TestOrderServiceTransitionRejectsInvalidMoves(t *testing.T) {
	repo := newMemoryOrderRepository(pendingOrder("order-1"))
	svc := newTestOrderService(t, repo)
	ctx := context.Background()

	// Pending cannot jump straight to delivered.
	if _, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "order-1", Status: domain.OrderStatusDelivered}); !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState, got %v", err)
	}

	// Delivered and cancelled are terminal.
	delivered := pendingOrder("order-2")
	delivered.Status = domain.OrderStatusDelivered
	repo.orders["order-2"] = delivered
	if _, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "order-2", Status: domain.OrderStatusCancelled}); !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected terminal delivered, got %v", err)
	}

	cancelled := pendingOrder("order-3")
	cancelled.Status = domain.OrderStatusCancelled
	repo.orders["order-3"] = cancelled
	if _, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "order-3", Status: domain.OrderStatusConfirmed}); !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected terminal cancelled, got %v", err)
	}
}

func TestOrderServiceTransitionCancelFromEitherStage(t *testing.T) {
	repo := newMemoryOrderRepository(pendingOrder("order-1"))
	confirmed := pendingOrder("order-2")
	confirmed.Status = domain.OrderStatusConfirmed
	repo.orders["order-2"] = confirmed
	svc := newTestOrderService(t, repo)
	ctx := context.Background()

	for _, id := range []string{"order-1", "order-2"} {
		order, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: id, Status: domain.OrderStatusCancelled})
		if err != nil {
			t.Fatalf("cancel %s: %v", id, err)
		}
		if order.Status != domain.OrderStatusCancelled {
			t.Fatalf("expected cancelled, got %s", order.Status)
		}
	}
}

func TestOrderServiceTransitionValidation(t *testing.T) {
	svc := newTestOrderService(t, newMemoryOrderRepository())
	ctx := context.Background()

	if _, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{Status: domain.OrderStatusConfirmed}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput for missing id, got %v", err)
	}
	if _, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "order-1", Status: domain.OrderStatus("shipped")}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput for unknown status, got %v", err)
	}
	if _, err := svc.TransitionStatus(ctx, OrderStatusTransitionCommand{OrderID: "order-missing", Status: domain.OrderStatusConfirmed}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderServiceListOrdersRejectsUnknownStatus(t *testing.T) {
	svc := newTestOrderService(t, newMemoryOrderRepository())

	_, err := svc.ListOrders(context.Background(), OrderListFilter{Status: []string{"pending", "shipped"}})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}
