package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/language"

	domain "github.com/freshcatch/api/internal/domain"
	"github.com/freshcatch/api/internal/repositories"
)

var (
	// ErrCustomerInvalidInput indicates the caller supplied invalid customer data.
	ErrCustomerInvalidInput = errors.New("customer service: invalid input")
	// ErrCustomerNotFound indicates the customer record does not exist.
	ErrCustomerNotFound = errors.New("customer service: not found")
	// ErrCustomerUnavailable indicates the backend cannot serve the request.
	ErrCustomerUnavailable = errors.New("customer service: unavailable")
)

// Languages the storefront renders. Anything else normalises to English.
var supportedLanguages = []language.Tag{
	language.English,
	language.Malayalam,
}

// CustomerServiceDeps bundles collaborators for the customer service.
type CustomerServiceDeps struct {
	Repository  repositories.CustomerRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type customerService struct {
	repo    repositories.CustomerRepository
	clock   func() time.Time
	newID   func() string
	matcher language.Matcher
}

// NewCustomerService constructs the customer record service.
func NewCustomerService(deps CustomerServiceDeps) (CustomerService, error) {
	if deps.Repository == nil {
		return nil, errors.New("customer service: repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &customerService{
		repo:    deps.Repository,
		clock:   func() time.Time { return clock().UTC() },
		newID:   idGen,
		matcher: language.NewMatcher(supportedLanguages),
	}, nil
}

func (s *customerService) CreateCustomer(ctx context.Context, cmd UpsertCustomerCommand) (Customer, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Customer{}, fmt.Errorf("%w: name is required", ErrCustomerInvalidInput)
	}
	phone := strings.TrimSpace(cmd.Phone)
	if phone == "" {
		return Customer{}, fmt.Errorf("%w: phone is required", ErrCustomerInvalidInput)
	}

	now := s.clock()
	customer := domain.Customer{
		ID:                strings.TrimSpace(s.newID()),
		Name:              name,
		Phone:             phone,
		Email:             strings.TrimSpace(cmd.Email),
		Place:             strings.TrimSpace(cmd.Place),
		PreferredLanguage: s.normaliseLanguage(cmd.PreferredLanguage),
		PricingPackageID:  strings.TrimSpace(cmd.PricingPackageID),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if cmd.BronzeTierEnabled != nil {
		customer.BronzeTierEnabled = *cmd.BronzeTierEnabled
	}

	if err := s.repo.Insert(ctx, customer); err != nil {
		return Customer{}, s.translateRepoError(err)
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, cmd UpsertCustomerCommand) (Customer, error) {
	if cmd.CustomerID == nil || strings.TrimSpace(*cmd.CustomerID) == "" {
		return Customer{}, fmt.Errorf("%w: customer_id is required", ErrCustomerInvalidInput)
	}

	customer, err := s.repo.FindByID(ctx, strings.TrimSpace(*cmd.CustomerID))
	if err != nil {
		return Customer{}, s.translateRepoError(err)
	}

	if name := strings.TrimSpace(cmd.Name); name != "" {
		customer.Name = name
	}
	if phone := strings.TrimSpace(cmd.Phone); phone != "" {
		customer.Phone = phone
	}
	if email := strings.TrimSpace(cmd.Email); email != "" {
		customer.Email = email
	}
	if place := strings.TrimSpace(cmd.Place); place != "" {
		customer.Place = place
	}
	if lang := strings.TrimSpace(cmd.PreferredLanguage); lang != "" {
		customer.PreferredLanguage = s.normaliseLanguage(lang)
	}
	if pkg := strings.TrimSpace(cmd.PricingPackageID); pkg != "" {
		customer.PricingPackageID = pkg
	}
	if cmd.BronzeTierEnabled != nil {
		customer.BronzeTierEnabled = *cmd.BronzeTierEnabled
	}
	customer.UpdatedAt = s.clock()

	if err := s.repo.Update(ctx, customer); err != nil {
		return Customer{}, s.translateRepoError(err)
	}
	return customer, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID string) (Customer, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return Customer{}, fmt.Errorf("%w: customer_id is required", ErrCustomerInvalidInput)
	}
	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		return Customer{}, s.translateRepoError(err)
	}
	return customer, nil
}

func (s *customerService) ListCustomers(ctx context.Context, pager Pagination) (domain.CursorPage[Customer], error) {
	page, err := s.repo.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[Customer]{}, s.translateRepoError(err)
	}
	return page, nil
}

// normaliseLanguage resolves arbitrary BCP 47 input to the closest supported
// storefront language, defaulting to English.
func (s *customerService) normaliseLanguage(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return language.English.String()
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return language.English.String()
	}
	matched, _, _ := s.matcher.Match(tag)
	base, _ := matched.Base()
	return base.String()
}

func (s *customerService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrCustomerNotFound
		}
	}
	return ErrCustomerUnavailable
}
