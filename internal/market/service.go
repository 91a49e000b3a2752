package market

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gridwatt/energymarket/internal/storage"
	"github.com/gridwatt/energymarket/internal/types"
)

// Service is the order-facing surface of the market: placement, lookup and
// cancellation. Fills are applied only through settlement.
type Service struct {
	orders storage.OrderStore
	ledger storage.Ledger
	log    zerolog.Logger
	clock  func() time.Time
}

func NewService(orders storage.OrderStore, ledger storage.Ledger, log zerolog.Logger) *Service {
	return &Service{
		orders: orders,
		ledger: ledger,
		log:    log.With().Str("component", "market").Logger(),
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service's time source.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Place validates and persists a new Active order. The owner must be a
// registered, active prosumer.
func (s *Service) Place(ctx context.Context, owner string, side types.Side, amount, price decimal.Decimal, expiresAt *time.Time) (*types.Order, error) {
	prosumer, err := s.ledger.GetProsumer(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !prosumer.IsActive {
		return nil, fmt.Errorf("%w: prosumer %q is deactivated", types.ErrForbidden, owner)
	}

	order, err := types.NewOrder(owner, side, amount, price, expiresAt, s.clock())
	if err != nil {
		return nil, err
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("prosumer", owner).
		Str("side", string(side)).
		Str("energy_amount", amount.String()).
		Str("price_per_unit", price.String()).
		Msg("order placed")
	return order, nil
}

// Get retrieves one order by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*types.Order, error) {
	return s.orders.GetOrder(ctx, id)
}

// List returns orders matching the filter, oldest first.
func (s *Service) List(ctx context.Context, filter storage.OrderFilter) ([]*types.Order, error) {
	return s.orders.ListOrders(ctx, filter)
}

// Cancel transitions an Active order to Cancelled on behalf of the
// requester. Only the owner, or an administrator, may cancel.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, requester string, admin bool) (*types.Order, error) {
	order, err := s.orders.CancelOrder(ctx, id, requester, admin)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("requester", requester).
		Msg("order cancelled")
	return order, nil
}
