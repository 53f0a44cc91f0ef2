package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/phongthuytaman/backend-store/internal/events"
	"github.com/phongthuytaman/backend-store/internal/obs"
	"github.com/phongthuytaman/backend-store/internal/store"
)

// Service coordinates payment creation, status retrieval and settlement
// across the configured gateways.
type Service struct {
	Q        *store.Queries
	Pool     *pgxpool.Pool
	Gateways map[string]Gateway
	Refs     *RefGenerator
	Events   *events.Bus
	Log      zerolog.Logger
}

// CreateParams opens a payment. OrderID is optional: the relay endpoints
// carry only an amount, the storefront flow links the payment to an order
// and signs the order's authoritative total.
type CreateParams struct {
	Gateway     string
	Amount      int64
	Description string
	ClientIP    string
	BankCode    string
	OrderID     pgtype.UUID
}

// Create validates the amount, generates a reference, dispatches to the
// gateway and records the attempt.
func (s *Service) Create(ctx context.Context, p CreateParams) (CreateResponse, error) {
	var zero CreateResponse
	if s == nil || s.Gateways == nil {
		return zero, errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.Create")
	defer span.End()

	gatewayKey := normaliseGatewayKey(p.Gateway)
	result := "error"
	defer func() {
		span.SetAttributes(
			attribute.String("payment.gateway", gatewayKey),
			attribute.String("payment.create.result", result),
		)
		if obs.PaymentBuildTotal != nil {
			obs.PaymentBuildTotal.WithLabelValues(gatewayKey, result).Inc()
		}
	}()

	gw, ok := s.Gateways[gatewayKey]
	if !ok {
		return zero, fmt.Errorf("unknown gateway %q", p.Gateway)
	}
	if p.Amount <= 0 {
		result = "invalid_amount"
		return zero, ErrInvalidAmount
	}
	ref := s.Refs.Next()
	span.SetAttributes(attribute.String("payment.ref", ref))

	resp, err := gw.CreatePayment(ctx, CreateRequest{
		OrderRef:    ref,
		Amount:      p.Amount,
		Description: p.Description,
		ClientIP:    p.ClientIP,
		BankCode:    p.BankCode,
	})
	if err != nil {
		span.RecordError(err)
		return zero, err
	}
	result = "success"
	if s.Q != nil {
		if _, err := s.Q.CreatePayment(ctx, store.CreatePaymentParams{
			OrderID:         p.OrderID,
			OrderRef:        ref,
			Gateway:         gatewayKey,
			Amount:          p.Amount,
			Status:          store.PaymentStatusPENDING,
			ProviderPayload: resp.Raw,
		}); err != nil {
			return zero, err
		}
	}
	return resp, nil
}

// CreateForOrder opens a payment for an existing order, signing the order's
// stored total rather than anything the client sent.
func (s *Service) CreateForOrder(ctx context.Context, orderID pgtype.UUID, gateway, clientIP string) (CreateResponse, error) {
	var zero CreateResponse
	if s == nil || s.Q == nil {
		return zero, errors.New("payment service not configured")
	}
	order, err := s.Q.GetOrderByID(ctx, orderID)
	if err != nil {
		return zero, err
	}
	if order.Status != store.OrderStatusPENDINGPAYMENT {
		return zero, fmt.Errorf("order status %s does not allow new payments", order.Status)
	}
	existing, err := s.Q.GetLatestPaymentByOrder(ctx, orderID)
	if err == nil && existing.Status == store.PaymentStatusPAID {
		return zero, errors.New("order already paid")
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return zero, err
	}
	return s.Create(ctx, CreateParams{
		Gateway:     gateway,
		Amount:      order.Total,
		Description: "Payment for the order " + store.UUIDString(orderID),
		ClientIP:    clientIP,
		OrderID:     orderID,
	})
}

// Status reports the best-known status for a reference: the local row first,
// then a gateway query when the row is still pending. Query failures map to
// unknown, never to failed.
func (s *Service) Status(ctx context.Context, orderRef string) (StatusResult, error) {
	if s == nil || s.Q == nil {
		return StatusResult{Status: StatusUnknown}, errors.New("payment service not configured")
	}
	p, err := s.Q.GetPaymentByRef(ctx, orderRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StatusResult{Status: StatusUnknown}, ErrPaymentNotFound
		}
		return StatusResult{Status: StatusUnknown}, err
	}
	switch p.Status {
	case store.PaymentStatusPAID:
		return StatusResult{Status: StatusSuccess}, nil
	case store.PaymentStatusFAILED, store.PaymentStatusEXPIRED:
		return StatusResult{Status: StatusFailed}, nil
	}
	gw, ok := s.Gateways[p.Gateway]
	if !ok {
		return StatusResult{Status: StatusPending}, nil
	}
	result, err := gw.QueryStatus(ctx, orderRef)
	if obs.GatewayQueryTotal != nil {
		obs.GatewayQueryTotal.WithLabelValues(p.Gateway, string(result.Status)).Inc()
	}
	if err != nil {
		s.Log.Warn().Err(err).Str("ref", orderRef).Str("gateway", p.Gateway).Msg("gateway status query failed")
		return StatusResult{Status: StatusUnknown, Raw: result.Raw}, nil
	}
	return result, nil
}

// QueryGateway runs a raw status query without consulting local state. The
// relay check-status endpoint passes the gateway response through verbatim.
func (s *Service) QueryGateway(ctx context.Context, gateway, orderRef string) (StatusResult, error) {
	gw, ok := s.Gateways[normaliseGatewayKey(gateway)]
	if !ok {
		return StatusResult{Status: StatusUnknown}, fmt.Errorf("unknown gateway %q", gateway)
	}
	return gw.QueryStatus(ctx, orderRef)
}

// ConsolidatedStatus returns the best-known status for an order's payment.
func (s *Service) ConsolidatedStatus(ctx context.Context, orderID pgtype.UUID) (Status, error) {
	if s == nil || s.Q == nil {
		return StatusUnknown, errors.New("payment service not configured")
	}
	p, err := s.Q.GetLatestPaymentByOrder(ctx, orderID)
	if err == nil {
		switch p.Status {
		case store.PaymentStatusPAID:
			return StatusSuccess, nil
		case store.PaymentStatusFAILED, store.PaymentStatusEXPIRED:
			return StatusFailed, nil
		default:
			return StatusPending, nil
		}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return StatusUnknown, err
	}
	order, err := s.Q.GetOrderByID(ctx, orderID)
	if err != nil {
		return StatusUnknown, err
	}
	switch order.Status {
	case store.OrderStatusPAID:
		return StatusSuccess, nil
	case store.OrderStatusCANCELED:
		return StatusFailed, nil
	default:
		return StatusPending, nil
	}
}

// Settle records a terminal (or confirmed) status for a payment: the payment
// row, its event trail and the linked order move together in one transaction,
// then domain events fire.
func (s *Service) Settle(ctx context.Context, orderRef string, status Status, payload []byte) error {
	if s == nil || s.Q == nil {
		return errors.New("payment service not configured")
	}
	newStatus := toStoreStatus(status)
	q := s.Q
	var tx pgx.Tx
	if s.Pool != nil {
		var err error
		tx, err = s.Pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()
		q = s.Q.WithTx(tx)
	}

	current, err := q.GetPaymentByRef(ctx, orderRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPaymentNotFound
		}
		return err
	}
	alreadySettled := current.Status == newStatus
	updated, err := q.UpdatePaymentStatus(ctx, store.UpdatePaymentStatusParams{
		OrderRef:        orderRef,
		Status:          newStatus,
		ProviderPayload: payload,
	})
	if err != nil {
		return err
	}
	if !alreadySettled {
		if _, err := q.InsertPaymentEvent(ctx, store.InsertPaymentEventParams{
			PaymentID: updated.ID,
			Status:    newStatus,
			Payload:   payload,
		}); err != nil {
			return err
		}
	}

	orderCanceled := false
	var order store.Order
	if updated.OrderID.Valid {
		order, err = q.GetOrderByID(ctx, updated.OrderID)
		if err != nil {
			return err
		}
		switch newStatus {
		case store.PaymentStatusPAID:
			if order.Status != store.OrderStatusPAID {
				if err := q.UpdateOrderStatus(ctx, store.UpdateOrderStatusParams{ID: order.ID, Status: store.OrderStatusPAID}); err != nil {
					return err
				}
			}
		case store.PaymentStatusFAILED, store.PaymentStatusEXPIRED:
			if order.Status == store.OrderStatusPENDINGPAYMENT {
				if err := q.UpdateOrderStatus(ctx, store.UpdateOrderStatusParams{ID: order.ID, Status: store.OrderStatusCANCELED}); err != nil {
					return err
				}
				orderCanceled = true
			}
		}
	}

	if tx != nil {
		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	if s.Events != nil && updated.OrderID.Valid && !alreadySettled {
		eventPayload := map[string]any{
			"orderId":  store.UUIDString(updated.OrderID),
			"orderRef": orderRef,
			"gateway":  updated.Gateway,
			"amount":   updated.Amount,
			"status":   string(newStatus),
		}
		switch newStatus {
		case store.PaymentStatusPAID:
			_, _ = s.Events.Emit(ctx, events.TopicOrderPaid, updated.OrderID, eventPayload)
		case store.PaymentStatusFAILED:
			_, _ = s.Events.Emit(ctx, events.TopicPaymentFailed, updated.OrderID, eventPayload)
			if orderCanceled {
				_, _ = s.Events.Emit(ctx, events.TopicOrderCanceled, updated.OrderID, eventPayload)
			}
		case store.PaymentStatusEXPIRED:
			_, _ = s.Events.Emit(ctx, events.TopicPaymentExpired, updated.OrderID, eventPayload)
			if orderCanceled {
				_, _ = s.Events.Emit(ctx, events.TopicOrderCanceled, updated.OrderID, eventPayload)
			}
		}
	}
	return nil
}

// Reconcile sweeps stale pending payments and settles the ones the gateways
// know a terminal status for. Unknown answers leave the row untouched.
func (s *Service) Reconcile(ctx context.Context, minAge time.Duration, batch int32) error {
	if s == nil || s.Q == nil {
		return errors.New("payment service not configured")
	}
	pending, err := s.Q.ListPendingPayments(ctx, store.ListPendingPaymentsParams{
		MinAge: fmt.Sprintf("%d seconds", int64(minAge.Seconds())),
		Limit:  batch,
	})
	if err != nil {
		return err
	}
	var joined error
	for _, p := range pending {
		gw, ok := s.Gateways[p.Gateway]
		if !ok {
			continue
		}
		result, err := gw.QueryStatus(ctx, p.OrderRef)
		if err != nil || result.Status == StatusUnknown || result.Status == StatusPending {
			if err != nil {
				s.Log.Warn().Err(err).Str("ref", p.OrderRef).Str("gateway", p.Gateway).Msg("reconcile query failed")
			}
			continue
		}
		if err := s.Settle(ctx, p.OrderRef, result.Status, result.Raw); err != nil {
			joined = errors.Join(joined, fmt.Errorf("settle %s: %w", p.OrderRef, err))
			continue
		}
		if obs.ReconcileSettledTotal != nil {
			obs.ReconcileSettledTotal.WithLabelValues(p.Gateway, string(result.Status)).Inc()
		}
		s.Log.Info().Str("ref", p.OrderRef).Str("gateway", p.Gateway).Str("status", string(result.Status)).Msg("payment reconciled")
	}
	return joined
}

func toStoreStatus(status Status) store.PaymentStatus {
	switch status {
	case StatusSuccess:
		return store.PaymentStatusPAID
	case StatusFailed:
		return store.PaymentStatusFAILED
	default:
		return store.PaymentStatusPENDING
	}
}
