package returns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atlascrm/fulfillment-backend/pkg/db"
	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/atlascrm/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/atlascrm/fulfillment-backend/pkg/errors"
	"github.com/atlascrm/fulfillment-backend/pkg/notify"
	"github.com/atlascrm/fulfillment-backend/pkg/pagination"
)

const (
	returnCodePrefix     = "RET"
	returnCodeDateLayout = "060102"
	maxCodeAttempts      = 20
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the return pipeline. Every transition is validated against
// the pipeline graph, applied atomically with its audit entry, and announced
// on the notification sink.
type Service interface {
	Create(ctx context.Context, input CreateReturnInput) (*models.Return, error)
	Get(ctx context.Context, returnID uuid.UUID) (*models.Return, error)
	GetByCode(ctx context.Context, code string) (*models.Return, error)
	GetHistory(ctx context.Context, returnID uuid.UUID) (*ReturnHistory, error)
	List(ctx context.Context, params pagination.Params, filters ReturnFilters) (*ReturnList, error)

	SubmitForApproval(ctx context.Context, returnID, actorUserID uuid.UUID) (*models.Return, error)
	Approve(ctx context.Context, input ApproveInput) (*models.Return, error)
	Reject(ctx context.Context, input RejectInput) (*models.Return, error)
	SchedulePickup(ctx context.Context, input SchedulePickupInput) (*models.Return, error)
	MarkInTransit(ctx context.Context, returnID, actorUserID uuid.UUID) (*models.Return, error)
	MarkReceived(ctx context.Context, returnID, receiverUserID uuid.UUID) (*models.Return, error)
	Inspect(ctx context.Context, input InspectInput) (*models.Return, error)
	ProcessRefund(ctx context.Context, input ProcessRefundInput) (*models.Return, error)
	Restock(ctx context.Context, returnID, actorUserID uuid.UUID) (*models.Return, error)
	Complete(ctx context.Context, returnID, actorUserID uuid.UUID) (*models.Return, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Return, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	validate *validator.Validate
	notifier notify.Notifier
	now      func() time.Time
}

// NewService builds a returns service with the required dependencies.
func NewService(repo Repository, tx txRunner, validate *validator.Validate, notifier notify.Notifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if validate == nil {
		validate = validator.New()
	}
	if notifier == nil {
		notifier = notify.NewNop()
	}
	return &service{
		repo:     repo,
		tx:       tx,
		validate: validate,
		notifier: notifier,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateReturnInput) (*models.Return, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return input").WithDetails(err.Error())
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid return reason")
	}

	order, err := s.repo.FindOrderWithItems(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !orderDelivered(order) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has not been delivered")
	}
	if err := validateReturnItems(order, input.Items); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindActiveReturnByOrder(ctx, order.ID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already has an active return")
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active return")
	}

	var created *models.Return
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ret, err := s.createWithUniqueCode(ctx, repo, input)
		if err != nil {
			return err
		}
		items := make([]models.ReturnItem, 0, len(input.Items))
		for _, item := range input.Items {
			items = append(items, models.ReturnItem{
				ReturnID:    ret.ID,
				OrderItemID: item.OrderItemID,
				Quantity:    item.Quantity,
				Reason:      item.Reason,
				Condition:   item.Condition,
			})
		}
		if err := repo.CreateReturnItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return items")
		}
		created = ret
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// createWithUniqueCode persists the return, bumping the daily sequence until
// a free code is found, mirroring order code allocation.
func (s *service) createWithUniqueCode(ctx context.Context, repo Repository, input CreateReturnInput) (*models.Return, error) {
	day := s.now().UTC()
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	count, err := repo.CountReturnsCreatedBetween(ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count today's returns")
	}

	seq := count + 1
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		ret := &models.Return{
			ID:          uuid.New(),
			Code:        formatReturnCode(day, seq),
			OrderID:     input.OrderID,
			Reason:      input.Reason,
			Description: input.Description,
			Evidence:    input.Evidence,
		}
		created, err := repo.CreateReturn(ctx, ret)
		if err == nil {
			return created, nil
		}
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return")
		}
		seq++
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique return code")
}

func formatReturnCode(day time.Time, seq int64) string {
	return fmt.Sprintf("%s%s%04d", returnCodePrefix, day.UTC().Format(returnCodeDateLayout), seq)
}

func (s *service) Get(ctx context.Context, returnID uuid.UUID) (*models.Return, error) {
	if returnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	ret, err := s.repo.FindReturn(ctx, returnID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}
	return ret, nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*models.Return, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return code required")
	}
	ret, err := s.repo.FindReturnByCode(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}
	return ret, nil
}

func (s *service) GetHistory(ctx context.Context, returnID uuid.UUID) (*ReturnHistory, error) {
	ret, err := s.Get(ctx, returnID)
	if err != nil {
		return nil, err
	}
	logs, err := s.repo.ListStatusLogs(ctx, ret.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return status logs")
	}
	return &ReturnHistory{Return: *ret, StatusLogs: logs}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ReturnFilters) (*ReturnList, error) {
	list, err := s.repo.ListReturns(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list returns")
	}
	return list, nil
}

func (s *service) SubmitForApproval(ctx context.Context, returnID, actorUserID uuid.UUID) (*models.Return, error) {
	return s.transition(ctx, returnID, actorUserID, enums.ReturnStatusPendingApproval, nil, nil)
}

func (s *service) Approve(ctx context.Context, input ApproveInput) (*models.Return, error) {
	if input.RefundAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must not be negative")
	}
	approver := input.ApproverUserID
	return s.transition(ctx, input.ReturnID, approver, enums.ReturnStatusApproved, nil,
		func(ret *models.Return, updates map[string]any) error {
			updates["approved_by_user_id"] = approver
			updates["approved_at"] = s.now().UTC()
			updates["refund_amount"] = input.RefundAmount
			return nil
		})
}

func (s *service) Reject(ctx context.Context, input RejectInput) (*models.Return, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Rejection reason is required")
	}
	approver := input.ApproverUserID
	return s.transition(ctx, input.ReturnID, approver, enums.ReturnStatusRejected, &reason,
		func(ret *models.Return, updates map[string]any) error {
			updates["rejected_by_user_id"] = approver
			updates["rejected_at"] = s.now().UTC()
			updates["rejection_reason"] = reason
			updates["refund_status"] = enums.RefundStatusCancelled
			return nil
		})
}

func (s *service) SchedulePickup(ctx context.Context, input SchedulePickupInput) (*models.Return, error) {
	if input.PickupAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Pickup time is required")
	}
	return s.transition(ctx, input.ReturnID, input.ActorUserID, enums.ReturnStatusPickupScheduled, nil,
		func(ret *models.Return, updates map[string]any) error {
			updates["pickup_scheduled_at"] = input.PickupAt.UTC()
			return nil
		})
}

func (s *service) MarkInTransit(ctx context.Context, returnID, actorUserID uuid.UUID) (*models.Return, error) {
	return s.transition(ctx, returnID, actorUserID, enums.ReturnStatusInTransit, nil, nil)
}

func (s *service) MarkReceived(ctx context.Context, returnID, receiverUserID uuid.UUID) (*models.Return, error) {
	return s.transition(ctx, returnID, receiverUserID, enums.ReturnStatusReceived, nil,
		func(ret *models.Return, updates map[string]any) error {
			updates["received_by_user_id"] = receiverUserID
			updates["received_at"] = s.now().UTC()
			return nil
		})
}

// Inspect records the warehouse verdict. Approval routes the return to
// approved_for_refund with the refund approved; rejection parks it at
// inspected with the refund cancelled.
func (s *service) Inspect(ctx context.Context, input InspectInput) (*models.Return, error) {
	if !input.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Item condition is required")
	}
	notes := strings.TrimSpace(input.Notes)
	if notes == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Inspection notes are required")
	}
	if input.RestockingFee.IsNegative() || input.DamageDeduction.IsNegative() || input.ShippingCostDeduction.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deductions must not be negative")
	}

	target := enums.ReturnStatusInspected
	refundStatus := enums.RefundStatusCancelled
	if input.ApproveForRefund {
		target = enums.ReturnStatusApprovedForRefund
		refundStatus = enums.RefundStatusApproved
	}

	inspector := input.InspectorUserID
	return s.transition(ctx, input.ReturnID, inspector, target, &notes,
		func(ret *models.Return, updates map[string]any) error {
			updates["inspected_by_user_id"] = inspector
			updates["inspected_at"] = s.now().UTC()
			updates["item_condition"] = input.Condition
			updates["inspection_notes"] = notes
			updates["can_restock"] = input.CanRestock
			updates["restocking_fee"] = input.RestockingFee
			updates["damage_deduction"] = input.DamageDeduction
			updates["shipping_cost_deduction"] = input.ShippingCostDeduction
			updates["refund_status"] = refundStatus
			return nil
		})
}

func (s *service) ProcessRefund(ctx context.Context, input ProcessRefundInput) (*models.Return, error) {
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Refund method is required")
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Refund reference is required")
	}

	processor := input.ProcessorUserID
	return s.transition(ctx, input.ReturnID, processor, enums.ReturnStatusRefundCompleted, input.Notes,
		func(ret *models.Return, updates map[string]any) error {
			if ret.ReturnStatus != enums.ReturnStatusApprovedForRefund {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "return is not approved for refund")
			}
			if ret.RefundStatus != enums.RefundStatusApproved {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "refund is not approved")
			}
			updates["refund_method"] = input.Method
			updates["refund_reference"] = reference
			updates["refund_processed_by_user_id"] = processor
			updates["refund_processed_at"] = s.now().UTC()
			if input.Notes != nil {
				updates["refund_processing_notes"] = *input.Notes
			}
			updates["refund_status"] = enums.RefundStatusCompleted
			return nil
		})
}

func (s *service) Restock(ctx context.Context, returnID, actorUserID uuid.UUID) (*models.Return, error) {
	return s.transition(ctx, returnID, actorUserID, enums.ReturnStatusRestocked, nil,
		func(ret *models.Return, updates map[string]any) error {
			if !ret.CanRestock {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "return is not eligible for restock")
			}
			updates["restocked_at"] = s.now().UTC()
			updates["restocked_by_user_id"] = actorUserID
			return nil
		})
}

func (s *service) Complete(ctx context.Context, returnID, actorUserID uuid.UUID) (*models.Return, error) {
	return s.transition(ctx, returnID, actorUserID, enums.ReturnStatusCompleted, nil, nil)
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Return, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Cancellation reason is required")
	}
	actor := input.ActorUserID
	return s.transition(ctx, input.ReturnID, actor, enums.ReturnStatusCancelled, &reason,
		func(ret *models.Return, updates map[string]any) error {
			updates["cancellation_reason"] = reason
			updates["cancelled_by_user_id"] = actor
			updates["cancelled_at"] = s.now().UTC()
			updates["refund_status"] = enums.RefundStatusCancelled
			return nil
		})
}

// transition applies one pipeline step: reload the return inside the
// transaction, check the edge, apply the field updates, and append the audit
// entry. mutate may add fields to the update map or veto the step with a
// typed error after seeing current state.
func (s *service) transition(ctx context.Context, returnID, actorUserID uuid.UUID, target enums.ReturnStatus, notes *string, mutate func(ret *models.Return, updates map[string]any) error) (*models.Return, error) {
	if returnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}

	var updated *models.Return
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ret, err := repo.FindReturn(ctx, returnID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
		}
		if !CanTransition(ret.ReturnStatus, target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move return from %s to %s", ret.ReturnStatus, target))
		}

		updates := map[string]any{"return_status": target}
		if mutate != nil {
			if err := mutate(ret, updates); err != nil {
				return err
			}
		}
		if err := repo.UpdateReturn(ctx, ret.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return")
		}

		var actor *uuid.UUID
		if actorUserID != uuid.Nil {
			a := actorUserID
			actor = &a
		}
		if err := repo.AppendStatusLog(ctx, &models.ReturnStatusLog{
			ReturnID:    ret.ID,
			OldStatus:   string(ret.ReturnStatus),
			NewStatus:   string(target),
			ActorUserID: actor,
			Notes:       notes,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append return status log")
		}

		updated, err = repo.FindReturn(ctx, ret.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload return")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyStatusChanged(ctx, updated, actorUserID)
	return updated, nil
}

func (s *service) notifyStatusChanged(ctx context.Context, ret *models.Return, actorUserID uuid.UUID) {
	event := notify.Event{
		Type:       notify.EventReturnStatusChanged,
		SubjectID:  ret.ID,
		NewState:   ret.ReturnStatus.String(),
		OccurredAt: s.now().UTC(),
	}
	if actorUserID != uuid.Nil {
		actor := actorUserID
		event.ActorID = &actor
	}
	s.notifier.Notify(ctx, event)
}

func orderDelivered(order *models.Order) bool {
	return order.WorkflowStatus == enums.WorkflowStatusDeliveryCompleted ||
		order.Status == enums.OrderStatusCompleted
}

func validateReturnItems(order *models.Order, items []CreateReturnItemInput) error {
	lines := make(map[uuid.UUID]int, len(order.Items))
	for _, line := range order.Items {
		lines[line.ID] = line.Quantity
	}
	seen := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		max, ok := lines[item.OrderItemID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "return item does not belong to the order")
		}
		if seen[item.OrderItemID] {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate return item")
		}
		seen[item.OrderItemID] = true
		if item.Quantity > max {
			return pkgerrors.New(pkgerrors.CodeValidation, "return quantity exceeds ordered quantity")
		}
		if item.Reason != nil && !item.Reason.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid return item reason")
		}
		if item.Condition != nil && !item.Condition.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid return item condition")
		}
	}
	return nil
}
