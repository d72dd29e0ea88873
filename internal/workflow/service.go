package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atlascrm/fulfillment-backend/internal/directory"
	"github.com/atlascrm/fulfillment-backend/internal/orders"
	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/atlascrm/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/atlascrm/fulfillment-backend/pkg/errors"
	"github.com/atlascrm/fulfillment-backend/pkg/notify"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ApplyInput carries an op-code plus the context fields the code requires.
type ApplyInput struct {
	OrderID        uuid.UUID
	Code           StatusCode
	ActorUserID    uuid.UUID
	DeliveryArea   *string
	AttemptAt      *time.Time
	PostponedUntil *time.Time
	CallbackAt     *time.Time
	Reason         *string
	Notes          *string
}

// Result reports the applied transition.
type Result struct {
	Order   *models.Order
	Outcome enums.CallOutcome
}

// AdvanceInput moves an order to the next department stage.
type AdvanceInput struct {
	OrderID     uuid.UUID
	Target      enums.WorkflowStatus
	ActorUserID uuid.UUID
	Notes       *string
}

// Service is the order workflow engine: the single authority for status and
// workflow transitions, stale-order expiry, and the escalation sub-protocol.
type Service interface {
	ApplyStatusChange(ctx context.Context, input ApplyInput) (*Result, error)
	AdvanceWorkflow(ctx context.Context, input AdvanceInput) (*models.Order, error)
	ExpireStaleOrders(ctx context.Context, cutoff time.Time) (int, error)
	Escalate(ctx context.Context, orderID, agentUserID uuid.UUID, reason string) error
	Deescalate(ctx context.Context, orderID, managerUserID uuid.UUID, reason string) error
	AcceptEscalation(ctx context.Context, orderID, managerUserID uuid.UUID, note string) error
	ResolveEscalation(ctx context.Context, orderID, managerUserID uuid.UUID, note string) error
}

type service struct {
	repo     orders.Repository
	tx       txRunner
	dir      directory.Directory
	notifier notify.Notifier
	now      func() time.Time
}

// NewService builds the workflow engine with the required dependencies.
func NewService(repo orders.Repository, tx txRunner, dir directory.Directory, notifier notify.Notifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory required")
	}
	if notifier == nil {
		notifier = notify.NewNop()
	}
	return &service{
		repo:     repo,
		tx:       tx,
		dir:      dir,
		notifier: notifier,
		now:      time.Now,
	}, nil
}

func (s *service) ApplyStatusChange(ctx context.Context, input ApplyInput) (*Result, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	effect, ok := effectsByCode[input.Code]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unrecognized status code %q", string(input.Code)))
	}
	if err := validateRequiredContext(effect, input); err != nil {
		return nil, err
	}

	isManager, err := s.isManager(ctx, input.ActorUserID)
	if err != nil {
		return nil, err
	}

	var result *Result
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.EscalatedToManager && !isManager {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is escalated to a manager; agents may not update it")
		}
		if input.Code == CodeEscalate && order.EscalatedToManager {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is already escalated to a manager")
		}

		now := s.now().UTC()
		oldStatus := order.Status
		oldWorkflow := order.WorkflowStatus

		updates := map[string]any{"status": effect.status}
		workflowChanged := false
		if effect.workflow != nil && *effect.workflow != oldWorkflow {
			if !CanTransition(oldWorkflow, *effect.workflow) {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("workflow cannot move from %s to %s", oldWorkflow, *effect.workflow))
			}
			updates["workflow_status"] = *effect.workflow
			workflowChanged = true
		}

		switch input.Code {
		case CodeConfirm:
			updates["delivery_area"] = strings.TrimSpace(*input.DeliveryArea)
		case CodeNoAnswerFirst, CodeNoAnswerSecond, CodeNoAnswerThird:
			updates["last_no_answer_at"] = input.AttemptAt.UTC()
			updates["no_answer_attempt"] = effect.noAnswerAttempt
		case CodePostpone:
			updates["postponed_until"] = input.PostponedUntil.UTC()
		case CodeCallback:
			updates["callback_at"] = input.CallbackAt.UTC()
		case CodeEscalate:
			updates["escalated_to_manager"] = true
			updates["escalated_at"] = now
			updates["escalated_by_user_id"] = input.ActorUserID
			updates["escalation_reason"] = strings.TrimSpace(*input.Reason)
		}

		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		if err := repo.AppendStatusLog(ctx, &models.StatusLog{
			OrderID:         order.ID,
			OldStatus:       string(oldStatus),
			NewStatus:       string(effect.status),
			ActorUserID:     actorRef(input.ActorUserID),
			Notes:           input.Notes,
			IsManagerChange: isManager,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status log")
		}
		if workflowChanged {
			if err := repo.AppendWorkflowLog(ctx, &models.WorkflowLog{
				OrderID:     order.ID,
				OldWorkflow: string(oldWorkflow),
				NewWorkflow: string(*effect.workflow),
				ActorUserID: actorRef(input.ActorUserID),
				Notes:       input.Notes,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append workflow log")
			}
		}
		if err := repo.AppendCallLog(ctx, &models.CallLog{
			OrderID:          order.ID,
			AgentUserID:      actorRef(input.ActorUserID),
			Outcome:          effect.outcome,
			ResolutionStatus: effect.resolution,
			Notes:            input.Notes,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append call log")
		}

		order.Status = effect.status
		if workflowChanged {
			order.WorkflowStatus = *effect.workflow
		}
		result = &Result{Order: order, Outcome: effect.outcome}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if input.Code == CodeEscalate {
		s.notifier.Notify(ctx, notify.Event{
			Type:       notify.EventOrderEscalated,
			SubjectID:  result.Order.ID,
			NewState:   string(result.Order.Status),
			ActorID:    actorRef(input.ActorUserID),
			OccurredAt: s.now().UTC(),
		})
	}
	return result, nil
}

func validateRequiredContext(effect codeEffect, input ApplyInput) error {
	if effect.needsDeliveryArea && (input.DeliveryArea == nil || strings.TrimSpace(*input.DeliveryArea) == "") {
		return pkgerrors.New(pkgerrors.CodeValidation, "A confirmed delivery area is required to confirm the order")
	}
	if effect.needsAttemptAt && input.AttemptAt == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "A call attempt timestamp is required for a no-answer outcome")
	}
	if effect.needsPostponedUntil && input.PostponedUntil == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "A postponed-until timestamp is required when postponing an order")
	}
	if effect.needsCallbackAt && input.CallbackAt == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "A callback timestamp is required when scheduling a call back")
	}
	if effect.needsReason && (input.Reason == nil || strings.TrimSpace(*input.Reason) == "") {
		return pkgerrors.New(pkgerrors.CodeValidation, "Escalation reason is required when escalating to manager")
	}
	return nil
}

func (s *service) AdvanceWorkflow(ctx context.Context, input AdvanceInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid workflow status %q", string(input.Target)))
	}

	isManager, err := s.isManager(ctx, input.ActorUserID)
	if err != nil {
		return nil, err
	}

	var advanced *models.Order
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.EscalatedToManager && !isManager {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is escalated to a manager; agents may not update it")
		}
		if !CanTransition(order.WorkflowStatus, input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("workflow cannot move from %s to %s", order.WorkflowStatus, input.Target))
		}

		oldWorkflow := order.WorkflowStatus
		updates := map[string]any{"workflow_status": input.Target}

		var statusChange *enums.OrderStatus
		switch input.Target {
		case enums.WorkflowStatusDeliveryCompleted:
			completed := enums.OrderStatusCompleted
			statusChange = &completed
		case enums.WorkflowStatusCancelled:
			cancelled := enums.OrderStatusCancelled
			statusChange = &cancelled
		}
		if statusChange != nil {
			updates["status"] = *statusChange
		}

		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if err := repo.AppendWorkflowLog(ctx, &models.WorkflowLog{
			OrderID:     order.ID,
			OldWorkflow: string(oldWorkflow),
			NewWorkflow: string(input.Target),
			ActorUserID: actorRef(input.ActorUserID),
			Notes:       input.Notes,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append workflow log")
		}
		if statusChange != nil {
			if err := repo.AppendStatusLog(ctx, &models.StatusLog{
				OrderID:         order.ID,
				OldStatus:       string(order.Status),
				NewStatus:       string(*statusChange),
				ActorUserID:     actorRef(input.ActorUserID),
				Notes:           input.Notes,
				IsManagerChange: isManager,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status log")
			}
			order.Status = *statusChange
		}

		order.WorkflowStatus = input.Target
		advanced = order
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return advanced, nil
}

// ExpireStaleOrders postpones every pending order still sitting in call-center
// stages past the cutoff. Safe to re-run: already-postponed orders no longer
// match the stale query, and each order is re-checked inside its transaction.
func (s *service) ExpireStaleOrders(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.repo.FindStaleOrders(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query stale orders")
	}

	expired := 0
	for _, candidate := range stale {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			order, err := loadOrder(ctx, repo, candidate.ID)
			if err != nil {
				return err
			}
			if order.Status != enums.OrderStatusPending {
				return nil
			}
			if order.WorkflowStatus != enums.WorkflowStatusCallcenterReview &&
				order.WorkflowStatus != enums.WorkflowStatusCallcenterApproved {
				return nil
			}

			notes := "automatically postponed after inactivity"
			if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
				"status":          enums.OrderStatusPostponed,
				"workflow_status": enums.WorkflowStatusPostponed,
				"postponed_until": s.now().UTC().Add(24 * time.Hour),
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "postpone stale order")
			}
			if err := repo.AppendStatusLog(ctx, &models.StatusLog{
				OrderID:   order.ID,
				OldStatus: string(order.Status),
				NewStatus: string(enums.OrderStatusPostponed),
				Notes:     &notes,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status log")
			}
			if err := repo.AppendWorkflowLog(ctx, &models.WorkflowLog{
				OrderID:     order.ID,
				OldWorkflow: string(order.WorkflowStatus),
				NewWorkflow: string(enums.WorkflowStatusPostponed),
				Notes:       &notes,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append workflow log")
			}
			expired++
			return nil
		})
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}

func (s *service) isManager(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	isManager, err := s.dir.IsManager(ctx, userID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check manager capability")
	}
	return isManager, nil
}

func loadOrder(ctx context.Context, repo orders.Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func actorRef(userID uuid.UUID) *uuid.UUID {
	if userID == uuid.Nil {
		return nil
	}
	id := userID
	return &id
}
