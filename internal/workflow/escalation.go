package workflow

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/atlascrm/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/atlascrm/fulfillment-backend/pkg/errors"
)

// Escalate locks the order against agent edits and routes it to a manager.
// It is the ESC op-code applied through the state machine, so the same
// validation, audit, and notification rules apply.
func (s *service) Escalate(ctx context.Context, orderID, agentUserID uuid.UUID, reason string) error {
	_, err := s.ApplyStatusChange(ctx, ApplyInput{
		OrderID:     orderID,
		Code:        CodeEscalate,
		ActorUserID: agentUserID,
		Reason:      &reason,
	})
	return err
}

// Deescalate clears the escalation lock and hands the order back to agents.
func (s *service) Deescalate(ctx context.Context, orderID, managerUserID uuid.UUID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "De-escalation reason is required")
	}
	return s.managerEscalationChange(ctx, orderID, managerUserID, enums.OrderStatusPending, reason)
}

// AcceptEscalation confirms the order on the manager's behalf and clears the lock.
func (s *service) AcceptEscalation(ctx context.Context, orderID, managerUserID uuid.UUID, note string) error {
	if strings.TrimSpace(note) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "A note is required when accepting an escalation")
	}
	return s.managerEscalationChange(ctx, orderID, managerUserID, enums.OrderStatusConfirmed, note)
}

// ResolveEscalation completes the order on the manager's behalf and clears the lock.
func (s *service) ResolveEscalation(ctx context.Context, orderID, managerUserID uuid.UUID, note string) error {
	if strings.TrimSpace(note) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "A note is required when resolving an escalation")
	}
	return s.managerEscalationChange(ctx, orderID, managerUserID, enums.OrderStatusCompleted, note)
}

func (s *service) managerEscalationChange(ctx context.Context, orderID, managerUserID uuid.UUID, target enums.OrderStatus, note string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	isManager, err := s.isManager(ctx, managerUserID)
	if err != nil {
		return err
	}
	if !isManager {
		return pkgerrors.New(pkgerrors.CodeForbidden, "manager capability required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if !order.EscalatedToManager {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is not escalated")
		}
		if order.Status != enums.OrderStatusEscalateManager {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting a manager decision")
		}

		updates := map[string]any{
			"status":               target,
			"escalated_to_manager": false,
			"escalated_at":         nil,
			"escalated_by_user_id": nil,
			"escalation_reason":    nil,
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		trimmed := strings.TrimSpace(note)
		return wrapDependency(repo.AppendStatusLog(ctx, &models.StatusLog{
			OrderID:         order.ID,
			OldStatus:       string(order.Status),
			NewStatus:       string(target),
			ActorUserID:     actorRef(managerUserID),
			Notes:           &trimmed,
			IsManagerChange: true,
		}), "append status log")
	})
}

func wrapDependency(err error, msg string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
